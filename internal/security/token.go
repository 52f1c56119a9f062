package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"familycart/internal/models"
)

// SessionDuration is the fixed validity of a session credential
const SessionDuration = 7 * 24 * time.Hour

// ErrInvalidToken is returned for malformed, tampered, wrongly signed or expired credentials
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of a session credential. FamilyID is a snapshot taken
// at issue time and must not be used for authorization.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	FamilyID *int64 `json:"fid"`
	Email    string `json:"email"`
}

// TokenIssuer signs and verifies HS256 session credentials
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer using secret with the standard session duration
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    SessionDuration,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	c := *i
	c.now = now
	return &c
}

// Issue creates a credential for user
func (i *TokenIssuer) Issue(user *models.User) (string, time.Time, error) {
	issuedAt := i.now()
	expiresAt := issuedAt.Add(i.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        GenerateSessionID(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   user.ID,
		FamilyID: user.FamilyID,
		Email:    user.Email,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of a credential and returns its claims
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
