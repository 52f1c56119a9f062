package security

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"familycart/internal/models"
)

func TestTokenIssuerRoundTrip(t *testing.T) {
	familyID := int64(9)
	user := &models.User{ID: 42, Email: "a@example.com", FamilyID: &familyID}

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("test-secret").WithClock(func() time.Time { return now })

	token, expiresAt, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if want := now.Add(7 * 24 * time.Hour); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.FamilyID == nil || *claims.FamilyID != 9 {
		t.Errorf("FamilyID = %v, want 9", claims.FamilyID)
	}
	if claims.Subject != "42" || claims.ID == "" {
		t.Errorf("registered claims not populated: %+v", claims.RegisteredClaims)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	issuer := NewTokenIssuer("test-secret").WithClock(func() time.Time { return now })
	user := &models.User{ID: 1, Email: "a@example.com"}

	valid, _, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := func() string {
		past := issuer.WithClock(func() time.Time { return now.Add(-8 * 24 * time.Hour) })
		token, _, err := past.Issue(user)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		return token
	}()

	other, _, err := issuer.Issue(&models.User{ID: 2, Email: "b@example.com"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	validParts := strings.Split(valid, ".")
	otherParts := strings.Split(other, ".")
	tampered := validParts[0] + "." + otherParts[1] + "." + validParts[2]

	otherSecret, _, err := NewTokenIssuer("other-secret").Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"malformed", "not.a.jwt"},
		{"empty", ""},
		{"tampered payload", tampered},
		{"none algorithm", noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := issuer.Verify(tt.token); err != ErrInvalidToken {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"valid", "Bearer abc.def", "abc.def", true},
		{"lowercase scheme", "bearer abc", "abc", true},
		{"missing", "", "", false},
		{"basic auth", "Basic dXNlcg==", "", false},
		{"no token", "Bearer ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/auth/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(r)
			if got != tt.want || ok != tt.ok {
				t.Errorf("BearerToken() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestGenerateSessionIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateSessionID()
		if seen[id] {
			t.Fatalf("duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}
