package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"familycart/internal/models"
	"familycart/internal/repository"
	"familycart/internal/security"
	"familycart/internal/validation"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Session is a freshly issued credential together with the user it identifies
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// AuthService handles registration, login and credential resolution
type AuthService struct {
	userRepo *repository.UserRepository
	tokens   *security.TokenIssuer
	logger   logrus.FieldLogger
	clock    clock
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo *repository.UserRepository, tokens *security.TokenIssuer, logger logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
		clock:    time.Now,
	}
}

// SetClock replaces the service's time source
func (s *AuthService) SetClock(now func() time.Time) {
	s.clock = now
}

// Register creates a user with no family and signs them in.
// A blank full name defaults to the local part of the email.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*Session, error) {
	fullName = strings.TrimSpace(fullName)
	if err := validation.Collect(
		validation.ValidateEmail(email),
		validation.ValidatePassword(password),
		validation.ValidateOptionalName("fullName", fullName),
	); err != nil {
		return nil, err
	}

	email = models.NormalizeEmail(email)
	if fullName == "" {
		fullName, _, _ = strings.Cut(email, "@")
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.CreateUser(ctx, email, passwordHash, fullName, s.clock.now())
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("User registered")
	return s.IssueSession(user)
}

// Login checks credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !security.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.IssueSession(user)
}

// Authenticate resolves a bearer credential to the current user row. The
// credential only proves identity; family and role always come from the store.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.GetUser(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return user, err
}

// GetUser reloads a user by ID
func (s *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// IssueSession signs a credential reflecting the user's current membership
func (s *AuthService) IssueSession(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
