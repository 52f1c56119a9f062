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
	"familycart/internal/validation"
)

var ErrAlreadyInFamily = errors.New("already in a family")

// SessionIssuer reissues credentials after a membership change
type SessionIssuer interface {
	IssueSession(user *models.User) (*Session, error)
}

// Membership is the result of joining or creating a family: the family, its
// current members and a credential carrying the new family id
type Membership struct {
	Family  *models.Family
	Members []models.Member
	Session *Session
}

// FamilyService handles family creation, membership and deletion
type FamilyService struct {
	familyRepo *repository.FamilyRepository
	userRepo   *repository.UserRepository
	sessions   SessionIssuer
	logger     logrus.FieldLogger
	clock      clock
}

// NewFamilyService creates a new family service
func NewFamilyService(familyRepo *repository.FamilyRepository, userRepo *repository.UserRepository, sessions SessionIssuer, logger logrus.FieldLogger) *FamilyService {
	return &FamilyService{
		familyRepo: familyRepo,
		userRepo:   userRepo,
		sessions:   sessions,
		logger:     logger,
		clock:      time.Now,
	}
}

// SetClock replaces the service's time source
func (s *FamilyService) SetClock(now func() time.Time) {
	s.clock = now
}

// CreateFamily creates a family with the user as admin. Users already in a
// family get ErrAlreadyInFamily.
func (s *FamilyService) CreateFamily(ctx context.Context, user *models.User, name string) (*Membership, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateName("name", name); err != nil {
		return nil, err
	}
	if user.HasFamily() {
		return nil, ErrAlreadyInFamily
	}

	family, err := s.familyRepo.CreateFamily(ctx, name, user.ID, s.clock.now())
	if errors.Is(err, repository.ErrUserHasFamily) {
		return nil, ErrAlreadyInFamily
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create family: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "family_id": family.ID}).Info("Family created")
	return s.membership(ctx, user.ID, family.ID)
}

// GetMyFamily returns the user's family and members, or a nil family and no
// members when the user has none
func (s *FamilyService) GetMyFamily(ctx context.Context, user *models.User) (*models.FamilyWithMembers, error) {
	result := &models.FamilyWithMembers{Members: []models.Member{}}
	if !user.HasFamily() {
		return result, nil
	}

	family, err := s.familyRepo.GetFamilyByID(ctx, *user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return result, nil
	}

	members, err := s.familyRepo.GetFamilyMembers(ctx, family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}

	result.Family = family
	result.Members = members
	return result, nil
}

// LeaveFamily clears the user's family and role. The family is kept even if
// it is left empty. Leaving without a family is a no-op.
func (s *FamilyService) LeaveFamily(ctx context.Context, user *models.User) error {
	if err := s.userRepo.ClearFamily(ctx, user.ID, s.clock.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to leave family: %w", err)
	}

	if user.HasFamily() {
		s.logger.WithFields(logrus.Fields{"user_id": user.ID, "family_id": *user.FamilyID}).Info("User left family")
	}
	return nil
}

// DeleteFamily removes the caller's family. Only the family admin may do this;
// every member is detached and the family's invites, lists and items are removed.
func (s *FamilyService) DeleteFamily(ctx context.Context, user *models.User) error {
	if !user.HasFamily() {
		return ErrNoFamily
	}
	if !user.IsFamilyAdmin() {
		return ErrForbidden
	}

	familyID := *user.FamilyID
	if err := s.familyRepo.DeleteFamily(ctx, familyID, s.clock.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoFamily
		}
		return fmt.Errorf("failed to delete family: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "family_id": familyID}).Info("Family deleted")
	return nil
}

// membership reloads the user after a membership change and reissues their credential
func (s *FamilyService) membership(ctx context.Context, userID, familyID int64) (*Membership, error) {
	return loadMembership(ctx, s.userRepo, s.familyRepo, s.sessions, userID, familyID)
}

func loadMembership(ctx context.Context, users *repository.UserRepository, families *repository.FamilyRepository, sessions SessionIssuer, userID, familyID int64) (*Membership, error) {
	user, err := users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	family, err := families.GetFamilyByID(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if family == nil {
		return nil, ErrNotFound
	}

	members, err := families.GetFamilyMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}

	session, err := sessions.IssueSession(user)
	if err != nil {
		return nil, err
	}

	return &Membership{Family: family, Members: members, Session: session}, nil
}
