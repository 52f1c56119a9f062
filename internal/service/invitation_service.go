package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"familycart/internal/metrics"
	"familycart/internal/models"
	"familycart/internal/repository"
	"familycart/internal/validation"
)

// InviteDuration is how long an issued invite can be redeemed
const InviteDuration = 7 * 24 * time.Hour

var ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

// IssuedInvite is a new invite together with its shareable link
type IssuedInvite struct {
	Invite *models.Invite
	Link   string
}

// InvitationService issues, lists and redeems family invites
type InvitationService struct {
	inviteRepo *repository.InvitationRepository
	userRepo   *repository.UserRepository
	familyRepo *repository.FamilyRepository
	sessions   SessionIssuer
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	linkBase   string
	clock      clock
}

// NewInvitationService creates a new invitation service. Links are built as
// clientOrigin + "/invite/" + token.
func NewInvitationService(
	inviteRepo *repository.InvitationRepository,
	userRepo *repository.UserRepository,
	familyRepo *repository.FamilyRepository,
	sessions SessionIssuer,
	m *metrics.Metrics,
	logger logrus.FieldLogger,
	clientOrigin string,
) *InvitationService {
	return &InvitationService{
		inviteRepo: inviteRepo,
		userRepo:   userRepo,
		familyRepo: familyRepo,
		sessions:   sessions,
		metrics:    m,
		logger:     logger,
		linkBase:   strings.TrimRight(clientOrigin, "/") + "/invite/",
		clock:      time.Now,
	}
}

// SetClock replaces the service's time source
func (s *InvitationService) SetClock(now func() time.Time) {
	s.clock = now
}

// IssueInvite creates an invite to the user's family. Any member may invite.
// A blank email produces a bearer invite usable by whoever holds the link.
func (s *InvitationService) IssueInvite(ctx context.Context, user *models.User, email string) (*IssuedInvite, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}

	email = strings.TrimSpace(email)
	if email != "" {
		if err := validation.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	now := s.clock.now()
	invite, err := s.inviteRepo.CreateInvitation(ctx, *user.FamilyID, email, user.ID, now, now.Add(InviteDuration))
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	s.metrics.InviteIssued()
	s.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"family_id": invite.FamilyID,
		"targeted":  invite.IsTargeted(),
	}).Info("Invite issued")

	return &IssuedInvite{Invite: invite, Link: s.linkBase + invite.Token}, nil
}

// ListMyInvites returns redeemable invites addressed to the user's email
func (s *InvitationService) ListMyInvites(ctx context.Context, user *models.User) ([]models.Invite, error) {
	if user.Email == "" {
		return []models.Invite{}, nil
	}
	invites, err := s.inviteRepo.ListIssuedForEmail(ctx, user.Email, s.clock.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// ListSentInvites returns redeemable invites of the user's current family, newest first
func (s *InvitationService) ListSentInvites(ctx context.Context, user *models.User) ([]models.Invite, error) {
	if !user.HasFamily() {
		return []models.Invite{}, nil
	}
	invites, err := s.inviteRepo.ListIssuedForFamily(ctx, *user.FamilyID, s.clock.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	return invites, nil
}

// AcceptInvite redeems token for the user and returns the joined family with
// a reissued credential. Each token can be redeemed once.
func (s *InvitationService) AcceptInvite(ctx context.Context, user *models.User, token string) (*Membership, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.metrics.InviteRejected(metrics.ReasonInvalidToken)
		return nil, ErrInvalidOrExpiredToken
	}

	invite, err := s.inviteRepo.AcceptInvitation(ctx, token, user.ID, s.clock.now())
	switch {
	case errors.Is(err, repository.ErrInviteUnavailable):
		s.metrics.InviteRejected(metrics.ReasonInvalidToken)
		return nil, ErrInvalidOrExpiredToken
	case errors.Is(err, repository.ErrInviteEmailMismatch):
		s.metrics.InviteRejected(metrics.ReasonEmailMismatch)
		return nil, ErrInvalidOrExpiredToken
	case errors.Is(err, repository.ErrUserHasFamily):
		s.metrics.InviteRejected(metrics.ReasonHasFamily)
		return nil, ErrAlreadyInFamily
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrUnauthorized
	case err != nil:
		return nil, fmt.Errorf("failed to accept invite: %w", err)
	}

	s.metrics.InviteAccepted()
	s.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"family_id": invite.FamilyID,
	}).Info("Invite accepted")

	return loadMembership(ctx, s.userRepo, s.familyRepo, s.sessions, user.ID, invite.FamilyID)
}

// PurgeExpired deletes invites that expired without being accepted
func (s *InvitationService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.inviteRepo.DeleteExpired(ctx, s.clock.now())
	if err != nil {
		return 0, err
	}
	s.metrics.InvitesPurged(n)
	return n, nil
}

// RunCleanup purges expired invites every interval until ctx is done
func (s *InvitationService) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				s.logger.WithError(err).Error("Error cleaning up expired invites")
				continue
			}
			s.logger.WithField("count", n).Info("Expired invites cleaned up")
		}
	}
}
