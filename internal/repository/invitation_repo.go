package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"familycart/internal/database"
	"familycart/internal/models"
)

// InviteTokenBytes is the amount of randomness in an invite token; the hex
// rendering is twice as long.
const InviteTokenBytes = 12

const inviteColumns = `id, token, family_id, email, created_by, created_at, expires_at, accepted_by, accepted_at`

type InvitationRepository struct {
	db *database.DB
}

func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateInviteToken generates a random invite token
func GenerateInviteToken() (string, error) {
	bytes := make([]byte, InviteTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateInvitation stores a new invite for familyID. An empty email makes a
// bearer invite.
func (r *InvitationRepository) CreateInvitation(ctx context.Context, familyID int64, email string, createdBy int64, now, expiresAt time.Time) (*models.Invite, error) {
	token, err := GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite token: %w", err)
	}

	email = models.NormalizeEmail(email)
	var emailArg interface{}
	if email != "" {
		emailArg = email
	}

	query := `
		INSERT INTO invites (token, family_id, email, created_by, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, token, familyID, emailArg, createdBy, now, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	return &models.Invite{
		ID:        id,
		Token:     token,
		FamilyID:  familyID,
		Email:     email,
		CreatedBy: &createdBy,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

// GetInvitationByToken retrieves an invite in any state
func (r *InvitationRepository) GetInvitationByToken(ctx context.Context, token string) (*models.Invite, error) {
	query := `SELECT ` + inviteColumns + ` FROM invites WHERE token = ?`
	invite, err := scanInvite(r.db.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// ListIssuedForEmail returns unaccepted, unexpired invites addressed to email, newest first
func (r *InvitationRepository) ListIssuedForEmail(ctx context.Context, email string, now time.Time) ([]models.Invite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE email = ? AND accepted_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC, id DESC
	`
	return r.queryInvites(ctx, query, models.NormalizeEmail(email), now)
}

// ListIssuedForFamily returns unaccepted, unexpired invites owned by a family, newest first
func (r *InvitationRepository) ListIssuedForFamily(ctx context.Context, familyID int64, now time.Time) ([]models.Invite, error) {
	query := `
		SELECT ` + inviteColumns + `
		FROM invites
		WHERE family_id = ? AND accepted_at IS NULL AND expires_at > ?
		ORDER BY created_at DESC, id DESC
	`
	return r.queryInvites(ctx, query, familyID, now)
}

// AcceptInvitation redeems token for userID in a single transaction:
//   - the invite must be issued (unaccepted and unexpired), else ErrInviteUnavailable
//   - a targeted invite must match the user's email, else ErrInviteEmailMismatch
//   - the user must not already have a family, else ErrUserHasFamily
//
// Both writes are conditional, so of two concurrent calls for the same token
// exactly one succeeds.
func (r *InvitationRepository) AcceptInvitation(ctx context.Context, token string, userID int64, now time.Time) (*models.Invite, error) {
	var invite *models.Invite

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			SELECT ` + inviteColumns + `
			FROM invites
			WHERE token = ? AND accepted_at IS NULL AND expires_at > ?
		`
		var err error
		invite, err = scanInvite(tx.QueryRowContext(ctx, query, token, now))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInviteUnavailable
		}
		if err != nil {
			return fmt.Errorf("failed to get invite: %w", err)
		}

		var email string
		var familyID sql.NullInt64
		err = tx.QueryRowContext(ctx, "SELECT email, family_id FROM users WHERE id = ?", userID).Scan(&email, &familyID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		if !invite.RedeemableBy(email) {
			return ErrInviteEmailMismatch
		}
		if familyID.Valid {
			return ErrUserHasFamily
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE invites SET accepted_by = ?, accepted_at = ? WHERE id = ? AND accepted_at IS NULL AND expires_at > ?`,
			userID, now, invite.ID, now)
		if err != nil {
			return fmt.Errorf("failed to mark invite accepted: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to mark invite accepted: %w", err)
		} else if n == 0 {
			return ErrInviteUnavailable
		}

		result, err = tx.ExecContext(ctx,
			`UPDATE users SET family_id = ?, role = ?, updated_at = ? WHERE id = ? AND family_id IS NULL`,
			invite.FamilyID, string(models.RoleMember), now, userID)
		if err != nil {
			return fmt.Errorf("failed to join family: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to join family: %w", err)
		} else if n == 0 {
			return ErrUserHasFamily
		}

		invite.AcceptedBy = &userID
		invite.AcceptedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invite, nil
}

// DeleteExpired removes never-accepted invites that expired at or before cutoff
func (r *InvitationRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM invites WHERE accepted_at IS NULL AND expires_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invites: %w", err)
	}
	return result.RowsAffected()
}

func (r *InvitationRepository) queryInvites(ctx context.Context, query string, args ...interface{}) ([]models.Invite, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites: %w", err)
	}
	defer rows.Close()

	invites := []models.Invite{}
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invites = append(invites, *invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}

	return invites, nil
}

func scanInvite(row rowScanner) (*models.Invite, error) {
	var inv models.Invite
	var email sql.NullString
	var createdBy, acceptedBy sql.NullInt64
	var acceptedAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.Token, &inv.FamilyID, &email, &createdBy,
		&inv.CreatedAt, &inv.ExpiresAt, &acceptedBy, &acceptedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Email = email.String
	if createdBy.Valid {
		id := createdBy.Int64
		inv.CreatedBy = &id
	}
	if acceptedBy.Valid {
		id := acceptedBy.Int64
		inv.AcceptedBy = &id
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}

	return &inv, nil
}
