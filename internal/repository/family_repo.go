package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familycart/internal/database"
	"familycart/internal/models"
)

// FamilyRepository handles database operations for families and their membership
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamily creates a family and makes the creator its admin in one
// transaction. ErrUserHasFamily is returned, and nothing is written, when the
// creator already belongs to a family.
func (r *FamilyRepository) CreateFamily(ctx context.Context, name string, creatorUserID int64, now time.Time) (*models.Family, error) {
	var familyID int64

	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		var err error
		familyID, err = tx.ExecReturningID(ctx, "INSERT INTO families (name, created_at) VALUES (?, ?)", name, now)
		if err != nil {
			return fmt.Errorf("failed to create family: %w", err)
		}

		query := `UPDATE users SET family_id = ?, role = ?, updated_at = ? WHERE id = ? AND family_id IS NULL`
		result, err := tx.ExecContext(ctx, query, familyID, string(models.RoleAdmin), now, creatorUserID)
		if err != nil {
			return fmt.Errorf("failed to add family admin: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to add family admin: %w", err)
		} else if n == 0 {
			return ErrUserHasFamily
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.Family{
		ID:        familyID,
		Name:      name,
		CreatedAt: now,
	}, nil
}

// GetFamilyByID retrieves a family by ID
func (r *FamilyRepository) GetFamilyByID(ctx context.Context, familyID int64) (*models.Family, error) {
	query := "SELECT id, name, created_at FROM families WHERE id = ?"
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, query, familyID).Scan(
		&family.ID,
		&family.Name,
		&family.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}

	return family, nil
}

// GetFamilyMembers lists the users currently in a family, oldest account first
func (r *FamilyRepository) GetFamilyMembers(ctx context.Context, familyID int64) ([]models.Member, error) {
	query := `
		SELECT id, email, full_name, role
		FROM users
		WHERE family_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family members: %w", err)
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		var role string
		if err := rows.Scan(&m.ID, &m.Email, &m.FullName, &role); err != nil {
			return nil, fmt.Errorf("failed to scan family member: %w", err)
		}
		m.Role = models.Role(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate family members: %w", err)
	}

	return members, nil
}

// DeleteFamily detaches every member and deletes the family. Invites, lists
// and items go with it through the foreign key cascades.
func (r *FamilyRepository) DeleteFamily(ctx context.Context, familyID int64, now time.Time) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `UPDATE users SET family_id = NULL, role = ?, updated_at = ? WHERE family_id = ?`
		if _, err := tx.ExecContext(ctx, query, string(models.RoleMember), now, familyID); err != nil {
			return fmt.Errorf("failed to detach family members: %w", err)
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM families WHERE id = ?", familyID)
		if err != nil {
			return fmt.Errorf("failed to delete family: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to delete family: %w", err)
		} else if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
