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

const userColumns = `id, email, password_hash, full_name, family_id, role, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a new user without a family. The email is stored
// normalized so uniqueness is case-insensitive.
func (r *UserRepository) CreateUser(ctx context.Context, email, passwordHash, fullName string, now time.Time) (*models.User, error) {
	email = models.NormalizeEmail(email)

	query := `
		INSERT INTO users (email, password_hash, full_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, email, passwordHash, fullName, string(models.RoleMember), now, now)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         models.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)))
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// ClearFamily removes the user from their family and resets the role.
// The family itself is kept even when it becomes empty.
func (r *UserRepository) ClearFamily(ctx context.Context, userID int64, now time.Time) error {
	query := `UPDATE users SET family_id = NULL, role = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query, string(models.RoleMember), now, userID)
	if err != nil {
		return fmt.Errorf("failed to leave family: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var familyID sql.NullInt64
	var role string

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&familyID,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if familyID.Valid {
		id := familyID.Int64
		user.FamilyID = &id
	}
	user.Role = models.Role(role)

	return user, nil
}
