package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"familycart/internal/database"
)

// BackupVersion is written into every export and checked on import
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Families   []FamilyBackup `json:"families"`
	Users      []UserBackup   `json:"users"`
	Invites    []InviteBackup `json:"invites"`
	Lists      []ListBackup   `json:"lists"`
	Items      []ItemBackup   `json:"items"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	FullName     string    `json:"full_name"`
	FamilyID     *int64    `json:"family_id"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InviteBackup represents an invite record for backup
type InviteBackup struct {
	ID         int64      `json:"id"`
	Token      string     `json:"token"`
	FamilyID   int64      `json:"family_id"`
	Email      *string    `json:"email"`
	CreatedBy  *int64     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedBy *int64     `json:"accepted_by"`
	AcceptedAt *time.Time `json:"accepted_at"`
}

// ListBackup represents a shopping list for backup
type ListBackup struct {
	ID         int64      `json:"id"`
	FamilyID   int64      `json:"family_id"`
	Title      string     `json:"title"`
	WeekStart  string     `json:"week_start"`
	IsActive   bool       `json:"is_active"`
	ArchivedAt *time.Time `json:"archived_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ItemBackup represents a shopping item for backup
type ItemBackup struct {
	ID        int64     `json:"id"`
	ListID    int64     `json:"list_id"`
	Title     string    `json:"title"`
	Quantity  string    `json:"quantity"`
	Category  string    `json:"category"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedBy *int64    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// tables in foreign key order; imports walk it forwards and clears backwards
var backupTables = []string{"families", "users", "invites", "shopping_lists", "shopping_items"}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger logrus.FieldLogger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger logrus.FieldLogger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export writes a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}

	s.logger.WithField("path", outputPath).Info("Database exported")
	return nil
}

// ExportToWriter encodes a complete backup of the database as JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	backup := &BackupData{
		Version:    BackupVersion,
		ExportedAt: time.Now().UTC(),
		Families:   []FamilyBackup{},
		Users:      []UserBackup{},
		Invites:    []InviteBackup{},
		Lists:      []ListBackup{},
		Items:      []ItemBackup{},
	}

	steps := []struct {
		name string
		fn   func(context.Context, *BackupData) error
	}{
		{"families", s.exportFamilies},
		{"users", s.exportUsers},
		{"invites", s.exportInvites},
		{"lists", s.exportLists},
		{"items", s.exportItems},
	}
	for _, step := range steps {
		if err := step.fn(ctx, backup); err != nil {
			return fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"families": len(backup.Families),
		"users":    len(backup.Users),
		"invites":  len(backup.Invites),
		"lists":    len(backup.Lists),
		"items":    len(backup.Items),
	}).Info("Export complete")
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	s.logger.WithField("path", inputPath).Info("Starting database import")
	return s.ImportFromReader(ctx, file, clear)
}

// ImportFromReader restores a backup inside one transaction, optionally
// clearing existing data first, then realigns id sequences
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.logger.WithField("exported_at", backup.ExportedAt).Info("Importing backup")

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		if clear {
			for i := len(backupTables) - 1; i >= 0; i-- {
				if _, err := tx.ExecContext(ctx, "DELETE FROM "+backupTables[i]); err != nil {
					return fmt.Errorf("failed to clear %s: %w", backupTables[i], err)
				}
			}
		}

		for _, f := range backup.Families {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO families (id, name, created_at) VALUES (?, ?, ?)",
				f.ID, f.Name, f.CreatedAt); err != nil {
				return fmt.Errorf("failed to import family %d: %w", f.ID, err)
			}
		}

		for _, u := range backup.Users {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO users (id, email, password_hash, full_name, family_id, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
				u.ID, u.Email, u.PasswordHash, u.FullName, nullableInt(u.FamilyID), u.Role, u.CreatedAt, u.UpdatedAt); err != nil {
				return fmt.Errorf("failed to import user %d: %w", u.ID, err)
			}
		}

		for _, i := range backup.Invites {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO invites (id, token, family_id, email, created_by, created_at, expires_at, accepted_by, accepted_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				i.ID, i.Token, i.FamilyID, nullableString(i.Email), nullableInt(i.CreatedBy), i.CreatedAt, i.ExpiresAt,
				nullableInt(i.AcceptedBy), nullableTime(i.AcceptedAt)); err != nil {
				return fmt.Errorf("failed to import invite %d: %w", i.ID, err)
			}
		}

		for _, l := range backup.Lists {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO shopping_lists (id, family_id, title, week_start, is_active, archived_at, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
				l.ID, l.FamilyID, l.Title, l.WeekStart, l.IsActive, nullableTime(l.ArchivedAt), l.CreatedAt); err != nil {
				return fmt.Errorf("failed to import list %d: %w", l.ID, err)
			}
		}

		for _, it := range backup.Items {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO shopping_items (id, list_id, title, quantity, category, notes, status, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
				it.ID, it.ListID, it.Title, it.Quantity, it.Category, it.Notes, it.Status, nullableInt(it.CreatedBy), it.CreatedAt); err != nil {
				return fmt.Errorf("failed to import item %d: %w", it.ID, err)
			}
		}

		for _, table := range backupTables {
			if query := tx.GetDialect().ResetSequenceQuery(table); query != "" {
				if _, err := tx.ExecContext(ctx, query); err != nil {
					return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"families": len(backup.Families),
		"users":    len(backup.Users),
		"invites":  len(backup.Invites),
		"lists":    len(backup.Lists),
		"items":    len(backup.Items),
	}).Info("Database import completed successfully")
	return nil
}

func (s *BackupService) exportFamilies(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM families ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportUsers(ctx context.Context, backup *BackupData) error {
	query := "SELECT id, email, password_hash, full_name, family_id, role, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		var familyID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &familyID, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		u.FamilyID = intPtr(familyID)
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportInvites(ctx context.Context, backup *BackupData) error {
	query := "SELECT id, token, family_id, email, created_by, created_at, expires_at, accepted_by, accepted_at FROM invites ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var i InviteBackup
		var email sql.NullString
		var createdBy, acceptedBy sql.NullInt64
		var acceptedAt sql.NullTime
		if err := rows.Scan(&i.ID, &i.Token, &i.FamilyID, &email, &createdBy, &i.CreatedAt, &i.ExpiresAt, &acceptedBy, &acceptedAt); err != nil {
			return err
		}
		if email.Valid {
			i.Email = &email.String
		}
		i.CreatedBy = intPtr(createdBy)
		i.AcceptedBy = intPtr(acceptedBy)
		i.AcceptedAt = timePtr(acceptedAt)
		backup.Invites = append(backup.Invites, i)
	}
	return rows.Err()
}

func (s *BackupService) exportLists(ctx context.Context, backup *BackupData) error {
	query := "SELECT id, family_id, title, week_start, is_active, archived_at, created_at FROM shopping_lists ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l ListBackup
		var weekStart time.Time
		var archivedAt sql.NullTime
		if err := rows.Scan(&l.ID, &l.FamilyID, &l.Title, &weekStart, &l.IsActive, &archivedAt, &l.CreatedAt); err != nil {
			return err
		}
		l.WeekStart = weekStart.Format(time.DateOnly)
		l.ArchivedAt = timePtr(archivedAt)
		backup.Lists = append(backup.Lists, l)
	}
	return rows.Err()
}

func (s *BackupService) exportItems(ctx context.Context, backup *BackupData) error {
	query := "SELECT id, list_id, title, quantity, category, notes, status, created_by, created_at FROM shopping_items ORDER BY id"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var it ItemBackup
		var createdBy sql.NullInt64
		if err := rows.Scan(&it.ID, &it.ListID, &it.Title, &it.Quantity, &it.Category, &it.Notes, &it.Status, &createdBy, &it.CreatedAt); err != nil {
			return err
		}
		it.CreatedBy = intPtr(createdBy)
		backup.Items = append(backup.Items, it)
	}
	return rows.Err()
}

func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(v *time.Time) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
