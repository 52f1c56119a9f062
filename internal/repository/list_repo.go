package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"familycart/internal/database"
	"familycart/internal/models"
)

const (
	listColumns = `id, family_id, title, week_start, is_active, archived_at, created_at`
	itemColumns = `id, list_id, title, quantity, category, notes, status, created_by, created_at`

	// ownedByFamily restricts an item statement to items on the given family's lists
	ownedByFamily = `list_id IN (SELECT id FROM shopping_lists WHERE family_id = ?)`
)

// ListRepository handles database operations for shopping lists and their items
type ListRepository struct {
	db *database.DB
}

// NewListRepository creates a new list repository
func NewListRepository(db *database.DB) *ListRepository {
	return &ListRepository{db: db}
}

// ensureAttempts bounds how often EnsureActiveList retries after a concurrent
// weekly reset archived the list between its insert and re-select
const ensureAttempts = 5

// GetActiveList returns the family's active list, or nil when it has none
func (r *ListRepository) GetActiveList(ctx context.Context, familyID int64) (*models.ShoppingList, error) {
	query := `SELECT ` + listColumns + ` FROM shopping_lists WHERE family_id = ? AND is_active = ?`
	list, err := scanList(r.db.QueryRowContext(ctx, query, familyID, true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active list: %w", err)
	}
	return list, nil
}

// EnsureActiveList returns the family's active list, creating it if needed.
// Concurrent callers converge on one row: the insert is skipped when the
// one-active-list-per-family index already holds a row.
func (r *ListRepository) EnsureActiveList(ctx context.Context, familyID int64, now time.Time) (*models.ShoppingList, error) {
	query := r.db.Dialect.InsertIgnore(`
		INSERT INTO shopping_lists (family_id, title, week_start, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	// week_start is bound as a date literal so no session time zone can shift it
	weekStart := models.WeekStart(now).Format(time.DateOnly)

	for attempt := 0; attempt < ensureAttempts; attempt++ {
		list, err := r.GetActiveList(ctx, familyID)
		if err != nil || list != nil {
			return list, err
		}

		if _, err := r.db.ExecContext(ctx, query, familyID, models.ListTitle(now), weekStart, true, now); err != nil {
			return nil, fmt.Errorf("failed to create active list: %w", err)
		}

		list, err = r.GetActiveList(ctx, familyID)
		if err != nil || list != nil {
			return list, err
		}
	}
	return nil, fmt.Errorf("failed to create active list for family %d: archived concurrently %d times", familyID, ensureAttempts)
}

// ArchiveActiveList deactivates the family's active list. It reports false
// when there was nothing to archive. No replacement list is created.
func (r *ListRepository) ArchiveActiveList(ctx context.Context, familyID int64, now time.Time) (bool, error) {
	query := `UPDATE shopping_lists SET is_active = ?, archived_at = ? WHERE family_id = ? AND is_active = ?`
	result, err := r.db.ExecContext(ctx, query, false, now, familyID, true)
	if err != nil {
		return false, fmt.Errorf("failed to archive list: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to archive list: %w", err)
	}
	return n > 0, nil
}

// GetArchivedLists returns the family's inactive lists with their items,
// most recently archived first
func (r *ListRepository) GetArchivedLists(ctx context.Context, familyID int64) ([]models.ArchivedList, error) {
	query := `
		SELECT ` + listColumns + `
		FROM shopping_lists
		WHERE family_id = ? AND is_active = ?
		ORDER BY COALESCE(archived_at, week_start) DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, familyID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get archived lists: %w", err)
	}
	defer rows.Close()

	archives := []models.ArchivedList{}
	index := make(map[int64]int)
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		index[list.ID] = len(archives)
		archives = append(archives, models.ArchivedList{List: *list, Items: []models.ShoppingItem{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archived lists: %w", err)
	}
	if len(archives) == 0 {
		return archives, nil
	}

	itemQuery := `
		SELECT i.id, i.list_id, i.title, i.quantity, i.category, i.notes, i.status, i.created_by, i.created_at
		FROM shopping_items i
		JOIN shopping_lists l ON l.id = i.list_id
		WHERE l.family_id = ? AND l.is_active = ?
		ORDER BY i.created_at, i.id
	`
	items, err := r.queryItems(ctx, itemQuery, familyID, false)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if i, ok := index[item.ListID]; ok {
			archives[i].Items = append(archives[i].Items, item)
		}
	}

	return archives, nil
}

// AddItem inserts a pending item on listID
func (r *ListRepository) AddItem(ctx context.Context, listID int64, fields models.ItemFields, createdBy int64, now time.Time) (*models.ShoppingItem, error) {
	query := `
		INSERT INTO shopping_items (list_id, title, quantity, category, notes, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		listID, fields.Title, fields.Quantity, fields.Category, fields.Notes,
		string(models.StatusPending), createdBy, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}

	return &models.ShoppingItem{
		ID:        id,
		ListID:    listID,
		Title:     fields.Title,
		Quantity:  fields.Quantity,
		Category:  fields.Category,
		Notes:     fields.Notes,
		Status:    models.StatusPending,
		CreatedBy: &createdBy,
		CreatedAt: now,
	}, nil
}

// GetListItems returns a list's items in creation order
func (r *ListRepository) GetListItems(ctx context.Context, listID int64) ([]models.ShoppingItem, error) {
	query := `SELECT ` + itemColumns + ` FROM shopping_items WHERE list_id = ? ORDER BY created_at, id`
	return r.queryItems(ctx, query, listID)
}

// GetFamilyItem returns an item if it sits on one of the family's lists, or nil
func (r *ListRepository) GetFamilyItem(ctx context.Context, itemID, familyID int64) (*models.ShoppingItem, error) {
	return familyItem(ctx, r.db, itemID, familyID)
}

func familyItem(ctx context.Context, q database.DBTX, itemID, familyID int64) (*models.ShoppingItem, error) {
	query := `SELECT ` + itemColumns + ` FROM shopping_items WHERE id = ? AND ` + ownedByFamily
	item, err := scanItem(q.QueryRowContext(ctx, query, itemID, familyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// UpdateItem applies the non-nil fields of update to a family's item and
// returns the stored result, or nil when the item does not exist for that family.
func (r *ListRepository) UpdateItem(ctx context.Context, itemID, familyID int64, update models.ItemUpdate) (*models.ShoppingItem, error) {
	var sets []string
	var args []interface{}
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"title", update.Title},
		{"quantity", update.Quantity},
		{"category", update.Category},
		{"notes", update.Notes},
	} {
		if f.value != nil {
			sets = append(sets, f.column+" = ?")
			args = append(args, *f.value)
		}
	}
	if len(sets) == 0 {
		return nil, errors.New("no fields to update")
	}

	var item *models.ShoppingItem
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `UPDATE shopping_items SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND ` + ownedByFamily
		result, err := tx.ExecContext(ctx, query, append(args, itemID, familyID)...)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		} else if n == 0 {
			return nil
		}

		item, err = familyItem(ctx, tx, itemID, familyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ToggleItem flips a family's item between pending and done and returns the
// new status. ok is false when the item does not exist for that family.
func (r *ListRepository) ToggleItem(ctx context.Context, itemID, familyID int64) (status models.ItemStatus, ok bool, err error) {
	err = r.db.WithTx(ctx, func(tx *database.Tx) error {
		query := `
			UPDATE shopping_items
			SET status = CASE WHEN status = ? THEN ? ELSE ? END
			WHERE id = ? AND ` + ownedByFamily
		result, err := tx.ExecContext(ctx, query,
			string(models.StatusDone), string(models.StatusPending), string(models.StatusDone), itemID, familyID)
		if err != nil {
			return fmt.Errorf("failed to toggle item: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to toggle item: %w", err)
		} else if n == 0 {
			return nil
		}

		var s string
		if err := tx.QueryRowContext(ctx, "SELECT status FROM shopping_items WHERE id = ?", itemID).Scan(&s); err != nil {
			return fmt.Errorf("failed to reload item status: %w", err)
		}
		status, ok = models.ItemStatus(s), true
		return nil
	})
	return status, ok, err
}

// DeleteItem removes a family's item. It reports false when no such item exists for that family.
func (r *ListRepository) DeleteItem(ctx context.Context, itemID, familyID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM shopping_items WHERE id = ? AND `+ownedByFamily, itemID, familyID)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	return n > 0, nil
}

func (r *ListRepository) queryItems(ctx context.Context, query string, args ...interface{}) ([]models.ShoppingItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	items := []models.ShoppingItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func scanList(row rowScanner) (*models.ShoppingList, error) {
	var list models.ShoppingList
	var archivedAt sql.NullTime

	err := row.Scan(&list.ID, &list.FamilyID, &list.Title, &list.WeekStart, &list.IsActive, &archivedAt, &list.CreatedAt)
	if err != nil {
		return nil, err
	}
	if archivedAt.Valid {
		t := archivedAt.Time
		list.ArchivedAt = &t
	}
	return &list, nil
}

func scanItem(row rowScanner) (*models.ShoppingItem, error) {
	var item models.ShoppingItem
	var status string
	var createdBy sql.NullInt64

	err := row.Scan(&item.ID, &item.ListID, &item.Title, &item.Quantity, &item.Category,
		&item.Notes, &status, &createdBy, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	item.Status = models.ItemStatus(status)
	if createdBy.Valid {
		id := createdBy.Int64
		item.CreatedBy = &id
	}
	return &item, nil
}
