package models

import "time"

// ItemStatus is the completion state of a shopping item
type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusDone    ItemStatus = "done"
)

// Toggled returns the opposite status
func (s ItemStatus) Toggled() ItemStatus {
	if s == StatusDone {
		return StatusPending
	}
	return StatusDone
}

// ShoppingList is a family's weekly list. At most one list per family is active.
type ShoppingList struct {
	ID         int64
	FamilyID   int64
	Title      string
	WeekStart  time.Time
	IsActive   bool
	ArchivedAt *time.Time
	CreatedAt  time.Time
}

// ShoppingItem represents an entry on a shopping list
type ShoppingItem struct {
	ID        int64
	ListID    int64
	Title     string
	Quantity  string
	Category  string
	Notes     string
	Status    ItemStatus
	CreatedBy *int64
	CreatedAt time.Time
}

// ItemFields holds the user-editable fields of an item
type ItemFields struct {
	Title    string
	Quantity string
	Category string
	Notes    string
}

// ItemUpdate is a partial update; nil fields are left unchanged
type ItemUpdate struct {
	Title    *string
	Quantity *string
	Category *string
	Notes    *string
}

// IsEmpty reports whether the update changes nothing
func (u ItemUpdate) IsEmpty() bool {
	return u.Title == nil && u.Quantity == nil && u.Category == nil && u.Notes == nil
}

// ArchivedList combines an inactive list with its frozen items
type ArchivedList struct {
	List  ShoppingList
	Items []ShoppingItem
}

// WeekStart returns midnight UTC on the Monday of the ISO week containing t
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}

// ListTitle is the default title of a list created at t
func ListTitle(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
