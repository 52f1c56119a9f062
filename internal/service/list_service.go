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

var ErrNoFields = errors.New("no fields to update")

// ActiveList is the family's current list with its items
type ActiveList struct {
	ListID int64
	Items  []models.ShoppingItem
}

// ListService handles the weekly shopping list and its items
type ListService struct {
	listRepo *repository.ListRepository
	logger   logrus.FieldLogger
	clock    clock
}

// NewListService creates a new list service
func NewListService(listRepo *repository.ListRepository, logger logrus.FieldLogger) *ListService {
	return &ListService{
		listRepo: listRepo,
		logger:   logger,
		clock:    time.Now,
	}
}

// SetClock replaces the service's time source
func (s *ListService) SetClock(now func() time.Time) {
	s.clock = now
}

// GetActiveList returns the family's active list, creating it on first use
func (s *ListService) GetActiveList(ctx context.Context, user *models.User) (*ActiveList, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}

	list, err := s.listRepo.EnsureActiveList(ctx, *user.FamilyID, s.clock.now())
	if err != nil {
		return nil, err
	}

	items, err := s.listRepo.GetListItems(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	return &ActiveList{ListID: list.ID, Items: items}, nil
}

// AddItem adds a pending item to the family's active list
func (s *ListService) AddItem(ctx context.Context, user *models.User, fields models.ItemFields) (*models.ShoppingItem, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}

	fields.Title = strings.TrimSpace(fields.Title)
	if err := validation.Collect(
		validation.ValidateItemTitle(fields.Title),
		validation.ValidateText("quantity", fields.Quantity),
		validation.ValidateText("category", fields.Category),
		validation.ValidateText("notes", fields.Notes),
	); err != nil {
		return nil, err
	}

	now := s.clock.now()
	list, err := s.listRepo.EnsureActiveList(ctx, *user.FamilyID, now)
	if err != nil {
		return nil, err
	}

	item, err := s.listRepo.AddItem(ctx, list.ID, fields, user.ID, now)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem applies a partial update to one of the family's items
func (s *ListService) UpdateItem(ctx context.Context, user *models.User, itemID int64, update models.ItemUpdate) (*models.ShoppingItem, error) {
	if update.IsEmpty() {
		return nil, ErrNoFields
	}

	var checks []error
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		update.Title = &title
		checks = append(checks, validation.ValidateItemTitle(title))
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"quantity", update.Quantity},
		{"category", update.Category},
		{"notes", update.Notes},
	} {
		if f.value != nil {
			checks = append(checks, validation.ValidateText(f.name, *f.value))
		}
	}
	if err := validation.Collect(checks...); err != nil {
		return nil, err
	}

	if !user.HasFamily() {
		return nil, ErrNotFound
	}

	item, err := s.listRepo.UpdateItem(ctx, itemID, *user.FamilyID, update)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrNotFound
	}
	return item, nil
}

// ToggleItem flips an item between pending and done
func (s *ListService) ToggleItem(ctx context.Context, user *models.User, itemID int64) (models.ItemStatus, error) {
	if !user.HasFamily() {
		return "", ErrNotFound
	}

	status, ok, err := s.listRepo.ToggleItem(ctx, itemID, *user.FamilyID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound
	}
	return status, nil
}

// DeleteItem removes one of the family's items
func (s *ListService) DeleteItem(ctx context.Context, user *models.User, itemID int64) error {
	if !user.HasFamily() {
		return ErrNotFound
	}

	ok, err := s.listRepo.DeleteItem(ctx, itemID, *user.FamilyID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// ResetWeek archives the active list. The next list access starts a new one.
func (s *ListService) ResetWeek(ctx context.Context, user *models.User) error {
	if !user.HasFamily() {
		return ErrNoFamily
	}

	archived, err := s.listRepo.ArchiveActiveList(ctx, *user.FamilyID, s.clock.now())
	if err != nil {
		return fmt.Errorf("failed to reset week: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"family_id": *user.FamilyID,
		"archived":  archived,
	}).Info("Weekly reset")
	return nil
}

// ListArchives returns the family's archived lists, most recent first
func (s *ListService) ListArchives(ctx context.Context, user *models.User) ([]models.ArchivedList, error) {
	if !user.HasFamily() {
		return nil, ErrNoFamily
	}
	return s.listRepo.GetArchivedLists(ctx, *user.FamilyID)
}
