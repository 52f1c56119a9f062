package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"familycart/internal/models"
	"familycart/internal/service"
)

// ItemHandler handles shopping item requests
type ItemHandler struct {
	listService *service.ListService
}

// NewItemHandler creates a new item handler
func NewItemHandler(listService *service.ListService) *ItemHandler {
	return &ItemHandler{listService: listService}
}

type addItemRequest struct {
	Title    string `json:"title"`
	Quantity string `json:"quantity"`
	Category string `json:"category"`
	Notes    string `json:"notes"`
}

// Add puts a new item on the family's active list
func (h *ItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := h.listService.AddItem(r.Context(), GetUserFromContext(r.Context()), models.ItemFields{
		Title:    req.Title,
		Quantity: req.Quantity,
		Category: req.Category,
		Notes:    req.Notes,
	})
	if err != nil {
		respondWithServiceError(w, r, err, withMessage(service.ErrNoFamily, ErrNoFamilySelected))
		return
	}

	writeJSON(w, http.StatusOK, newItemView(item))
}

// Update applies a partial update. Only title, quantity, category and notes
// are editable; null clears a field and other keys are ignored.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if !decodeJSON(w, r, &raw) {
		return
	}

	var update models.ItemUpdate
	for _, f := range []struct {
		key string
		dst **string
	}{
		{"title", &update.Title},
		{"quantity", &update.Quantity},
		{"category", &update.Category},
		{"notes", &update.Notes},
	} {
		value, present := raw[f.key]
		if !present {
			continue
		}
		var s *string
		if err := json.Unmarshal(value, &s); err != nil {
			respondWithError(w, r, http.StatusBadRequest, f.key+" must be a string", "", err)
			return
		}
		if s == nil {
			s = new(string)
		}
		*f.dst = s
	}

	item, err := h.listService.UpdateItem(r.Context(), GetUserFromContext(r.Context()), itemID, update)
	if err != nil {
		respondWithServiceError(w, r, err, withMessage(service.ErrNotFound, ErrItemNotFound))
		return
	}

	writeJSON(w, http.StatusOK, newItemView(item))
}

// Toggle flips an item between pending and done
func (h *ItemHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	status, err := h.listService.ToggleItem(r.Context(), GetUserFromContext(r.Context()), itemID)
	if err != nil {
		respondWithServiceError(w, r, err, withMessage(service.ErrNotFound, ErrItemNotFound))
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ID     int64             `json:"id"`
		Status models.ItemStatus `json:"status"`
	}{itemID, status})
}

// Delete removes an item from the family's lists
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	if err := h.listService.DeleteItem(r.Context(), GetUserFromContext(r.Context()), itemID); err != nil {
		respondWithServiceError(w, r, err, withMessage(service.ErrNotFound, ErrItemNotFound))
		return
	}

	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// itemIDParam parses the {id} route parameter; a malformed id is an unknown item
func itemIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, r, http.StatusNotFound, ErrItemNotFound, "", nil)
		return 0, false
	}
	return id, true
}
