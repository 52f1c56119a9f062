package handlers

import (
	"net/http"

	"familycart/internal/service"
)

// ListHandler handles the weekly list and its archives
type ListHandler struct {
	listService *service.ListService
}

// NewListHandler creates a new list handler
func NewListHandler(listService *service.ListService) *ListHandler {
	return &ListHandler{listService: listService}
}

// Active returns the family's active list, starting one if needed
func (h *ListHandler) Active(w http.ResponseWriter, r *http.Request) {
	active, err := h.listService.GetActiveList(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActiveListResponse{ListID: active.ListID, Items: newItemViews(active.Items)})
}

// WeeklyReset archives the active list
func (h *ListHandler) WeeklyReset(w http.ResponseWriter, r *http.Request) {
	if err := h.listService.ResetWeek(r.Context(), GetUserFromContext(r.Context())); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Archives returns the family's past lists with their items
func (h *ListHandler) Archives(w http.ResponseWriter, r *http.Request) {
	archives, err := h.listService.ListArchives(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]ArchiveView{"archives": newArchiveViews(archives)})
}
