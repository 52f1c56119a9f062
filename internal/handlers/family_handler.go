package handlers

import (
	"net/http"

	"familycart/internal/service"
)

// FamilyHandler handles family membership requests
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// GetMine returns the caller's family and members
func (h *FamilyHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())

	result, err := h.familyService.GetMyFamily(r.Context(), user)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	resp := MyFamilyResponse{Members: newMemberViews(result.Members)}
	if result.Family != nil {
		family := newFamilyView(result.Family)
		resp.Family = &family
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create makes a new family with the caller as admin
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	membership, err := h.familyService.CreateFamily(r.Context(), GetUserFromContext(r.Context()), req.Name)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newMembershipResponse(membership))
}

// Leave removes the caller from their family
func (h *FamilyHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.familyService.LeaveFamily(r.Context(), GetUserFromContext(r.Context())); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// Delete removes the caller's family. Admin only.
func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.familyService.DeleteFamily(r.Context(), GetUserFromContext(r.Context())); err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
