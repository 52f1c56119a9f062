package handlers

import (
	"net/http"

	"familycart/internal/service"
)

// InviteHandler handles invite issue, listing and redemption
type InviteHandler struct {
	invitationService *service.InvitationService
}

// NewInviteHandler creates a new invite handler
func NewInviteHandler(invitationService *service.InvitationService) *InviteHandler {
	return &InviteHandler{invitationService: invitationService}
}

// Issue creates an invite to the caller's family
func (h *InviteHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	issued, err := h.invitationService.IssueInvite(r.Context(), GetUserFromContext(r.Context()), req.Email)
	if err != nil {
		respondWithServiceError(w, r, err, withMessage(service.ErrNoFamily, ErrCreateFamilyFirst))
		return
	}

	writeJSON(w, http.StatusOK, IssuedInviteResponse{Invite: newInviteView(issued.Invite), Link: issued.Link})
}

// ListMine returns open invites addressed to the caller's email
func (h *InviteHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	invites, err := h.invitationService.ListMyInvites(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]InviteView{"invites": newInviteViews(invites)})
}

// ListSent returns open invites of the caller's family
func (h *InviteHandler) ListSent(w http.ResponseWriter, r *http.Request) {
	invites, err := h.invitationService.ListSentInvites(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]InviteView{"invites": newInviteViews(invites)})
}

// Accept redeems an invite token for the caller
func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	membership, err := h.invitationService.AcceptInvite(r.Context(), GetUserFromContext(r.Context()), req.Token)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newMembershipResponse(membership))
}
