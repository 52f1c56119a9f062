package handlers

import (
	"net/http"

	"familycart/internal/service"
)

// AuthHandler handles registration, login and the current user
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{Token: session.Token, User: newUserView(session.User)})
}

// Login exchanges credentials for a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{Token: session.Token, User: newUserView(session.User)})
}

// Me returns the authenticated user as currently stored
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]UserView{"user": newUserView(user)})
}
