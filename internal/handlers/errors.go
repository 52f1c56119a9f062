package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"familycart/internal/service"
	"familycart/internal/validation"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Debug("Failed to encode response")
	}
}

// respondWithError writes a JSON error body. err, when present, is logged
// with the request's fields and never sent to the client.
func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		entry := requestLogger(r).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error(logMsg)
		} else {
			entry.Debug(logMsg)
		}
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// messageOverride replaces the default client message for one service error
type messageOverride struct {
	target  error
	message string
}

func withMessage(target error, message string) messageOverride {
	return messageOverride{target: target, message: message}
}

var serviceErrors = []struct {
	target  error
	status  int
	message string
}{
	{service.ErrUnauthorized, http.StatusUnauthorized, ErrInvalidToken},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, ErrInvalidCredentials},
	{service.ErrEmailTaken, http.StatusConflict, ErrEmailTaken},
	{service.ErrAlreadyInFamily, http.StatusConflict, ErrAlreadyInFamily},
	{service.ErrNoFamily, http.StatusBadRequest, ErrNoFamily},
	{service.ErrNotFound, http.StatusNotFound, ErrNotFound},
	{service.ErrNoFields, http.StatusBadRequest, ErrNoFieldsToUpdate},
	{service.ErrInvalidOrExpiredToken, http.StatusBadRequest, ErrInvalidInviteToken},
	{service.ErrForbidden, http.StatusForbidden, ErrAdminOnly},
}

// respondWithServiceError maps a service error to its status and message.
// Unknown errors become a 500 with a generic body.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, overrides ...messageOverride) {
	if failures := validation.Failures(err); len(failures) > 0 {
		for _, f := range failures {
			requestLogger(r).WithField("field", f.Field).Debug(f.Message)
		}
		respondWithError(w, r, http.StatusBadRequest, failures[0].Message, "", nil)
		return
	}

	for _, known := range serviceErrors {
		if !errors.Is(err, known.target) {
			continue
		}
		message := known.message
		for _, o := range overrides {
			if errors.Is(err, o.target) {
				message = o.message
			}
		}
		respondWithError(w, r, known.status, message, "", err)
		return
	}

	respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, "Request failed", err)
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", err)
		return false
	}
	return true
}
