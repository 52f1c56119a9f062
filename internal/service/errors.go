package service

import "errors"

// Errors shared across services. Each maps to one HTTP status at the handler boundary.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNoFamily     = errors.New("user has no family")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)
