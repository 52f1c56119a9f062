package repository

import "errors"

// Conditional write outcomes. Services translate these into their public errors.
var (
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrUserHasFamily       = errors.New("user already belongs to a family")
	ErrInviteUnavailable   = errors.New("invite not found, expired or already accepted")
	ErrInviteEmailMismatch = errors.New("invite is addressed to a different email")
	ErrNotFound            = errors.New("record not found")
)
