package models

import (
	"strings"
	"time"
)

// Role is a user's standing within their family
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User represents an account in the system
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	FullName     string
	FamilyID     *int64
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasFamily reports whether the user currently belongs to a family
func (u *User) HasFamily() bool {
	return u.FamilyID != nil
}

// IsFamilyAdmin reports whether the user administers their current family.
// The role is meaningless without a family.
func (u *User) IsFamilyAdmin() bool {
	return u.HasFamily() && u.Role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an address so uniqueness and invite
// matching are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
