package models

import "time"

// Family represents a household sharing one active shopping list
type Family struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Member is the public view of a user inside a family
type Member struct {
	ID       int64
	Email    string
	FullName string
	Role     Role
}

// FamilyWithMembers combines a family with its member information
type FamilyWithMembers struct {
	Family  *Family
	Members []Member
}
