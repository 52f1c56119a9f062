package models

import "time"

// InviteState is derived from an invite's acceptance and expiry fields; it is never stored.
type InviteState string

const (
	InviteIssued   InviteState = "issued"
	InviteAccepted InviteState = "accepted"
	InviteExpired  InviteState = "expired"
)

// Invite grants one-time membership in the family that issued it.
// An empty Email makes it a bearer invite redeemable by anyone holding the token.
type Invite struct {
	ID         int64
	Token      string
	FamilyID   int64
	Email      string
	CreatedBy  *int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	AcceptedBy *int64
	AcceptedAt *time.Time
}

// State is the single place invite state is decided. Acceptance is terminal
// and wins over expiry.
func (i *Invite) State(now time.Time) InviteState {
	switch {
	case i.AcceptedAt != nil || i.AcceptedBy != nil:
		return InviteAccepted
	case !now.Before(i.ExpiresAt):
		return InviteExpired
	default:
		return InviteIssued
	}
}

func (i *Invite) IsExpired(now time.Time) bool {
	return i.State(now) == InviteExpired
}

func (i *Invite) IsAccepted() bool {
	return i.AcceptedAt != nil || i.AcceptedBy != nil
}

func (i *Invite) IsValid(now time.Time) bool {
	return i.State(now) == InviteIssued
}

// IsTargeted reports whether the invite is restricted to one email address
func (i *Invite) IsTargeted() bool {
	return i.Email != ""
}

// RedeemableBy reports whether a user with the given email may redeem the invite.
// Emails are compared in normalized form.
func (i *Invite) RedeemableBy(email string) bool {
	return !i.IsTargeted() || NormalizeEmail(i.Email) == NormalizeEmail(email)
}
