package handlers

import (
	"time"

	"familycart/internal/models"
	"familycart/internal/service"
)

type UserView struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	FamilyID *int64 `json:"familyId"`
}

type MemberView struct {
	ID       int64       `json:"id"`
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Role     models.Role `json:"role"`
}

type FamilyView struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type InviteView struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Email     string    `json:"email,omitempty"`
}

type ItemView struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	Quantity  string            `json:"quantity"`
	Category  string            `json:"category"`
	Notes     string            `json:"notes"`
	Status    models.ItemStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
}

type ArchiveView struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	WeekStart  string     `json:"weekStart"`
	ArchivedAt *time.Time `json:"archivedAt"`
	Items      []ItemView `json:"items"`
}

// SessionResponse is returned by register and login
type SessionResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// MembershipResponse is returned whenever the caller joins or creates a family
type MembershipResponse struct {
	Family  FamilyView   `json:"family"`
	Members []MemberView `json:"members"`
	Token   string       `json:"token"`
	User    UserView     `json:"user"`
}

type MyFamilyResponse struct {
	Family  *FamilyView  `json:"family"`
	Members []MemberView `json:"members"`
}

type IssuedInviteResponse struct {
	Invite InviteView `json:"invite"`
	Link   string     `json:"link"`
}

type ActiveListResponse struct {
	ListID int64      `json:"listId"`
	Items  []ItemView `json:"items"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func newUserView(u *models.User) UserView {
	return UserView{ID: u.ID, Email: u.Email, FullName: u.FullName, FamilyID: u.FamilyID}
}

func newFamilyView(f *models.Family) FamilyView {
	return FamilyView{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

func newMemberViews(members []models.Member) []MemberView {
	views := make([]MemberView, 0, len(members))
	for _, m := range members {
		views = append(views, MemberView{ID: m.ID, Email: m.Email, FullName: m.FullName, Role: m.Role})
	}
	return views
}

func newInviteView(i *models.Invite) InviteView {
	return InviteView{Token: i.Token, ExpiresAt: i.ExpiresAt, Email: i.Email}
}

func newInviteViews(invites []models.Invite) []InviteView {
	views := make([]InviteView, 0, len(invites))
	for i := range invites {
		views = append(views, newInviteView(&invites[i]))
	}
	return views
}

func newItemView(i *models.ShoppingItem) ItemView {
	return ItemView{
		ID:        i.ID,
		Title:     i.Title,
		Quantity:  i.Quantity,
		Category:  i.Category,
		Notes:     i.Notes,
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
	}
}

func newItemViews(items []models.ShoppingItem) []ItemView {
	views := make([]ItemView, 0, len(items))
	for i := range items {
		views = append(views, newItemView(&items[i]))
	}
	return views
}

func newArchiveViews(archives []models.ArchivedList) []ArchiveView {
	views := make([]ArchiveView, 0, len(archives))
	for _, a := range archives {
		views = append(views, ArchiveView{
			ID:         a.List.ID,
			Title:      a.List.Title,
			WeekStart:  a.List.WeekStart.Format(time.DateOnly),
			ArchivedAt: a.List.ArchivedAt,
			Items:      newItemViews(a.Items),
		})
	}
	return views
}

func newMembershipResponse(m *service.Membership) MembershipResponse {
	return MembershipResponse{
		Family:  newFamilyView(m.Family),
		Members: newMemberViews(m.Members),
		Token:   m.Session.Token,
		User:    newUserView(m.Session.User),
	}
}
