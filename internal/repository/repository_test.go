package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"familycart/internal/database"
	"familycart/internal/models"
	"familycart/internal/testutil"
)

var testNow = time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC)

type repos struct {
	db       *database.DB
	users    *UserRepository
	families *FamilyRepository
	invites  *InvitationRepository
	lists    *ListRepository
}

func newRepos(t *testing.T) *repos {
	t.Helper()
	db := testutil.NewTestDB(t)
	return &repos{
		db:       db,
		users:    NewUserRepository(db),
		families: NewFamilyRepository(db),
		invites:  NewInvitationRepository(db),
		lists:    NewListRepository(db),
	}
}

func (r *repos) user(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := r.users.CreateUser(context.Background(), email, "hash", "Test User", testNow)
	if err != nil {
		t.Fatalf("CreateUser(%s) error = %v", email, err)
	}
	return user
}

func (r *repos) family(t *testing.T, admin *models.User, name string) *models.Family {
	t.Helper()
	family, err := r.families.CreateFamily(context.Background(), name, admin.ID, testNow)
	if err != nil {
		t.Fatalf("CreateFamily(%s) error = %v", name, err)
	}
	return family
}

func TestUserRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	created := r.user(t, "A@Example.com")
	if created.Email != "a@example.com" {
		t.Errorf("stored email = %q, want lower-cased", created.Email)
	}

	t.Run("duplicate email differing in case", func(t *testing.T) {
		_, err := r.users.CreateUser(ctx, "a@EXAMPLE.com", "hash", "Other", testNow)
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Errorf("CreateUser() error = %v, want ErrDuplicateEmail", err)
		}
	})

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		user, err := r.users.GetUserByEmail(ctx, "a@example.COM")
		if err != nil {
			t.Fatalf("GetUserByEmail() error = %v", err)
		}
		if user == nil || user.ID != created.ID {
			t.Fatalf("GetUserByEmail() = %+v, want id %d", user, created.ID)
		}
		if user.HasFamily() || user.Role != models.RoleMember {
			t.Errorf("new user should have no family and member role, got %+v", user)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		user, err := r.users.GetUserByID(ctx, 9999)
		if err != nil || user != nil {
			t.Errorf("GetUserByID() = %v, %v; want nil, nil", user, err)
		}
	})
}

func TestFamilyRepository(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	admin := r.user(t, "a@example.com")
	family := r.family(t, admin, "Smiths")

	reloaded, err := r.users.GetUserByID(ctx, admin.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !reloaded.IsFamilyAdmin() || *reloaded.FamilyID != family.ID {
		t.Fatalf("creator should be admin of family %d, got %+v", family.ID, reloaded)
	}

	t.Run("second family is refused without side effects", func(t *testing.T) {
		_, err := r.families.CreateFamily(ctx, "Joneses", admin.ID, testNow)
		if !errors.Is(err, ErrUserHasFamily) {
			t.Fatalf("CreateFamily() error = %v, want ErrUserHasFamily", err)
		}
		var count int
		if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families").Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("families = %d, want 1", count)
		}
	})

	t.Run("members", func(t *testing.T) {
		members, err := r.families.GetFamilyMembers(ctx, family.ID)
		if err != nil {
			t.Fatalf("GetFamilyMembers() error = %v", err)
		}
		if len(members) != 1 || members[0].ID != admin.ID || members[0].Role != models.RoleAdmin {
			t.Errorf("members = %+v", members)
		}
	})

	t.Run("leave keeps the family", func(t *testing.T) {
		member := r.user(t, "b@example.com")
		other := r.family(t, member, "Temp")
		if err := r.users.ClearFamily(ctx, member.ID, testNow); err != nil {
			t.Fatalf("ClearFamily() error = %v", err)
		}
		user, _ := r.users.GetUserByID(ctx, member.ID)
		if user.HasFamily() || user.Role != models.RoleMember {
			t.Errorf("after leave user = %+v", user)
		}
		kept, err := r.families.GetFamilyByID(ctx, other.ID)
		if err != nil || kept == nil {
			t.Errorf("empty family should remain, got %v, %v", kept, err)
		}
	})
}

func TestDeleteFamilyCascades(t *testing.T) {
	r := newRepos(t)
	ctx := context.Background()

	admin := r.user(t, "a@example.com")
	family := r.family(t, admin, "Smiths")

	if _, err := r.invites.CreateInvitation(ctx, family.ID, "", admin.ID, testNow, testNow.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	list, err := r.lists.EnsureActiveList(ctx, family.ID, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.lists.AddItem(ctx, list.ID, models.ItemFields{Title: "Milk"}, admin.ID, testNow); err != nil {
		t.Fatal(err)
	}

	if err := r.families.DeleteFamily(ctx, family.ID, testNow); err != nil {
		t.Fatalf("DeleteFamily() error = %v", err)
	}

	user, _ := r.users.GetUserByID(ctx, admin.ID)
	if user.HasFamily() || user.Role != models.RoleMember {
		t.Errorf("member not detached: %+v", user)
	}

	for _, table := range []string{"families", "invites", "shopping_lists", "shopping_items"} {
		var count int
		if err := r.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("%s has %d rows after family delete", table, count)
		}
	}

	if err := r.families.DeleteFamily(ctx, family.ID, testNow); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteFamily() error = %v, want ErrNotFound", err)
	}
}
