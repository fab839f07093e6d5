package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUserRepository_CreateGeneratesID(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	hash, _ := HashPassword("hunter2-but-longer")
	u := &User{Username: "mira", DisplayName: "Mira", PasswordHash: hash, Role: RoleUser, IsActive: true}

	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(u.ID, "usr-") {
		t.Errorf("ID = %q, want usr- prefix", u.ID)
	}
	if u.CreatedAt.IsZero() || !u.UpdatedAt.Equal(u.CreatedAt) {
		t.Errorf("timestamps not initialised: created=%v updated=%v", u.CreatedAt, u.UpdatedAt)
	}
}

func TestUserRepository_RoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	hash, _ := HashPassword("hunter2-but-longer")
	tests := []struct {
		name  string
		user  User
		email string
	}{
		{"with email", User{Username: "ops", DisplayName: "Operations", Email: "ops@lumahub.io", PasswordHash: hash, Role: RoleAdmin, IsActive: true}, "ops@lumahub.io"},
		{"email omitted", User{Username: "kiosk", DisplayName: "Lobby Kiosk", PasswordHash: hash, Role: RoleUser, IsActive: false}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if err := repo.Create(ctx, &u); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			got, err := repo.GetByID(ctx, u.ID)
			if err != nil {
				t.Fatalf("GetByID() error = %v", err)
			}
			if got.Username != tt.user.Username || got.DisplayName != tt.user.DisplayName {
				t.Errorf("got (%q, %q), want (%q, %q)", got.Username, got.DisplayName, tt.user.Username, tt.user.DisplayName)
			}
			// Email is a nullable column; absence must read back as "".
			if got.Email != tt.email {
				t.Errorf("Email = %q, want %q", got.Email, tt.email)
			}
			if got.Role != tt.user.Role {
				t.Errorf("Role = %q, want %q", got.Role, tt.user.Role)
			}
			if got.IsActive != tt.user.IsActive {
				t.Errorf("IsActive = %v, want %v", got.IsActive, tt.user.IsActive)
			}
			if got.PasswordHash != hash {
				t.Error("PasswordHash did not survive the round trip")
			}
		})
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	seeded := seedTestUser(t, db, "mira", RoleAdmin)

	got, err := repo.GetByUsername(context.Background(), "mira")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != seeded.ID {
		t.Errorf("ID = %q, want %q", got.ID, seeded.ID)
	}

	if _, err := repo.GetByUsername(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown username: error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedTestUser(t, db, "mira", RoleUser)

	dup := &User{Username: "mira", DisplayName: "Second Mira", PasswordHash: "x", Role: RoleUser, IsActive: true}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("error = %v, want ErrUsernameExists", err)
	}
}

func TestUserRepository_List(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if users == nil {
		t.Fatal("List() on an empty table must return a non-nil slice")
	}
	if len(users) != 0 {
		t.Fatalf("List() = %d users, want 0", len(users))
	}

	for _, name := range []string{"mira", "ops", "kiosk"} {
		seedTestUser(t, db, name, RoleUser)
	}

	users, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("List() = %d users, want 3", len(users))
	}
	seen := map[string]bool{}
	for _, u := range users {
		seen[u.Username] = true
	}
	for _, name := range []string{"mira", "ops", "kiosk"} {
		if !seen[name] {
			t.Errorf("List() missing user %q", name)
		}
	}
}

func TestUserRepository_Update(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedTestUser(t, db, "mira", RoleUser)
	originalHash := u.PasswordHash

	u.DisplayName = "Mira (off duty)"
	u.Email = "mira@lumahub.io"
	u.Role = RoleAdmin
	u.IsActive = false
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.DisplayName != "Mira (off duty)" || got.Email != "mira@lumahub.io" {
		t.Errorf("mutable fields not updated: got (%q, %q)", got.DisplayName, got.Email)
	}
	if got.Role != RoleAdmin || got.IsActive {
		t.Errorf("role/active not updated: got (%q, %v)", got.Role, got.IsActive)
	}
	// Update touches only the mutable columns.
	if got.Username != "mira" {
		t.Errorf("Username changed to %q", got.Username)
	}
	if got.PasswordHash != originalHash {
		t.Error("Update() must not touch the password hash")
	}
}

func TestUserRepository_Update_ClearsEmail(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedTestUser(t, db, "mira", RoleUser)
	u.Email = "mira@lumahub.io"
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	u.Email = ""
	if err := repo.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, u.ID)
	if got.Email != "" {
		t.Errorf("Email = %q after clearing, want empty", got.Email)
	}
}

func TestUserRepository_Update_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)

	ghost := &User{ID: "usr-gone", DisplayName: "Ghost", Role: RoleUser}
	if err := repo.Update(context.Background(), ghost); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedTestUser(t, db, "mira", RoleUser)

	newHash, _ := HashPassword("rotated-passphrase")
	if err := repo.UpdatePassword(ctx, u.ID, newHash); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := repo.GetByID(ctx, u.ID)
	ok, _ := VerifyPassword("rotated-passphrase", got.PasswordHash)
	if !ok {
		t.Error("rotated password should verify")
	}
	if got.Username != "mira" || got.Role != RoleUser {
		t.Error("UpdatePassword() must leave other columns alone")
	}

	if err := repo.UpdatePassword(ctx, "usr-gone", newHash); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown ID: error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedTestUser(t, db, "mira", RoleUser)

	if err := repo.Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("after delete: error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(ctx, u.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second delete: error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Count() = %d, want 0", count)
	}

	seedTestUser(t, db, "mira", RoleAdmin)
	seedTestUser(t, db, "ops", RoleUser)

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}
