package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTokenRepository_CreateAndGetByHash(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	user := seedTestUser(t, db, "alice", RoleUser)

	raw, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken failed: %v", err)
	}

	token := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken(raw),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if token.ID == "" {
		t.Error("Create did not generate an ID")
	}

	got, err := repo.GetByTokenHash(ctx, HashToken(raw))
	if err != nil {
		t.Fatalf("GetByTokenHash failed: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", got.UserID, user.ID)
	}
	if got.Revoked {
		t.Error("new token is revoked")
	}
}

func TestTokenRepository_GetByHash_Unknown(t *testing.T) {
	repo := NewTokenRepository(testDB(t))

	_, err := repo.GetByTokenHash(context.Background(), HashToken("never-issued"))
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("unknown hash returned %v, want ErrTokenInvalid", err)
	}
}

func TestTokenRepository_Rotate(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	user := seedTestUser(t, db, "bob", RoleUser)

	old := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken("old-token"),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := repo.Create(ctx, old); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	next := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken("next-token"),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := repo.Rotate(ctx, old.ID, next); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	rotated, err := repo.GetByTokenHash(ctx, HashToken("old-token"))
	if err != nil {
		t.Fatalf("GetByTokenHash(old) failed: %v", err)
	}
	if !rotated.Revoked {
		t.Error("consumed token not revoked after rotation")
	}

	fresh, err := repo.GetByTokenHash(ctx, HashToken("next-token"))
	if err != nil {
		t.Fatalf("GetByTokenHash(next) failed: %v", err)
	}
	if fresh.Revoked {
		t.Error("successor token is revoked")
	}
}

func TestTokenRepository_Revoke(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	user := seedTestUser(t, db, "carol", RoleUser)

	token := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken("revoke-me"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repo.Revoke(ctx, token.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	got, err := repo.GetByTokenHash(ctx, HashToken("revoke-me"))
	if err != nil {
		t.Fatalf("GetByTokenHash failed: %v", err)
	}
	if !got.Revoked {
		t.Error("token not revoked")
	}
}

func TestTokenRepository_RevokeAllForUser(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	target := seedTestUser(t, db, "dave", RoleUser)
	other := seedTestUser(t, db, "erin", RoleUser)

	for i, userID := range []string{target.ID, target.ID, other.ID} {
		token := &RefreshToken{
			UserID:    userID,
			TokenHash: HashToken("sess-" + string(rune('a'+i))),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := repo.Create(ctx, token); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	if err := repo.RevokeAllForUser(ctx, target.ID); err != nil {
		t.Fatalf("RevokeAllForUser failed: %v", err)
	}

	for _, tc := range []struct {
		hash    string
		revoked bool
	}{
		{"sess-a", true},
		{"sess-b", true},
		{"sess-c", false},
	} {
		got, err := repo.GetByTokenHash(ctx, HashToken(tc.hash))
		if err != nil {
			t.Fatalf("GetByTokenHash(%s) failed: %v", tc.hash, err)
		}
		if got.Revoked != tc.revoked {
			t.Errorf("token %s revoked = %v, want %v", tc.hash, got.Revoked, tc.revoked)
		}
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	db := testDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()
	user := seedTestUser(t, db, "frank", RoleUser)

	expired := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken("stale"),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	live := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken("live"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	for _, token := range []*RefreshToken{expired, live} {
		if err := repo.Create(ctx, token); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	deleted, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d tokens, want 1", deleted)
	}

	if _, err := repo.GetByTokenHash(ctx, HashToken("stale")); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expired token still retrievable: %v", err)
	}
	if _, err := repo.GetByTokenHash(ctx, HashToken("live")); err != nil {
		t.Errorf("live token deleted: %v", err)
	}
}
