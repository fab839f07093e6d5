package access

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRepository_UpsertAndGet(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	rec := &Record{
		UserID:     "u1",
		DeviceID:   "d1",
		DeviceName: "Hallway Relay",
		Role:       RoleOwner,
	}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Error("Upsert did not populate timestamps")
	}
	if len(rec.Permissions) != 5 {
		t.Errorf("owner record got %d permissions, want 5", len(rec.Permissions))
	}

	got, err := repo.Get(ctx, "u1", "d1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.DeviceName != "Hallway Relay" {
		t.Errorf("DeviceName = %q, want Hallway Relay", got.DeviceName)
	}
	if got.Role != RoleOwner {
		t.Errorf("Role = %s, want owner", got.Role)
	}
	if got.SharedBy != "" {
		t.Errorf("SharedBy = %q, want empty", got.SharedBy)
	}
	if got.AccessID() != "u1#d1" {
		t.Errorf("AccessID = %q, want u1#d1", got.AccessID())
	}
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	_, err := repo.Get(context.Background(), "nobody", "nothing")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get on missing pair returned %v, want ErrRecordNotFound", err)
	}
}

func TestRepository_Upsert_ReplacesExisting(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	first := &Record{UserID: "u1", DeviceID: "d1", DeviceName: "Relay", Role: RoleViewer, SharedBy: "owner"}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}

	// Backdate created_at so preservation across the re-upsert is visible
	// even when both writes land in the same second.
	backdated := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	if _, err := db.Exec(
		"UPDATE device_access SET created_at = ? WHERE user_id = ? AND device_id = ?",
		backdated, "u1", "d1",
	); err != nil {
		t.Fatalf("backdating created_at: %v", err)
	}

	second := &Record{UserID: "u1", DeviceID: "d1", DeviceName: "Relay Renamed", Role: RoleAdmin, SharedBy: "owner"}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	if got := second.CreatedAt.UTC().Format(time.RFC3339); got != backdated {
		t.Errorf("re-upsert changed created_at: got %s, want %s", got, backdated)
	}
	if !second.UpdatedAt.After(second.CreatedAt) {
		t.Error("re-upsert did not advance updated_at past created_at")
	}

	records, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records for the pair after re-upsert, want 1", len(records))
	}
	if records[0].Role != RoleAdmin {
		t.Errorf("Role = %s after re-upsert, want admin", records[0].Role)
	}
	if records[0].DeviceName != "Relay Renamed" {
		t.Errorf("DeviceName = %q after re-upsert, want Relay Renamed", records[0].DeviceName)
	}
}

func TestRepository_ListByUser(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	for _, rec := range []*Record{
		{UserID: "u1", DeviceID: "d1", DeviceName: "A", Role: RoleOwner},
		{UserID: "u1", DeviceID: "d2", DeviceName: "B", Role: RoleViewer, SharedBy: "u9"},
		{UserID: "u2", DeviceID: "d1", DeviceName: "A", Role: RoleUser, SharedBy: "u1"},
	} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("seeding record: %v", err)
		}
	}

	records, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records for u1, want 2", len(records))
	}
	for _, rec := range records {
		if rec.UserID != "u1" {
			t.Errorf("ListByUser returned record for %s", rec.UserID)
		}
	}
}

func TestRepository_ListByUser_Empty(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	records, err := repo.ListByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if records == nil {
		t.Error("ListByUser returned nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestRepository_ListByDevice(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	for _, rec := range []*Record{
		{UserID: "u1", DeviceID: "d1", DeviceName: "A", Role: RoleOwner},
		{UserID: "u2", DeviceID: "d1", DeviceName: "A", Role: RoleViewer, SharedBy: "u1"},
		{UserID: "u3", DeviceID: "d2", DeviceName: "B", Role: RoleOwner},
	} {
		if err := repo.Upsert(ctx, rec); err != nil {
			t.Fatalf("seeding record: %v", err)
		}
	}

	records, err := repo.ListByDevice(ctx, "d1")
	if err != nil {
		t.Fatalf("ListByDevice failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records for d1, want 2", len(records))
	}
}

func TestRepository_UpdateRole(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	rec := &Record{UserID: "u1", DeviceID: "d1", DeviceName: "A", Role: RoleViewer, SharedBy: "u9"}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	if err := repo.UpdateRole(ctx, "u1", "d1", RoleUser); err != nil {
		t.Fatalf("UpdateRole failed: %v", err)
	}

	got, err := repo.Get(ctx, "u1", "d1")
	if err != nil {
		t.Fatalf("Get after UpdateRole failed: %v", err)
	}
	if got.Role != RoleUser {
		t.Errorf("Role = %s, want user", got.Role)
	}
	if !got.HasPermission(PermControl) {
		t.Error("permissions did not follow role change to user")
	}
	if got.SharedBy != "u9" {
		t.Errorf("UpdateRole touched shared_by: got %q", got.SharedBy)
	}
}

func TestRepository_UpdateRole_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))

	err := repo.UpdateRole(context.Background(), "nobody", "nothing", RoleUser)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("UpdateRole on missing pair returned %v, want ErrRecordNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(testDB(t))
	ctx := context.Background()

	rec := &Record{UserID: "u1", DeviceID: "d1", DeviceName: "A", Role: RoleOwner}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Fatalf("seeding record: %v", err)
	}

	if err := repo.Delete(ctx, "u1", "d1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "u1", "d1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get after Delete returned %v, want ErrRecordNotFound", err)
	}
	if err := repo.Delete(ctx, "u1", "d1"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("second Delete returned %v, want ErrRecordNotFound", err)
	}
}

func TestRepository_UnknownRoleDeniesEverything(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	// A role outside the static table can only appear via direct writes,
	// but a record carrying one must still deny every permission.
	if _, err := db.Exec(
		`INSERT INTO device_access (user_id, device_id, device_name, role, created_at, updated_at)
		 VALUES ('u1', 'd1', 'A', 'superuser', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`,
	); err != nil {
		t.Fatalf("inserting raw record: %v", err)
	}

	got, err := repo.Get(ctx, "u1", "d1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Permissions) != 0 {
		t.Errorf("unknown role carries %d permissions, want 0", len(got.Permissions))
	}
	for _, perm := range []Permission{PermRead, PermWrite, PermControl, PermShare, PermDelete} {
		if got.HasPermission(perm) {
			t.Errorf("unknown role grants %s", perm)
		}
	}
}
