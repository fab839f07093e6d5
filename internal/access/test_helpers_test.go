package access

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lumahub/luma-core/internal/device"
)

// testDB creates a temporary SQLite database with the device_access and
// devices tables. The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "access-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'relay',
			status TEXT NOT NULL DEFAULT 'unknown',
			last_seen TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE device_access (
			user_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			device_name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			shared_by TEXT,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			PRIMARY KEY (user_id, device_id)
		) STRICT;

		CREATE INDEX idx_device_access_device ON device_access(device_id);
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}

	return db
}

// newTestAuthority builds an Authority over a fresh database, returning
// the device registry that backs its directory so tests can seed devices.
func newTestAuthority(t *testing.T) (*Authority, *device.Registry) {
	t.Helper()

	db := testDB(t)
	registry := device.NewRegistry(device.NewSQLiteRepository(db))
	authority := NewAuthority(NewSQLiteRepository(db), registry)
	return authority, registry
}

// seedDevice registers a device and returns its generated ID.
func seedDevice(t *testing.T, registry *device.Registry, name string, typ device.Type) string {
	t.Helper()

	dev := &device.Device{Name: name, Type: typ}
	if err := registry.Register(context.Background(), dev); err != nil {
		t.Fatalf("registering test device %s: %v", name, err)
	}
	return dev.ID
}
