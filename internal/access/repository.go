package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for access record persistence.
// The (user, device) pair is the primary key everywhere: a repeated
// upsert for the same pair replaces the record rather than duplicating it.
type Repository interface {
	// Upsert creates or replaces the record for (UserID, DeviceID).
	// On replace, the original CreatedAt is preserved; the record's
	// timestamp fields are populated from the stored row.
	Upsert(ctx context.Context, rec *Record) error

	// Get retrieves the record for the pair.
	// Returns ErrRecordNotFound if none exists.
	Get(ctx context.Context, userID, deviceID string) (*Record, error)

	// ListByUser returns all records held by a user.
	ListByUser(ctx context.Context, userID string) ([]Record, error)

	// ListByDevice returns all records for a device (the sharing roster).
	ListByDevice(ctx context.Context, deviceID string) ([]Record, error)

	// UpdateRole changes the role for the pair in place.
	// Returns ErrRecordNotFound if no record exists.
	UpdateRole(ctx context.Context, userID, deviceID string, role Role) error

	// Delete removes the record for the pair.
	// Returns ErrRecordNotFound if no record exists.
	Delete(ctx context.Context, userID, deviceID string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed access record repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert creates or replaces the record for (UserID, DeviceID).
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) error {
	now := time.Now().UTC().Format(time.RFC3339)

	// ON CONFLICT leaves created_at alone, so a re-grant for the same
	// pair keeps the original grant time.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_access (user_id, device_id, device_name, role, shared_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, device_id) DO UPDATE SET
			device_name = excluded.device_name,
			role = excluded.role,
			shared_by = excluded.shared_by,
			updated_at = excluded.updated_at`,
		rec.UserID, rec.DeviceID, rec.DeviceName, string(rec.Role),
		nullString(rec.SharedBy), now, now,
	)
	if err != nil {
		return fmt.Errorf("upserting access record: %w", err)
	}

	// Read the stored timestamps back so the caller sees the preserved
	// created_at after a re-grant.
	var createdAt, updatedAt string
	err = r.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM device_access WHERE user_id = ? AND device_id = ?",
		rec.UserID, rec.DeviceID,
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("reading back access record: %w", err)
	}

	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
	rec.Permissions = PermissionsForRole(rec.Role)

	return nil
}

// Get retrieves the record for the pair.
func (r *SQLiteRepository) Get(ctx context.Context, userID, deviceID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, device_id, device_name, role, shared_by, created_at, updated_at
		 FROM device_access WHERE user_id = ? AND device_id = ?`,
		userID, deviceID,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying access record: %w", err)
	}
	return rec, nil
}

// ListByUser returns all records held by a user, oldest grant first.
func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT user_id, device_id, device_name, role, shared_by, created_at, updated_at
		 FROM device_access WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
}

// ListByDevice returns all records for a device, oldest grant first.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string) ([]Record, error) {
	return r.queryRecords(ctx,
		`SELECT user_id, device_id, device_name, role, shared_by, created_at, updated_at
		 FROM device_access WHERE device_id = ? ORDER BY created_at`,
		deviceID,
	)
}

// UpdateRole changes the role for the pair in place.
func (r *SQLiteRepository) UpdateRole(ctx context.Context, userID, deviceID string, role Role) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := r.db.ExecContext(ctx,
		"UPDATE device_access SET role = ?, updated_at = ? WHERE user_id = ? AND device_id = ?",
		string(role), now, userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("updating access role: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes the record for the pair.
func (r *SQLiteRepository) Delete(ctx context.Context, userID, deviceID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM device_access WHERE user_id = ? AND device_id = ?",
		userID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("deleting access record: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// queryRecords runs a query returning access record rows.
func (r *SQLiteRepository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying access records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access records: %w", err)
	}

	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans one access record row. The permission set is derived
// from the stored role; an unknown role yields nil permissions, which
// denies everything.
func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var role string
	var sharedBy sql.NullString
	var createdAt, updatedAt string

	if err := row.Scan(&rec.UserID, &rec.DeviceID, &rec.DeviceName, &role, &sharedBy, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning access record: %w", err)
	}

	rec.Role = Role(role)
	rec.Permissions = PermissionsForRole(rec.Role)
	if sharedBy.Valid {
		rec.SharedBy = sharedBy.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &rec, nil
}

// nullString converts an empty string to a NULL for storage.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
