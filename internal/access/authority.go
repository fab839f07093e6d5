package access

import (
	"context"
	"fmt"

	"github.com/lumahub/luma-core/internal/device"
	"github.com/lumahub/luma-core/internal/infrastructure/logging"
)

// DeviceDirectory provides device display metadata for listings and
// share-time name denormalisation. The device registry satisfies it.
type DeviceDirectory interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// Authority mediates every access record mutation and answers permission
// queries. It is the only path through which records are created, queried,
// or destroyed.
//
// The Authority provides mechanism, not policy: operations like UpdateRole
// perform no authorisation themselves. The calling layer decides who may
// invoke them (Share is the exception: the share-permission gate is part
// of the sharing protocol itself).
type Authority struct {
	records Repository
	devices DeviceDirectory
	logger  *logging.Logger
}

// NewAuthority creates an Authority over the given record repository and
// device directory.
func NewAuthority(records Repository, devices DeviceDirectory) *Authority {
	return &Authority{
		records: records,
		devices: devices,
	}
}

// SetLogger sets the logger used for per-record warnings in listings.
func (a *Authority) SetLogger(logger *logging.Logger) {
	a.logger = logger
}

// Grant creates (or, for a repeated grant to the same pair, replaces) the
// access record for userID on deviceID. An empty role defaults to
// RoleUser. The returned record carries the permission set derived from
// the role.
//
// sharedBy identifies the granting user; pass "" for the owner record
// created at device registration.
func (a *Authority) Grant(ctx context.Context, userID, deviceID, deviceName string, role Role, sharedBy string) (*Record, error) {
	if userID == "" || deviceID == "" {
		return nil, ErrMissingIdentity
	}
	if role == "" {
		role = RoleUser
	}
	if !IsValidRole(role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	rec := &Record{
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		Role:       role,
		SharedBy:   sharedBy,
	}

	if err := a.records.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("granting access: %w", err)
	}
	return rec, nil
}

// UserDevices returns one entry per device the user can access, joined
// with registry display metadata.
//
// A record whose device no longer resolves in the registry is skipped with
// a logged warning rather than failing the whole listing: a dangling
// record must not hide the user's remaining devices. Missing metadata
// fields default to type "relay" and status "unknown".
func (a *Authority) UserDevices(ctx context.Context, userID string) ([]DeviceWithAccess, error) {
	records, err := a.records.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing access records: %w", err)
	}

	devices := make([]DeviceWithAccess, 0, len(records))
	for i := range records {
		rec := &records[i]

		dev, err := a.devices.GetDevice(ctx, rec.DeviceID)
		if err != nil {
			a.warn("skipping access record with unresolved device",
				"user_id", rec.UserID,
				"device_id", rec.DeviceID,
				"error", err,
			)
			continue
		}

		entry := DeviceWithAccess{
			DeviceID:    dev.ID,
			Name:        dev.Name,
			Type:        dev.Type,
			Status:      dev.Status,
			LastSeen:    dev.LastSeen,
			Role:        rec.Role,
			Permissions: rec.Permissions,
			IsOwner:     rec.Role == RoleOwner,
			SharedBy:    rec.SharedBy,
		}
		if entry.Type == "" {
			entry.Type = device.TypeRelay
		}
		if entry.Status == "" {
			entry.Status = device.StatusUnknown
		}

		devices = append(devices, entry)
	}

	return devices, nil
}

// HasAccess reports whether any access record exists for the pair.
//
// It never fails: lookup errors of any kind read as false, so callers can
// use it directly in conditionals without an error path to mishandle.
func (a *Authority) HasAccess(ctx context.Context, userID, deviceID string) bool {
	_, err := a.records.Get(ctx, userID, deviceID)
	return err == nil
}

// HasPermission reports whether the user holds the given permission on
// the device. Like HasAccess it never fails; every failure mode collapses
// to false (fail closed).
func (a *Authority) HasPermission(ctx context.Context, userID, deviceID string, perm Permission) bool {
	rec, err := a.records.Get(ctx, userID, deviceID)
	if err != nil {
		return false
	}
	return rec.HasPermission(perm)
}

// Share grants targetUserID access to a device on behalf of ownerID.
//
// The actor must hold the share permission on the device; otherwise
// ErrShareForbidden is returned and no record is created. The device name
// is denormalised from the registry, falling back to the raw device ID
// when the registry has no name for it.
func (a *Authority) Share(ctx context.Context, ownerID, deviceID, targetUserID string, role Role) (*Record, error) {
	if !a.HasPermission(ctx, ownerID, deviceID, PermShare) {
		return nil, ErrShareForbidden
	}

	deviceName := deviceID
	if dev, err := a.devices.GetDevice(ctx, deviceID); err == nil && dev.Name != "" {
		deviceName = dev.Name
	}

	return a.Grant(ctx, targetUserID, deviceID, deviceName, role, ownerID)
}

// Revoke removes the access record for the pair. Returns
// ErrRecordNotFound if none exists.
//
// Nothing stops revoking the last owner's record: a device can end up
// with an empty roster, accessible to no one until re-registered.
func (a *Authority) Revoke(ctx context.Context, userID, deviceID string) error {
	return a.records.Delete(ctx, userID, deviceID)
}

// DeviceUsers returns the full sharing roster for a device, unfiltered
// by role.
func (a *Authority) DeviceUsers(ctx context.Context, deviceID string) ([]Record, error) {
	records, err := a.records.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("listing device users: %w", err)
	}
	return records, nil
}

// UpdateRole changes the role on an existing record; the permission set
// follows the role automatically since it is derived on read. Returns
// ErrRecordNotFound if no record exists for the pair.
//
// No authorisation check happens here; the caller is responsible for
// verifying the actor may change another user's role.
func (a *Authority) UpdateRole(ctx context.Context, userID, deviceID string, role Role) error {
	if !IsValidRole(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	return a.records.UpdateRole(ctx, userID, deviceID, role)
}

// warn logs a warning if a logger is configured.
func (a *Authority) warn(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Warn(msg, args...)
	}
}
