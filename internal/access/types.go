package access

import (
	"time"

	"github.com/lumahub/luma-core/internal/device"
)

// accessIDSeparator joins user and device IDs into the composite identity.
const accessIDSeparator = "#"

// Record is a user's access grant to a single device. At most one record
// exists per (user, device) pair; the pair is the record's identity.
type Record struct {
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id"`

	// DeviceName is copied from the registry at grant time for display.
	// It is not kept in sync if the device is later renamed.
	DeviceName string `json:"device_name"`

	Role Role `json:"role"`

	// Permissions is always exactly the role's entry in the static role
	// table. It is derived on read, never persisted.
	Permissions []Permission `json:"permissions"`

	// SharedBy is the user who granted this access. Empty for the owner
	// record created at device registration.
	SharedBy string `json:"shared_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessID returns the composite identity for the record,
// "userID#deviceID".
func (r *Record) AccessID() string {
	return r.UserID + accessIDSeparator + r.DeviceID
}

// HasPermission returns true if the record's permission set contains perm.
func (r *Record) HasPermission(perm Permission) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// DeviceWithAccess is a device as seen by one user: registry display
// metadata joined with the user's role and permissions.
type DeviceWithAccess struct {
	DeviceID    string        `json:"device_id"`
	Name        string        `json:"name"`
	Type        device.Type   `json:"type"`
	Status      device.Status `json:"status"`
	LastSeen    *time.Time    `json:"last_seen,omitempty"`
	Role        Role          `json:"role"`
	Permissions []Permission  `json:"permissions"`
	IsOwner     bool          `json:"is_owner"`
	SharedBy    string        `json:"shared_by,omitempty"`
}
