package device

import "time"

// Type classifies what kind of device this is.
type Type string

// Device types.
const (
	TypeRelay  Type = "relay"
	TypeLight  Type = "light"
	TypeSensor Type = "sensor"
	TypeSwitch Type = "switch"
)

// validTypes is the set of accepted device types.
var validTypes = map[Type]bool{
	TypeRelay:  true,
	TypeLight:  true,
	TypeSensor: true,
	TypeSwitch: true,
}

// IsValidType returns true if t is a recognised device type.
func IsValidType(t Type) bool {
	return validTypes[t]
}

// Status is a device's connection status as last reported on the bus.
type Status string

// Device statuses.
const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusUnknown Status = "unknown"
)

// IsValidStatus returns true if s is a recognised status.
func IsValidStatus(s Status) bool {
	return s == StatusOnline || s == StatusOffline || s == StatusUnknown
}

// Device represents a controllable or monitorable entity.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type Type   `json:"type"`

	// Status and LastSeen are updated from status messages on the bus.
	// A device that has never reported is "unknown" with a nil LastSeen.
	Status   Status     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
