package access

// Permission represents a named capability on a device.
type Permission string

// Permission constants.
const (
	PermRead    Permission = "read"
	PermWrite   Permission = "write"
	PermControl Permission = "control"
	PermShare   Permission = "share"
	PermDelete  Permission = "delete"
)

// Role represents an authorisation tier on a single device.
type Role string

const (
	// RoleOwner is the user who registered the device. Full control,
	// including deletion.
	RoleOwner Role = "owner"

	// RoleAdmin can operate and re-share the device but not delete it.
	RoleAdmin Role = "admin"

	// RoleUser is a household member who can read and control the device.
	RoleUser Role = "user"

	// RoleViewer has read-only visibility.
	RoleViewer Role = "viewer"
)

// ValidRoles is the set of roles a record may carry.
var ValidRoles = []Role{RoleOwner, RoleAdmin, RoleUser, RoleViewer}

// IsValidRole returns true if the role is one of the four device roles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model: a
// record's permission set is always derived from its role through this
// table, never stored or mutated independently.
var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermRead,
		PermWrite,
		PermControl,
		PermShare,
		PermDelete,
	},
	RoleAdmin: {
		PermRead,
		PermWrite,
		PermControl,
		PermShare,
	},
	RoleUser: {
		PermRead,
		PermControl,
	},
	RoleViewer: {
		PermRead,
	},
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}

// RoleHasPermission returns true if the given role grants the permission.
func RoleHasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
