package access

import "errors"

// Domain errors for the access package. Check with errors.Is:
//
//	if errors.Is(err, access.ErrRecordNotFound) {
//	    // handle not found
//	}
var (
	// ErrRecordNotFound is returned by Revoke and UpdateRole when no
	// record exists for the (user, device) pair.
	ErrRecordNotFound = errors.New("access: record not found")

	// ErrShareForbidden is returned by Share when the acting user does
	// not hold the share permission on the device.
	ErrShareForbidden = errors.New("access: share permission required")

	// ErrInvalidRole is returned when a role is not one of the four
	// device roles.
	ErrInvalidRole = errors.New("access: invalid role")

	// ErrMissingIdentity is returned when a user or device ID is empty.
	ErrMissingIdentity = errors.New("access: user and device IDs are required")
)
