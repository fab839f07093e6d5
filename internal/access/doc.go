// Package access is the single source of truth for who can do what to
// which device.
//
// Every device operation (read, write, control, share, delete) is gated by
// an AccessRecord held by the requesting user. Records are created when a
// device is registered (owner) or shared (any role), keyed by the natural
// (user, device) pair, and carry a role whose permission set comes from a
// static role table; permissions are never stored or set independently.
//
// The permission checks HasAccess and HasPermission never fail: any
// underlying error collapses to "no access". An authorisation check that
// could return an error invites callers to mishandle the error path and
// accidentally fail open.
//
// The denormalised device name on a record is copied at grant time and is
// not refreshed if the device is later renamed; treat it as an
// eventually-stale display field.
package access
