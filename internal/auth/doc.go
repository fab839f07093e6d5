// Package auth provides account authentication for Luma Core.
//
// It covers the identity half of the security model: Argon2id password
// hashing, HS256 JWT access tokens, and rotating refresh tokens stored
// by hash. What a signed-in user may do to a particular device is not
// decided here; the access package holds the per-device roles.
//
// Account roles are deliberately flat: admin manages accounts, user is
// everyone else. Device capabilities come entirely from device access
// records.
package auth
