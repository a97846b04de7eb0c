// Package common defines shared constants and sentinel errors used across
// client and server layers of KeyGuard. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access denied")
	ErrValidation   = errors.New("validation error")

	// Envelope errors. Any failure to open a stored envelope (wrong key,
	// corrupted ciphertext, malformed encoding) is classified as
	// ErrDecryption so callers have a single kind to handle.
	ErrDecryption = errors.New("decryption failed")

	// Recovery errors.
	ErrInsufficientGuardians = errors.New("insufficient guardians")
	ErrInvalidKeys           = errors.New("invalid guardian keys")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
