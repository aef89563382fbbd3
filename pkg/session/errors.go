package session

import "errors"

// Sentinel errors
var (
	// ErrNotFound is returned when a session id is not registered.
	ErrNotFound = errors.New("session not found")

	// ErrChecksum is returned when a persisted session file fails its
	// integrity check.
	ErrChecksum = errors.New("session checksum mismatch")

	// ErrUnboundKey is returned when a keystroke has no keymap binding.
	ErrUnboundKey = errors.New("unbound key")
)
