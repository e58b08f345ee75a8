package credential

import "errors"

// Sentinel errors for credential operations.
var (
	// ErrInvalidName indicates a blank credential name.
	ErrInvalidName = errors.New("credential: name is required")

	// ErrEmptyValue indicates an attempt to store an empty credential.
	ErrEmptyValue = errors.New("credential: value is required")

	// ErrNoTier indicates the store has no tier to write to.
	ErrNoTier = errors.New("credential: no storage tier configured")
)
