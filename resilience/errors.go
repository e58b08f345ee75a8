package resilience

import "errors"

var (
	// ErrMaxRetriesExceeded wraps the last error once every retry failed.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout means one attempt ran past its deadline. It is transient.
	ErrTimeout = errors.New("resilience: operation timed out")
)
