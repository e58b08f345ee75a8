package health

import "errors"

var (
	// ErrCheckFailed wraps the cause reported by a failing checker.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout marks a checker still running at the deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	ErrCheckerNotFound = errors.New("health: no checker registered under that name")
)
