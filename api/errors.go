package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend calls.
var (
	// ErrRequestFailed wraps transport faults: the request never produced
	// an HTTP response.
	ErrRequestFailed = errors.New("api: request failed")

	// ErrRejected is matched by an *Error for a 2xx response whose body
	// reports success=false.
	ErrRejected = errors.New("api: rejected by server")

	ErrInvalidBaseURL = errors.New("api: invalid base URL")
	ErrInvalidLoanID  = errors.New("api: invalid loan id")
)

// Error is a response the backend refused.
type Error struct {
	// Status is the HTTP status code.
	Status int

	// Message is the server-provided message, if any.
	Message string

	// Rejected is set when a 2xx body reported success=false.
	Rejected bool
}

func (e *Error) Error() string {
	if e.Rejected {
		if e.Message != "" {
			return "api: rejected: " + e.Message
		}
		return ErrRejected.Error()
	}
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
}

// StatusCode returns the HTTP status. Rejections report 0 so they are
// neither client nor server errors.
func (e *Error) StatusCode() int {
	if e.Rejected {
		return 0
	}
	return e.Status
}

// Is matches ErrRejected for rejections.
func (e *Error) Is(target error) bool {
	return e.Rejected && target == ErrRejected
}

// UserMessage returns the server's message for 4xx responses and
// rejections. Server faults return "" so callers fall back to a generic
// message.
func (e *Error) UserMessage() string {
	if e.Rejected || (e.Status >= 400 && e.Status < 500) {
		return e.Message
	}
	return ""
}
