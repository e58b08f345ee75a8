package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single backend call.
const DefaultTimeout = 10 * time.Second

// Timeout bounds one attempt of an operation.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a Timeout. A non-positive limit uses DefaultTimeout.
func NewTimeout(limit time.Duration) *Timeout {
	if limit <= 0 {
		limit = DefaultTimeout
	}
	return &Timeout{limit: limit}
}

// Limit returns the configured bound.
func (t *Timeout) Limit() time.Duration {
	return t.limit
}

// Execute runs op with a deadline. Exceeding it yields ErrTimeout even if
// op reports some other error afterwards; cancellation by the caller
// yields ctx.Err().
//
// op keeps running in the background after the deadline until it notices
// its context is done, so anything it writes must be synchronized.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	var err error
	select {
	case err = <-done:
		if err == nil {
			return nil
		}
	case <-ctx.Done():
		err = ctx.Err()
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
