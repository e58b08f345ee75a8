package resilience

import (
	"context"
	"time"
)

// Executor runs each attempt under a Timeout and repeats failed attempts
// with a Retry.
type Executor struct {
	retry   *Retry
	timeout *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates an Executor. Without options it runs op once.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry sets the retry schedule.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithTimeout bounds every attempt by limit.
func WithTimeout(limit time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(limit)
	}
}

// Execute runs op. The timeout applies per attempt, not to the whole run,
// so a timed-out attempt can still be retried.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := op
	if e.timeout != nil {
		attempt = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, op)
		}
	}
	return e.retry.Execute(ctx, attempt)
}
