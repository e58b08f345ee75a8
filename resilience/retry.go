package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// Backoff selects how the wait grows between retries.
type Backoff int

const (
	// BackoffExponential waits Base, then 2*Base, 4*Base and so on.
	BackoffExponential Backoff = iota
	// BackoffConstant waits Base before every retry.
	BackoffConstant
)

// Retry schedule defaults.
const (
	DefaultRetryBase = time.Second
	DefaultRetryMax  = 30 * time.Second
)

// RetryConfig describes a retry schedule.
type RetryConfig struct {
	// Retries is how many times a failed attempt is repeated. Zero runs
	// the operation once.
	Retries int

	// Base is the first wait. Default: DefaultRetryBase.
	Base time.Duration

	// Max caps every wait. Default: DefaultRetryMax.
	Max time.Duration

	Backoff Backoff

	// Jitter adds up to a quarter of the wait at random.
	Jitter bool

	// RetryIf reports whether err deserves another attempt.
	// Default: IsRetryable.
	RetryIf func(err error) bool

	// OnRetry runs before each wait with the 1-based attempt that failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry repeats failed operations on a schedule.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry, filling unset fields with defaults.
func NewRetry(config RetryConfig) *Retry {
	config.Retries = max(config.Retries, 0)
	if config.Base <= 0 {
		config.Base = DefaultRetryBase
	}
	if config.Max <= 0 {
		config.Max = DefaultRetryMax
	}
	if config.RetryIf == nil {
		config.RetryIf = IsRetryable
	}
	return &Retry{config: config}
}

// Attempts is the total number of tries, the first included.
func (r *Retry) Attempts() int {
	if r == nil {
		return 1
	}
	return r.config.Retries + 1
}

// Execute runs op until it succeeds, fails permanently, or runs out of
// attempts.
//
// A permanent error is returned as is. Exhausting the retries returns the
// last error wrapped in ErrMaxRetriesExceeded. Cancelling ctx during a
// wait returns ctx.Err(). A nil *Retry runs op once.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	if r == nil {
		return op(ctx)
	}

	attempts := r.Attempts()
	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !r.config.RetryIf(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		delay := r.Delay(attempt)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if werr := wait(ctx, delay); werr != nil {
			return werr
		}
	}

	if attempts == 1 {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, attempts, err)
}

// Delay returns the wait after failed attempt n (1-based).
func (r *Retry) Delay(n int) time.Duration {
	delay := r.config.Base
	if r.config.Backoff == BackoffExponential {
		for i := 1; i < n && delay < r.config.Max; i++ {
			delay *= 2
		}
	}
	delay = min(delay, r.config.Max)

	if r.config.Jitter && delay > 0 {
		// #nosec G404 -- timing variance, not security.
		delay += time.Duration(rand.Int64N(int64(delay/4) + 1))
	}
	return delay
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
