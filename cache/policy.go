package cache

import (
	"time"

	"github.com/goodleaf/clientcore/resilience"
)

// Trigger is an ambient event that may cause cached queries to refetch.
type Trigger int

const (
	TriggerWindowFocus Trigger = iota
	TriggerMount
	TriggerReconnect
)

func (t Trigger) String() string {
	switch t {
	case TriggerWindowFocus:
		return "window_focus"
	case TriggerMount:
		return "mount"
	case TriggerReconnect:
		return "reconnect"
	default:
		return "unknown"
	}
}

// Policy configures freshness, retention and retry for cached queries.
// It is built once and shared by every QueryCache and Coordinator.
type Policy struct {
	// StaleTime is how long fetched data counts as fresh.
	StaleTime time.Duration

	// GCTime is how long unused data is retained in memory.
	GCTime time.Duration

	// ReadRetries is the number of retries for failed reads.
	ReadRetries int

	// ReadRetryBase is the first read retry delay; later delays double.
	ReadRetryBase time.Duration

	// ReadRetryMax caps read retry delays.
	ReadRetryMax time.Duration

	// WriteRetries is the number of retries for failed writes.
	WriteRetries int

	// WriteRetryDelay is the fixed delay between write attempts.
	WriteRetryDelay time.Duration

	// RequestTimeout bounds each network attempt.
	RequestTimeout time.Duration

	RefetchOnWindowFocus bool
	RefetchOnMount       bool
	RefetchOnReconnect   bool
}

// DefaultPolicy returns the default query policy.
// StaleTime: 5m, GCTime: 10m, reads retried 3 times with 1s/2s/4s backoff
// capped at 30s, writes retried once after 1s, 10s per attempt, no
// ambient refetching.
func DefaultPolicy() Policy {
	return Policy{
		StaleTime:       5 * time.Minute,
		GCTime:          DefaultGCTime,
		ReadRetries:     3,
		ReadRetryBase:   time.Second,
		ReadRetryMax:    30 * time.Second,
		WriteRetries:    1,
		WriteRetryDelay: time.Second,
		RequestTimeout:  resilience.DefaultTimeout,
	}
}

// NoCachePolicy returns a policy under which data is never fresh, so every
// Fetch goes to the network. Stale data is still kept as a fallback.
func NoCachePolicy() Policy {
	p := DefaultPolicy()
	p.StaleTime = 0
	return p
}

// IsFresh reports whether data confirmed at updatedAt is still fresh at now.
func (p Policy) IsFresh(updatedAt, now time.Time) bool {
	if updatedAt.IsZero() || p.StaleTime <= 0 {
		return false
	}
	return now.Sub(updatedAt) < p.StaleTime
}

// ShouldRefetch reports whether trigger causes cached queries to refetch.
func (p Policy) ShouldRefetch(trigger Trigger) bool {
	switch trigger {
	case TriggerWindowFocus:
		return p.RefetchOnWindowFocus
	case TriggerMount:
		return p.RefetchOnMount
	case TriggerReconnect:
		return p.RefetchOnReconnect
	default:
		return false
	}
}

// ReadRetry returns the retry used for reads. 4xx failures are never
// retried; 5xx, network and timeout failures are.
func (p Policy) ReadRetry(onRetry func(attempt int, err error, delay time.Duration)) *resilience.Retry {
	return resilience.NewRetry(resilience.RetryConfig{
		Retries: p.ReadRetries,
		Base:    p.ReadRetryBase,
		Max:     p.ReadRetryMax,
		Backoff: resilience.BackoffExponential,
		RetryIf: resilience.IsRetryable,
		OnRetry: onRetry,
	})
}

// WriteRetry returns the retry used for writes.
func (p Policy) WriteRetry(onRetry func(attempt int, err error, delay time.Duration)) *resilience.Retry {
	return resilience.NewRetry(resilience.RetryConfig{
		Retries: p.WriteRetries,
		Base:    p.WriteRetryDelay,
		Max:     p.WriteRetryDelay,
		Backoff: resilience.BackoffConstant,
		RetryIf: resilience.IsRetryable,
		OnRetry: onRetry,
	})
}

// ReadExecutor combines ReadRetry with the per-attempt timeout.
func (p Policy) ReadExecutor(onRetry func(attempt int, err error, delay time.Duration)) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithRetry(p.ReadRetry(onRetry)),
		resilience.WithTimeout(p.RequestTimeout),
	)
}

// WriteExecutor combines WriteRetry with the per-attempt timeout.
func (p Policy) WriteExecutor(onRetry func(attempt int, err error, delay time.Duration)) *resilience.Executor {
	return resilience.NewExecutor(
		resilience.WithRetry(p.WriteRetry(onRetry)),
		resilience.WithTimeout(p.RequestTimeout),
	)
}
