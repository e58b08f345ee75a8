package kvstore

import (
	"context"
	"errors"
)

// Sentinel errors for store operations.
var (
	ErrNotConfigured = errors.New("kvstore: store is not configured")
	ErrInvalidKey    = errors.New("kvstore: key is required")
)

// Store is a string key-value tier.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get returns ("", false, nil) on miss; errors are reserved for tier faults.
// - Remove is idempotent.
// - Keys returns keys in ascending order.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
