package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength bounds keys so they stay usable as SQLite primary keys and
// log fields.
const MaxKeyLength = 512

var (
	ErrNilCache   = errors.New("cache: cache is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Item is a cached response body with the time it was last confirmed by
// the server.
type Item struct {
	Value     []byte
	UpdatedAt time.Time
}

// Cache is the in-process tier of the query cache.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get should never error; it returns (Item{}, false) on miss.
// - Ownership: Get returns a copy; callers may not mutate stored bytes.
type Cache interface {
	Get(ctx context.Context, key string) (Item, bool)

	// Set replaces any item stored under key.
	Set(ctx context.Context, key string, item Item) error

	// Delete is idempotent.
	Delete(ctx context.Context, key string) error

	// Keys lists the keys currently retained.
	Keys(ctx context.Context) []string
}

// ValidateKey rejects blank keys, keys over MaxKeyLength and keys that
// would break line-oriented logs.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "", strings.ContainsAny(key, "\n\r"):
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	}
	return nil
}
