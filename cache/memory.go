package cache

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultGCTime is how long an unused entry is retained in memory.
const DefaultGCTime = 10 * time.Minute

// MemoryCache is an in-memory cache with expire-after-access retention.
//
// An entry not read or written for gcTime is dropped. A gcTime <= 0
// retains entries until deleted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	gcTime  time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	item         Item
	lastAccessed time.Time
}

// MemoryOption configures a MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryClock overrides the clock used for retention.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a new in-memory cache retaining idle entries for
// gcTime.
func NewMemoryCache(gcTime time.Duration, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*cacheEntry),
		gcTime:  gcTime,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MemoryCache) idle(e *cacheEntry, now time.Time) bool {
	return c.gcTime > 0 && now.Sub(e.lastAccessed) > c.gcTime
}

// Get retrieves an item and refreshes its retention. Returns
// (Item{}, false) on miss or after the entry went idle.
func (c *MemoryCache) Get(_ context.Context, key string) (Item, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Item{}, false
	}
	if c.idle(entry, now) {
		delete(c.entries, key)
		return Item{}, false
	}
	entry.lastAccessed = now

	return Item{Value: slices.Clone(entry.item.Value), UpdatedAt: entry.item.UpdatedAt}, true
}

// Set stores an item, replacing any previous one.
func (c *MemoryCache) Set(_ context.Context, key string, item Item) error {
	item.Value = slices.Clone(item.Value)

	c.mu.Lock()
	c.entries[key] = &cacheEntry{item: item, lastAccessed: c.now()}
	c.mu.Unlock()

	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Keys returns the retained keys in sorted order.
func (c *MemoryCache) Keys(_ context.Context) []string {
	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.idle(e, now) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// Sweep drops every idle entry and reports how many were removed.
func (c *MemoryCache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if c.idle(e, now) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, idle ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Ensure MemoryCache implements Cache
var _ Cache = (*MemoryCache)(nil)
