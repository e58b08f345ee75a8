package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goodleaf/clientcore/observe"
)

// Source names the tier a Result was served from.
type Source string

const (
	SourceMemory    Source = "memory"
	SourcePersisted Source = "persisted"
	SourceNetwork   Source = "network"
)

// Result is the outcome of a Fetch.
type Result[T any] struct {
	Data      T
	UpdatedAt time.Time
	Source    Source

	// Stale is set when Data is older than StaleTime and is being returned
	// because the network fetch failed.
	Stale bool
}

// FetchFunc loads fresh data from the backend.
type FetchFunc[T any] func(ctx context.Context) (T, error)

type queryOptions struct {
	persist   bool
	force     bool
	staleTime *time.Duration
}

// QueryOption configures a single Fetch or SetData call.
type QueryOption func(*queryOptions)

// Persist opts the query into the durable tier.
func Persist() QueryOption {
	return func(o *queryOptions) {
		o.persist = true
	}
}

// Force skips cached data and always fetches.
func Force() QueryOption {
	return func(o *queryOptions) {
		o.force = true
	}
}

// WithStaleTime overrides the policy's StaleTime for one query.
func WithStaleTime(d time.Duration) QueryOption {
	return func(o *queryOptions) {
		o.staleTime = &d
	}
}

// QueryCache serves backend reads from memory, then from the durable tier,
// then from the network, deduplicating concurrent fetches of one key.
type QueryCache struct {
	policy    Policy
	keys      KeyRegistry
	memory    Cache
	persisted *Persisted
	group     singleflight.Group
	logger    observe.Logger
	metrics   observe.Metrics
	now       func() time.Time
}

// QueryCacheOption configures a QueryCache.
type QueryCacheOption func(*QueryCache)

// WithMemory replaces the default MemoryCache.
func WithMemory(c Cache) QueryCacheOption {
	return func(q *QueryCache) {
		q.memory = c
	}
}

// WithPersisted attaches the durable tier used by Persist queries.
func WithPersisted(p *Persisted) QueryCacheOption {
	return func(q *QueryCache) {
		q.persisted = p
	}
}

// WithKeyRegistry sets the registry used to derive metric namespaces.
func WithKeyRegistry(r KeyRegistry) QueryCacheOption {
	return func(q *QueryCache) {
		q.keys = r
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) QueryCacheOption {
	return func(q *QueryCache) {
		q.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m observe.Metrics) QueryCacheOption {
	return func(q *QueryCache) {
		q.metrics = m
	}
}

// WithClock overrides the clock used for freshness.
func WithClock(now func() time.Time) QueryCacheOption {
	return func(q *QueryCache) {
		q.now = now
	}
}

// NewQueryCache creates a QueryCache governed by policy.
func NewQueryCache(policy Policy, opts ...QueryCacheOption) *QueryCache {
	q := &QueryCache{
		policy:  policy,
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.memory == nil {
		q.memory = NewMemoryCache(policy.GCTime, WithMemoryClock(q.now))
	}
	return q
}

// Policy returns the policy governing this cache.
func (q *QueryCache) Policy() Policy {
	return q.policy
}

func (q *QueryCache) fresh(updatedAt time.Time, o queryOptions) bool {
	p := q.policy
	if o.staleTime != nil {
		p.StaleTime = *o.staleTime
	}
	return p.IsFresh(updatedAt, q.now())
}

func (q *QueryCache) record(ctx context.Context, key string, tier Source, outcome string) {
	q.metrics.RecordCacheLookup(ctx, q.keys.NamespaceOf(key), string(tier), outcome)
}

func collectOptions(opts []QueryOption) queryOptions {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Fetch returns the data for key.
//
// Fresh memory data is returned without I/O. Otherwise fresh durable data
// (Persist queries only) hydrates memory and is returned. Otherwise fetch
// runs under the read retry policy; concurrent Fetches of the same key
// share one call. When fetch fails and older data exists it is returned
// with Stale set alongside the error.
func Fetch[T any](ctx context.Context, q *QueryCache, key string, fetch FetchFunc[T], opts ...QueryOption) (Result[T], error) {
	var zero Result[T]
	if q == nil {
		return zero, ErrNilCache
	}
	if err := ValidateKey(key); err != nil {
		return zero, err
	}
	o := collectOptions(opts)

	var (
		fallback    Item
		fallbackSrc Source
		hasFallback bool
	)

	if item, ok := q.memory.Get(ctx, key); ok {
		if !o.force && q.fresh(item.UpdatedAt, o) {
			if res, err := decodeResult[T](item, SourceMemory); err == nil {
				q.record(ctx, key, SourceMemory, "hit")
				return res, nil
			}
		} else {
			q.record(ctx, key, SourceMemory, "stale")
		}
		fallback, fallbackSrc, hasFallback = item, SourceMemory, true
	} else {
		q.record(ctx, key, SourceMemory, "miss")
	}

	if o.persist && q.persisted.Enabled() {
		if item, ok := q.persisted.ReadItem(ctx, key); ok {
			if !o.force && q.fresh(item.UpdatedAt, o) {
				if res, err := decodeResult[T](item, SourcePersisted); err == nil {
					_ = q.memory.Set(ctx, key, item)
					q.record(ctx, key, SourcePersisted, "hit")
					return res, nil
				}
			} else {
				q.record(ctx, key, SourcePersisted, "stale")
			}
			if !hasFallback || item.UpdatedAt.After(fallback.UpdatedAt) {
				fallback, fallbackSrc, hasFallback = item, SourcePersisted, true
			}
		} else {
			q.record(ctx, key, SourcePersisted, "miss")
		}
	}

	// The shared load is detached from any one caller; each caller stops
	// waiting when its own ctx is done. Persist queries fly separately.
	flight := key
	if o.persist {
		flight += "\npersist"
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := q.group.DoChan(flight, func() (any, error) {
		return q.load(loadCtx, key, o, func(ctx context.Context) (any, error) {
			return fetch(ctx)
		})
	})
	var (
		v   any
		err error
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		if hasFallback {
			if res, decErr := decodeResult[T](fallback, fallbackSrc); decErr == nil {
				res.Stale = true
				q.logger.Warn(ctx, "serving stale data after fetch failure",
					observe.F("key", key), observe.F("error", err))
				return res, err
			}
		}
		return zero, err
	}
	return decodeResult[T](v.(Item), SourceNetwork)
}

// Refetch fetches key from the network regardless of freshness.
func Refetch[T any](ctx context.Context, q *QueryCache, key string, fetch FetchFunc[T], opts ...QueryOption) (Result[T], error) {
	return Fetch(ctx, q, key, fetch, append(opts, Force())...)
}

func (q *QueryCache) load(ctx context.Context, key string, o queryOptions, fetch func(context.Context) (any, error)) (Item, error) {
	var (
		mu   sync.Mutex
		data any
	)
	exec := q.policy.ReadExecutor(func(attempt int, err error, delay time.Duration) {
		q.logger.Debug(ctx, "retrying fetch",
			observe.F("key", key), observe.F("attempt", attempt),
			observe.F("delay_ms", delay.Milliseconds()), observe.F("error", err))
	})
	err := exec.Execute(ctx, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		// A timed-out attempt may still finish in the background.
		mu.Lock()
		data = v
		mu.Unlock()
		return nil
	})
	if err != nil {
		return Item{}, err
	}

	mu.Lock()
	raw, err := json.Marshal(data)
	mu.Unlock()
	if err != nil {
		return Item{}, fmt.Errorf("cache: encode %s: %w", key, err)
	}
	item := Item{Value: raw, UpdatedAt: q.now()}
	q.store(ctx, key, item, o)
	return item, nil
}

func (q *QueryCache) store(ctx context.Context, key string, item Item, o queryOptions) {
	_ = q.memory.Set(ctx, key, item)
	if o.persist {
		q.persisted.WriteItem(ctx, key, item)
	}
}

// SetData records server-confirmed data for key in memory and, for Persist
// queries, in the durable tier.
func (q *QueryCache) SetData(ctx context.Context, key string, data any, opts ...QueryOption) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	q.store(ctx, key, Item{Value: raw, UpdatedAt: q.now()}, collectOptions(opts))
	return nil
}

// GetData returns the cached data for key without fetching, regardless of
// freshness.
func GetData[T any](ctx context.Context, q *QueryCache, key string, opts ...QueryOption) (Result[T], bool) {
	o := collectOptions(opts)
	if item, ok := q.memory.Get(ctx, key); ok {
		if res, err := decodeResult[T](item, SourceMemory); err == nil {
			return res, true
		}
	}
	if o.persist {
		if item, ok := q.persisted.ReadItem(ctx, key); ok {
			if res, err := decodeResult[T](item, SourcePersisted); err == nil {
				return res, true
			}
		}
	}
	return Result[T]{}, false
}

// Invalidate marks the data for key stale so the next Fetch goes to the
// network. The data is kept as a failure fallback.
func (q *QueryCache) Invalidate(ctx context.Context, key string) {
	if item, ok := q.memory.Get(ctx, key); ok {
		item.UpdatedAt = time.Time{}
		_ = q.memory.Set(ctx, key, item)
	}
	if item, ok := q.persisted.ReadItem(ctx, key); ok {
		item.UpdatedAt = time.UnixMilli(0)
		q.persisted.WriteItem(ctx, key, item)
	}
}

// InvalidateNamespace invalidates every key starting with prefix, typically
// KeyRegistry.Namespace(ns). It returns the number of keys touched.
func (q *QueryCache) InvalidateNamespace(ctx context.Context, prefix string) int {
	seen := make(map[string]struct{})
	for _, k := range q.memory.Keys(ctx) {
		if strings.HasPrefix(k, prefix) {
			seen[k] = struct{}{}
		}
	}
	for _, k := range q.persisted.Keys(ctx, prefix) {
		seen[k] = struct{}{}
	}
	for k := range seen {
		q.Invalidate(ctx, k)
	}
	return len(seen)
}

// RemoveNamespace drops every key starting with prefix from every tier and
// returns the number of keys removed.
func (q *QueryCache) RemoveNamespace(ctx context.Context, prefix string) int {
	seen := make(map[string]struct{})
	for _, k := range q.memory.Keys(ctx) {
		if strings.HasPrefix(k, prefix) {
			seen[k] = struct{}{}
		}
	}
	for _, k := range q.persisted.Keys(ctx, prefix) {
		seen[k] = struct{}{}
	}
	for k := range seen {
		q.Remove(ctx, k)
	}
	return len(seen)
}

// Remove drops key from every tier.
func (q *QueryCache) Remove(ctx context.Context, key string) {
	_ = q.memory.Delete(ctx, key)
	q.persisted.Remove(ctx, key)
}

func decodeResult[T any](item Item, src Source) (Result[T], error) {
	var data T
	if err := json.Unmarshal(item.Value, &data); err != nil {
		return Result[T]{}, fmt.Errorf("cache: decode: %w", err)
	}
	return Result[T]{Data: data, UpdatedAt: item.UpdatedAt, Source: src}, nil
}
