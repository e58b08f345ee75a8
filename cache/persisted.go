package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/goodleaf/clientcore/kvstore"
	"github.com/goodleaf/clientcore/observe"
)

// Entry is a persisted cache record.
type Entry[T any] struct {
	Data      T     `json:"data"`
	UpdatedAt int64 `json:"updatedAt"` // epoch milliseconds
}

// Time returns UpdatedAt as a time.Time.
func (e Entry[T]) Time() time.Time {
	return time.UnixMilli(e.UpdatedAt)
}

// Persisted stores cache entries in a durable key-value tier so they
// survive restarts.
//
// Every operation is best-effort: storage faults are logged and treated as
// a miss, and a Persisted without a store does nothing.
type Persisted struct {
	store  kvstore.Store
	logger observe.Logger
	now    func() time.Time
}

// PersistedOption configures a Persisted.
type PersistedOption func(*Persisted)

// WithPersistedLogger sets the logger for absorbed storage faults.
func WithPersistedLogger(l observe.Logger) PersistedOption {
	return func(p *Persisted) {
		p.logger = l
	}
}

// WithPersistedClock overrides the clock used to stamp writes.
func WithPersistedClock(now func() time.Time) PersistedOption {
	return func(p *Persisted) {
		p.now = now
	}
}

// NewPersisted returns a Persisted over store. A nil store yields a
// Persisted whose operations are no-ops.
func NewPersisted(store kvstore.Store, opts ...PersistedOption) *Persisted {
	p := &Persisted{
		store:  store,
		logger: observe.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enabled reports whether a durable tier is attached.
func (p *Persisted) Enabled() bool {
	return p != nil && p.store != nil
}

// Read returns the entry stored under key. Missing keys, malformed payloads
// and storage faults all yield (zero, false).
func Read[T any](ctx context.Context, p *Persisted, key string) (Entry[T], bool) {
	item, ok := p.ReadItem(ctx, key)
	if !ok {
		return Entry[T]{}, false
	}
	var data T
	if err := json.Unmarshal(item.Value, &data); err != nil {
		p.logger.Warn(ctx, "discarding undecodable cache entry", observe.F("key", key), observe.F("error", err))
		return Entry[T]{}, false
	}
	return Entry[T]{Data: data, UpdatedAt: item.UpdatedAt.UnixMilli()}, true
}

// ReadItem returns the raw data and timestamp stored under key.
func (p *Persisted) ReadItem(ctx context.Context, key string) (Item, bool) {
	if !p.Enabled() {
		return Item{}, false
	}
	raw, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warn(ctx, "persisted cache read failed", observe.F("key", key), observe.F("error", err))
		return Item{}, false
	}
	if !ok {
		return Item{}, false
	}
	return parsePayload(raw)
}

func parsePayload(raw string) (Item, bool) {
	if !gjson.Valid(raw) {
		return Item{}, false
	}
	res := gjson.GetMany(raw, "data", "updatedAt")
	data, updatedAt := res[0], res[1]
	if !data.Exists() || updatedAt.Type != gjson.Number {
		return Item{}, false
	}
	return Item{
		Value:     []byte(data.Raw),
		UpdatedAt: time.UnixMilli(updatedAt.Int()),
	}, true
}

// Write replaces the entry under key with data stamped with the current
// time.
func (p *Persisted) Write(ctx context.Context, key string, data any) {
	if !p.Enabled() {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		p.logger.Warn(ctx, "persisted cache encode failed", observe.F("key", key), observe.F("error", err))
		return
	}
	p.WriteItem(ctx, key, Item{Value: raw, UpdatedAt: p.now()})
}

// WriteItem replaces the entry under key with already-encoded data.
func (p *Persisted) WriteItem(ctx context.Context, key string, item Item) {
	if !p.Enabled() {
		return
	}
	if len(item.Value) == 0 {
		item.Value = []byte("null")
	}
	payload, err := json.Marshal(Entry[json.RawMessage]{
		Data:      json.RawMessage(item.Value),
		UpdatedAt: item.UpdatedAt.UnixMilli(),
	})
	if err != nil {
		p.logger.Warn(ctx, "persisted cache encode failed", observe.F("key", key), observe.F("error", err))
		return
	}
	if err := p.store.Set(ctx, key, string(payload)); err != nil {
		p.logger.Warn(ctx, "persisted cache write failed", observe.F("key", key), observe.F("error", err))
	}
}

// Remove deletes the entry under key.
func (p *Persisted) Remove(ctx context.Context, key string) {
	if !p.Enabled() {
		return
	}
	if err := p.store.Remove(ctx, key); err != nil {
		p.logger.Warn(ctx, "persisted cache remove failed", observe.F("key", key), observe.F("error", err))
	}
}

// Keys returns the stored keys starting with prefix.
func (p *Persisted) Keys(ctx context.Context, prefix string) []string {
	if !p.Enabled() {
		return nil
	}
	keys, err := p.store.Keys(ctx)
	if err != nil {
		p.logger.Warn(ctx, "persisted cache list failed", observe.F("error", err))
		return nil
	}
	out := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}
