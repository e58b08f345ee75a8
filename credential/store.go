package credential

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goodleaf/clientcore/kvstore"
	"github.com/goodleaf/clientcore/observe"
)

// DefaultPrefix is prepended to every credential name in a tier.
const DefaultPrefix = "goodleaf:secure:"

type tier struct {
	name string
	kv   kvstore.Store
}

// Store is the credential store.
//
// Contract:
// - Concurrency: safe for concurrent use when its tiers are.
// - Errors: tier faults are logged; reads degrade to absent.
type Store struct {
	volatile kvstore.Store
	durable  kvstore.Store
	prefix   string
	logger   observe.Logger
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithVolatile enables the in-process tier. When set, writes go here.
func WithVolatile(kv kvstore.Store) Option {
	return func(s *Store) {
		s.volatile = kv
	}
}

// WithDurable enables the durable tier.
func WithDurable(kv kvstore.Store) Option {
	return func(s *Store) {
		s.durable = kv
	}
}

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger for absorbed tier faults.
func WithLogger(l observe.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// WithClock overrides the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		prefix: DefaultPrefix,
		logger: observe.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// tiers returns the configured tiers in read order.
func (s *Store) tiers() []tier {
	var out []tier
	if s.volatile != nil {
		out = append(out, tier{name: "volatile", kv: s.volatile})
	}
	if s.durable != nil {
		out = append(out, tier{name: "durable", kv: s.durable})
	}
	return out
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	return name, nil
}

// Set stores value under name. A positive ttl sets an expiry; otherwise
// access and ID tokens that are JWTs expire at their exp claim, and other
// values never expire.
func (s *Store) Set(ctx context.Context, name, value string, ttl time.Duration) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if value == "" {
		return ErrEmptyValue
	}

	var expiresAt time.Time
	switch {
	case ttl > 0:
		expiresAt = s.now().Add(ttl)
	case name == AccessTokenName || name == IDTokenName:
		if exp, ok := tokenExpiry(value); ok {
			expiresAt = exp
		}
	}
	return s.put(ctx, name, newRecord(value, expiresAt))
}

// SetUntil stores value under name with an absolute expiry. A zero
// expiresAt never expires.
func (s *Store) SetUntil(ctx context.Context, name, value string, expiresAt time.Time) error {
	name, err := normalizeName(name)
	if err != nil {
		return err
	}
	if value == "" {
		return ErrEmptyValue
	}
	return s.put(ctx, name, newRecord(value, expiresAt))
}

func (s *Store) put(ctx context.Context, name string, rec record) error {
	tiers := s.tiers()
	if len(tiers) == 0 {
		s.logger.Warn(ctx, "credential not stored", observe.F("name", name), observe.F("error", ErrNoTier))
		return ErrNoTier
	}
	raw, err := rec.encode()
	if err != nil {
		return fmt.Errorf("credential: encode %s: %w", name, err)
	}

	// Every active tier gets the record; one failing tier is tolerated.
	var errs []error
	for _, t := range tiers {
		if err := t.kv.Set(ctx, s.key(name), raw); err != nil {
			s.logger.Warn(ctx, "credential not stored in tier",
				observe.F("name", name), observe.F("tier", t.name), observe.F("error", err))
			errs = append(errs, fmt.Errorf("%s tier: %w", t.name, err))
		}
	}
	if len(errs) == len(tiers) {
		return fmt.Errorf("credential: store %s: %w", name, errors.Join(errs...))
	}
	return nil
}

// Get returns the unexpired value stored under name.
func (s *Store) Get(ctx context.Context, name string) (string, bool) {
	name, err := normalizeName(name)
	if err != nil {
		return "", false
	}
	now := s.now()
	for _, t := range s.tiers() {
		if rec, ok := s.load(ctx, t, name, now); ok {
			return rec.Value, true
		}
	}
	return "", false
}

// load reads name from one tier, evicting it when expired or undecodable.
func (s *Store) load(ctx context.Context, t tier, name string, now time.Time) (record, bool) {
	raw, ok, err := t.kv.Get(ctx, s.key(name))
	if err != nil {
		s.logger.Warn(ctx, "credential read failed",
			observe.F("name", name), observe.F("tier", t.name), observe.F("error", err))
		return record{}, false
	}
	if !ok {
		return record{}, false
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		s.logger.Warn(ctx, "discarding undecodable credential",
			observe.F("name", name), observe.F("tier", t.name))
		s.evict(ctx, t, name)
		return record{}, false
	}
	if rec.expired(now) {
		s.logger.Debug(ctx, "credential expired", observe.F("name", name), observe.F("tier", t.name))
		s.evict(ctx, t, name)
		return record{}, false
	}
	return rec, true
}

func (s *Store) evict(ctx context.Context, t tier, name string) {
	if err := t.kv.Remove(ctx, s.key(name)); err != nil {
		s.logger.Warn(ctx, "credential remove failed",
			observe.F("name", name), observe.F("tier", t.name), observe.F("error", err))
	}
}

// IsValid reports whether an unexpired value exists under name.
func (s *Store) IsValid(ctx context.Context, name string) bool {
	_, ok := s.Get(ctx, name)
	return ok
}

// ExpiresAt returns the expiry of the value under name. The zero time
// means the value never expires.
func (s *Store) ExpiresAt(ctx context.Context, name string) (time.Time, bool) {
	name, err := normalizeName(name)
	if err != nil {
		return time.Time{}, false
	}
	now := s.now()
	for _, t := range s.tiers() {
		if rec, ok := s.load(ctx, t, name, now); ok {
			if rec.ExpiresAt == nil {
				return time.Time{}, true
			}
			return time.UnixMilli(*rec.ExpiresAt), true
		}
	}
	return time.Time{}, false
}

// Remove deletes name from every tier.
func (s *Store) Remove(ctx context.Context, name string) {
	name, err := normalizeName(name)
	if err != nil {
		return
	}
	for _, t := range s.tiers() {
		s.evict(ctx, t, name)
	}
}

// Keys returns the names of unexpired credentials in ascending order.
// Expired records found along the way are evicted.
func (s *Store) Keys(ctx context.Context) []string {
	now := s.now()
	seen := make(map[string]struct{})
	for _, t := range s.tiers() {
		for _, name := range s.names(ctx, t) {
			if _, ok := seen[name]; ok {
				continue
			}
			if _, ok := s.load(ctx, t, name, now); ok {
				seen[name] = struct{}{}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// names lists the credential names present in one tier.
func (s *Store) names(ctx context.Context, t tier) []string {
	keys, err := t.kv.Keys(ctx)
	if err != nil {
		s.logger.Warn(ctx, "credential list failed", observe.F("tier", t.name), observe.F("error", err))
		return nil
	}
	var out []string
	for _, k := range keys {
		if name, ok := strings.CutPrefix(k, s.prefix); ok && name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Clear removes every credential from every tier.
func (s *Store) Clear(ctx context.Context) {
	for _, t := range s.tiers() {
		for _, name := range s.names(ctx, t) {
			s.evict(ctx, t, name)
		}
	}
}

// Tiers reports which tiers are configured, in read order.
func (s *Store) Tiers() []string {
	var out []string
	for _, t := range s.tiers() {
		out = append(out, t.name)
	}
	return out
}
