package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodleaf/clientcore/cache"
	"github.com/goodleaf/clientcore/mutation"
	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/resilience"
)

// MutationKey is the coordinator key for notification settings.
const MutationKey = "notification-settings"

// Backend reads and writes notification settings on the server.
// *api.Client implements it.
type Backend interface {
	NotificationSettings(ctx context.Context) (NotificationSettings, error)
	UpdateNotificationSettings(ctx context.Context, s NotificationSettings) (NotificationSettings, error)
}

// Service loads and changes notification settings.
type Service struct {
	backend  Backend
	queries  *cache.QueryCache
	cacheKey string
	coord    *mutation.Coordinator[NotificationSettings]
	logger   observe.Logger
}

type serviceConfig struct {
	queries  *cache.QueryCache
	keys     cache.KeyRegistry
	policy   cache.Policy
	notifier mutation.Notifier
	logger   observe.Logger
	metrics  observe.Metrics
}

// Option configures a Service.
type Option func(*serviceConfig)

// WithQueryCache caches loaded settings and receives confirmed values.
// Its policy also governs write retries.
func WithQueryCache(q *cache.QueryCache) Option {
	return func(c *serviceConfig) {
		c.queries = q
		if q != nil {
			c.policy = q.Policy()
		}
	}
}

// WithKeyRegistry sets the registry used to build the cache key.
func WithKeyRegistry(r cache.KeyRegistry) Option {
	return func(c *serviceConfig) {
		c.keys = r
	}
}

// WithNotifier sets the receiver of save notifications.
func WithNotifier(n mutation.Notifier) Option {
	return func(c *serviceConfig) {
		c.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l observe.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m observe.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// NewService creates a Service backed by backend.
func NewService(backend Backend, opts ...Option) *Service {
	cfg := serviceConfig{
		keys:   cache.NewKeyRegistry(cache.DefaultPrefix),
		policy: cache.DefaultPolicy(),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Service{
		backend:  backend,
		queries:  cfg.queries,
		cacheKey: cfg.keys.Build("user", MutationKey),
		logger:   cfg.logger,
	}
	s.coord = mutation.NewCoordinator(s.send,
		mutation.WithPolicy[NotificationSettings](cfg.policy),
		mutation.WithNotifier[NotificationSettings](cfg.notifier),
		mutation.WithCommitHook(s.writeThrough),
		mutation.WithFailureMessage[NotificationSettings](FailureMessage),
		mutation.WithLogger[NotificationSettings](cfg.logger),
		mutation.WithMetrics[NotificationSettings](cfg.metrics),
	)
	return s
}

// CacheKey returns the query cache key holding confirmed settings.
func (s *Service) CacheKey() string {
	return s.cacheKey
}

func (s *Service) send(ctx context.Context, _ string, v NotificationSettings) (NotificationSettings, error) {
	return s.backend.UpdateNotificationSettings(ctx, v)
}

func (s *Service) writeThrough(ctx context.Context, _ string, confirmed NotificationSettings) {
	if s.queries == nil {
		return
	}
	if err := s.queries.SetData(ctx, s.cacheKey, confirmed, cache.Persist()); err != nil {
		s.logger.Warn(ctx, "settings cache write failed", observe.F("error", err))
	}
}

// Load returns the settings, from cache when fresh, and makes them the
// confirmed value. When the server is unreachable but older settings are
// cached, those are returned together with the error.
func (s *Service) Load(ctx context.Context) (NotificationSettings, error) {
	return s.load(ctx, false)
}

// Refresh reloads the settings from the server.
func (s *Service) Refresh(ctx context.Context) (NotificationSettings, error) {
	return s.load(ctx, true)
}

func (s *Service) load(ctx context.Context, force bool) (NotificationSettings, error) {
	if s.queries == nil {
		v, err := s.backend.NotificationSettings(ctx)
		if err != nil {
			return NotificationSettings{}, err
		}
		s.coord.Seed(MutationKey, v)
		return v, nil
	}

	opts := []cache.QueryOption{cache.Persist()}
	if force {
		opts = append(opts, cache.Force())
	}
	res, err := cache.Fetch(ctx, s.queries, s.cacheKey, s.backend.NotificationSettings, opts...)
	if err != nil && !res.Stale {
		return NotificationSettings{}, err
	}
	if !s.coord.Seed(MutationKey, res.Data) {
		s.logger.Debug(ctx, "settings load ignored while saving")
	}
	return res.Data, err
}

// Current returns the visible settings. ok is false until settings have
// been loaded.
func (s *Service) Current() (NotificationSettings, bool) {
	snap := s.coord.Snapshot(MutationKey)
	return snap.Visible, snap.Seeded
}

// Saving reports whether a change is in flight.
func (s *Service) Saving() bool {
	return s.coord.Snapshot(MutationKey).Phase == mutation.PhaseSaving
}

// ErrNotLoaded is returned when settings are changed before Load.
var ErrNotLoaded = errors.New("settings: not loaded")

// Toggle inverts field and saves the result.
func (s *Service) Toggle(ctx context.Context, field Field) (mutation.Outcome, error) {
	if _, err := (&NotificationSettings{}).flag(field); err != nil {
		return mutation.OutcomeDropped, err
	}
	return s.mutate(ctx, func(v NotificationSettings) NotificationSettings {
		t, _ := v.Toggled(field)
		return t
	})
}

// SetFrequency changes the delivery frequency and saves the result.
func (s *Service) SetFrequency(ctx context.Context, f Frequency) (mutation.Outcome, error) {
	if !f.Valid() {
		return mutation.OutcomeDropped, fmt.Errorf("%w: %q", ErrInvalidFrequency, f)
	}
	return s.mutate(ctx, func(v NotificationSettings) NotificationSettings {
		v.Frequency = f
		return v
	})
}

func (s *Service) mutate(ctx context.Context, change func(NotificationSettings) NotificationSettings) (mutation.Outcome, error) {
	if _, seeded := s.Current(); !seeded {
		return mutation.OutcomeDropped, ErrNotLoaded
	}
	return s.coord.Mutate(ctx, MutationKey, change)
}

// Failure messages shown when a save is rolled back.
const (
	MessageTimeout = "The server took too long to respond. Your changes were not saved."
	MessageFailed  = "We couldn't save your notification settings. Please try again."
)

// FailureMessage describes err for the user. A server-provided message
// is preferred.
func FailureMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	if errors.Is(err, resilience.ErrTimeout) {
		return MessageTimeout
	}
	return MessageFailed
}
