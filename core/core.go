package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goodleaf/clientcore/api"
	"github.com/goodleaf/clientcore/audit"
	"github.com/goodleaf/clientcore/auth"
	"github.com/goodleaf/clientcore/cache"
	"github.com/goodleaf/clientcore/config"
	"github.com/goodleaf/clientcore/credential"
	"github.com/goodleaf/clientcore/health"
	"github.com/goodleaf/clientcore/kvstore"
	"github.com/goodleaf/clientcore/mutation"
	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/redact"
	"github.com/goodleaf/clientcore/settings"
)

// Client owns every component built from one configuration.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Lifecycle: Close releases storage and flushes telemetry; the Client
// must not be used afterwards.
type Client struct {
	cfg      config.Config
	observer observe.Observer
	logger   observe.Logger
	redactor *redact.Redactor

	db          *kvstore.SQLite // nil when the durable tier is disabled
	credentials *credential.Store
	keys        cache.KeyRegistry
	queries     *cache.QueryCache
	audit       *audit.Logger
	api         *api.Client
	settings    *settings.Service
	session     *auth.Session
	health      *health.Aggregator
}

type options struct {
	logger     observe.Logger
	httpClient *http.Client
	notifier   mutation.Notifier
}

// Option customizes New.
type Option func(*options)

// WithLogger replaces the logger built from the telemetry config.
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithNotifier receives settings mutation outcomes, typically to show a
// toast. Outcomes are audited either way.
func WithNotifier(n mutation.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// NewFromEnv loads configuration from the environment and calls New.
func NewFromEnv(ctx context.Context, opts ...Option) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, opts...)
}

// New builds a Client from cfg.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		cfg:      cfg,
		redactor: redact.New(cfg.RedactOptions()),
		keys:     cache.NewKeyRegistry(cfg.Cache.Prefix),
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe(), observe.WithRedactor(c.redactor))
	if err != nil {
		return nil, fmt.Errorf("core: telemetry: %w", err)
	}
	c.observer = obs
	c.logger = obs.Logger()
	if o.logger != nil {
		c.logger = o.logger
	}

	metrics, err := observe.NewMetrics(obs.Meter())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("core: metrics: %w", err)
	}

	if err := c.openStorage(ctx); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	c.audit = audit.New(
		audit.WithCapacity(cfg.Audit.Capacity),
		audit.WithRedactor(c.redactor),
		audit.WithSink(c.logger.WithComponent("audit")),
	)

	c.queries = cache.NewQueryCache(cfg.Policy(),
		cache.WithPersisted(cache.NewPersisted(c.durable(),
			cache.WithPersistedLogger(c.logger.WithComponent("cache")))),
		cache.WithKeyRegistry(c.keys),
		cache.WithLogger(c.logger.WithComponent("cache")),
		cache.WithMetrics(metrics),
	)

	apiOpts := []api.Option{
		api.WithTimeout(cfg.API.Timeout),
		api.WithTokens(c.credentials),
		api.WithUnauthorizedHandler(c.onUnauthorized),
		api.WithMiddleware(observe.NewMiddleware(
			observe.NewTracer(obs.Tracer()), metrics, c.logger.WithComponent("api"))),
		api.WithUserAgent(cfg.API.UserAgent),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	c.api, err = api.New(cfg.API.BaseURL, apiOpts...)
	if err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("core: %w", err)
	}

	c.settings = settings.NewService(c.api,
		settings.WithQueryCache(c.queries),
		settings.WithKeyRegistry(c.keys),
		settings.WithNotifier(&auditNotifier{audit: c.audit, next: o.notifier}),
		settings.WithLogger(c.logger.WithComponent("settings")),
		settings.WithMetrics(metrics),
	)

	c.session = auth.NewSession(c.credentials, nil)

	c.health = health.NewAggregator()
	var pinger health.Pinger
	if c.db != nil {
		pinger = c.db
	}
	c.health.Register("storage", health.NewStorageChecker(pinger))
	c.health.Register("credentials", health.NewCredentialTierChecker(c.credentials))
	c.health.Register("session", health.NewSessionChecker(c.session))

	c.logger.Info(ctx, "client core ready",
		observe.F("durable", c.db != nil),
		observe.F("credential_tiers", c.credentials.Tiers()))
	return c, nil
}

// openStorage opens the durable tier and builds the credential store.
func (c *Client) openStorage(ctx context.Context) error {
	st := c.cfg.Storage
	if st.Path != "" {
		db, err := kvstore.OpenSQLite(st.Path)
		if err != nil {
			return fmt.Errorf("core: storage: %w", err)
		}
		c.db = db
	}

	credOpts := []credential.Option{
		credential.WithLogger(c.logger.WithComponent("credential")),
	}
	if st.SecureVolatile {
		credOpts = append(credOpts, credential.WithVolatile(kvstore.NewMemory()))
	}
	if st.SecureDurable && c.db != nil {
		credOpts = append(credOpts, credential.WithDurable(c.db))
	}
	c.credentials = credential.New(credOpts...)

	if st.MigrateLegacy && c.db != nil {
		n, err := c.credentials.MigrateLegacy(ctx, c.db)
		if err != nil {
			c.logger.Warn(ctx, "legacy credential migration incomplete", observe.F("error", err))
		} else if n > 0 {
			c.logger.Info(ctx, "migrated legacy credentials", observe.F("count", n))
		}
	}
	return nil
}

// durable returns the durable tier as a kvstore.Store, or nil.
func (c *Client) durable() kvstore.Store {
	if c.db == nil {
		return nil
	}
	return c.db
}

func (c *Client) onUnauthorized(r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	c.credentials.ClearTokens(ctx)
	c.audit.Warn(ctx, "session rejected by server; tokens cleared",
		map[string]any{"path": r.URL.Path})
}

// Close flushes telemetry and closes the durable tier.
func (c *Client) Close(ctx context.Context) error {
	var errs []error
	if c.observer != nil {
		if err := c.observer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) Config() config.Config            { return c.cfg }
func (c *Client) Logger() observe.Logger           { return c.logger }
func (c *Client) Redactor() *redact.Redactor       { return c.redactor }
func (c *Client) Credentials() *credential.Store   { return c.credentials }
func (c *Client) Keys() cache.KeyRegistry          { return c.keys }
func (c *Client) Queries() *cache.QueryCache       { return c.queries }
func (c *Client) Audit() *audit.Logger             { return c.audit }
func (c *Client) API() *api.Client                 { return c.api }
func (c *Client) Settings() *settings.Service      { return c.settings }
func (c *Client) Session() *auth.Session           { return c.session }
func (c *Client) HealthChecks() *health.Aggregator { return c.health }
