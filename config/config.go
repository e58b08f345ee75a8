// Package config loads the client core configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/goodleaf/clientcore/cache"
	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/redact"
)

// Prefix is prepended to every environment variable name.
const Prefix = "GOODLEAF_"

// Config is the client core configuration. Every variable is read with
// the GOODLEAF_ prefix, for example GOODLEAF_API_BASE_URL.
type Config struct {
	API       APIConfig       `envPrefix:"API_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Redact    RedactConfig    `envPrefix:"REDACT_"`
	Audit     AuditConfig     `envPrefix:"AUDIT_"`
	Telemetry TelemetryConfig `envPrefix:"TELEMETRY_"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	BaseURL   string        `env:"BASE_URL"   envDefault:"https://api.goodleaf.vn"`
	Timeout   time.Duration `env:"TIMEOUT"    envDefault:"10s"`
	UserAgent string        `env:"USER_AGENT" envDefault:"goodleaf-clientcore"`
}

// CacheConfig configures the query cache policy.
type CacheConfig struct {
	Prefix             string        `env:"PREFIX"               envDefault:"goodleaf:cache"`
	StaleTime          time.Duration `env:"STALE_TIME"           envDefault:"5m"`
	GCTime             time.Duration `env:"GC_TIME"              envDefault:"10m"`
	ReadRetries        int           `env:"READ_RETRIES"         envDefault:"3"`
	WriteRetries       int           `env:"WRITE_RETRIES"        envDefault:"1"`
	RefetchOnFocus     bool          `env:"REFETCH_ON_FOCUS"     envDefault:"false"`
	RefetchOnMount     bool          `env:"REFETCH_ON_MOUNT"     envDefault:"false"`
	RefetchOnReconnect bool          `env:"REFETCH_ON_RECONNECT" envDefault:"false"`
}

// StorageConfig selects the storage tiers. An empty Path disables the
// durable tier. Path expands ${VAR} references.
type StorageConfig struct {
	Path           string `env:"PATH,expand"`
	SecureVolatile bool   `env:"SECURE_VOLATILE" envDefault:"true"`
	SecureDurable  bool   `env:"SECURE_DURABLE"  envDefault:"false"`
	MigrateLegacy  bool   `env:"MIGRATE_LEGACY"  envDefault:"true"`
}

// RedactConfig configures PII scrubbing. PIN and BankAccount match any
// short or long digit run and can be disabled where that is too broad.
type RedactConfig struct {
	Mask        string `env:"MASK"         envDefault:"full"`
	PIN         bool   `env:"PIN"          envDefault:"true"`
	BankAccount bool   `env:"BANK_ACCOUNT" envDefault:"true"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Capacity int `env:"CAPACITY" envDefault:"100"`
}

// TelemetryConfig configures logging, tracing and metrics.
type TelemetryConfig struct {
	ServiceName     string  `env:"SERVICE_NAME"     envDefault:"goodleaf-client"`
	Version         string  `env:"VERSION"          envDefault:"dev"`
	LogLevel        string  `env:"LOG_LEVEL"        envDefault:"info"`
	TracingExporter string  `env:"TRACING_EXPORTER" envDefault:"none"`
	TracingEndpoint string  `env:"TRACING_ENDPOINT"`
	SamplePct       float64 `env:"SAMPLE_PCT"       envDefault:"1"`
	MetricsExporter string  `env:"METRICS_EXPORTER" envDefault:"none"`
	MetricsEndpoint string  `env:"METRICS_ENDPOINT"`
}

// Configuration errors.
var (
	ErrInvalidBaseURL  = errors.New("config: api base URL must be an absolute http(s) URL")
	ErrInvalidDuration = errors.New("config: duration must be positive")
	ErrInvalidRetries  = errors.New("config: retries must not be negative")
	ErrInvalidMask     = errors.New("config: mask must be full or partial")
	ErrNoSecureTier    = errors.New("config: no credential tier enabled")
	ErrNoStoragePath   = errors.New("config: durable tier requires a storage path")
	ErrInvalidCapacity = errors.New("config: audit capacity must be positive")
)

// Load reads the configuration from the process environment and validates
// it.
func Load() (Config, error) {
	return load(env.Options{Prefix: Prefix})
}

// LoadFrom reads the configuration from environ instead of the process
// environment. Keys include the GOODLEAF_ prefix.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Prefix: Prefix, Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no variable is set.
func Default() Config {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		// The envDefault tags are constant and valid.
		panic(err)
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.API.BaseURL)
	}
	for name, d := range map[string]time.Duration{
		"api timeout":      c.API.Timeout,
		"cache stale time": c.Cache.StaleTime,
		"cache gc time":    c.Cache.GCTime,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s is %s", ErrInvalidDuration, name, d)
		}
	}
	if c.Cache.ReadRetries < 0 || c.Cache.WriteRetries < 0 {
		return ErrInvalidRetries
	}

	if !slices.Contains([]string{"full", "partial"}, c.Redact.Mask) {
		return fmt.Errorf("%w: %q", ErrInvalidMask, c.Redact.Mask)
	}

	if !c.Storage.SecureVolatile && !c.Storage.SecureDurable {
		return ErrNoSecureTier
	}
	if c.Storage.SecureDurable && c.Storage.Path == "" {
		return ErrNoStoragePath
	}

	if c.Audit.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, c.Audit.Capacity)
	}

	obs := c.Observe()
	return obs.Validate()
}

// Policy returns the query cache policy described by c.
func (c *Config) Policy() cache.Policy {
	p := cache.DefaultPolicy()
	p.StaleTime = c.Cache.StaleTime
	p.GCTime = c.Cache.GCTime
	p.ReadRetries = c.Cache.ReadRetries
	p.WriteRetries = c.Cache.WriteRetries
	p.RequestTimeout = c.API.Timeout
	p.RefetchOnWindowFocus = c.Cache.RefetchOnFocus
	p.RefetchOnMount = c.Cache.RefetchOnMount
	p.RefetchOnReconnect = c.Cache.RefetchOnReconnect
	return p
}

// RedactOptions returns the scrubbing options described by c.
func (c *Config) RedactOptions() redact.Options {
	opts := redact.DefaultOptions()
	opts.Mask = redact.ParseMaskMode(c.Redact.Mask)
	opts.PIN = c.Redact.PIN
	opts.BankAccount = c.Redact.BankAccount
	return opts
}

// Observe returns the telemetry configuration described by c.
func (c *Config) Observe() observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: t.ServiceName,
		Version:     t.Version,
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingExporter != "none" && t.TracingExporter != "",
			Exporter:  t.TracingExporter,
			Endpoint:  t.TracingEndpoint,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsExporter != "none" && t.MetricsExporter != "",
			Exporter: t.MetricsExporter,
			Endpoint: t.MetricsEndpoint,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
		},
	}
}
