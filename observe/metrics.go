package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records client-side resilience metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one backend request with its duration and outcome.
	RecordRequest(ctx context.Context, op Operation, duration time.Duration, err error)

	// RecordCacheLookup records a cache lookup; outcome is hit, stale or miss.
	RecordCacheLookup(ctx context.Context, namespace, tier, outcome string)

	// RecordMutation records a settled or dropped mutation.
	RecordMutation(ctx context.Context, key, outcome string)
}

type metricsImpl struct {
	requestCount    metric.Int64Counter
	requestErrors   metric.Int64Counter
	requestDuration metric.Float64Histogram
	cacheLookups    metric.Int64Counter
	mutations       metric.Int64Counter
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	requestCount, err := meter.Int64Counter(
		"client.request.total",
		metric.WithDescription("Total number of backend requests"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	requestErrors, err := meter.Int64Counter(
		"client.request.errors",
		metric.WithDescription("Total number of failed backend requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"client.request.duration_ms",
		metric.WithDescription("Backend request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"client.cache.lookups",
		metric.WithDescription("Cache lookups by tier and outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	mutations, err := meter.Int64Counter(
		"client.mutation.settled",
		metric.WithDescription("Optimistic mutations by outcome"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		requestCount:    requestCount,
		requestErrors:   requestErrors,
		requestDuration: requestDuration,
		cacheLookups:    cacheLookups,
		mutations:       mutations,
	}, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, op Operation, duration time.Duration, err error) {
	opt := metric.WithAttributes(op.attributes()...)

	m.requestCount.Add(ctx, 1, opt)
	if err != nil {
		m.requestErrors.Add(ctx, 1, opt)
	}
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, namespace, tier, outcome string) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.namespace", namespace),
		attribute.String("cache.tier", tier),
		attribute.String("cache.outcome", outcome),
	))
}

func (m *metricsImpl) RecordMutation(ctx context.Context, key, outcome string) {
	m.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mutation.key", key),
		attribute.String("mutation.outcome", outcome),
	))
}

type nopMetrics struct{}

// NopMetrics returns Metrics that record nothing.
func NopMetrics() Metrics {
	return nopMetrics{}
}

func (nopMetrics) RecordRequest(context.Context, Operation, time.Duration, error) {}
func (nopMetrics) RecordCacheLookup(context.Context, string, string, string)      {}
func (nopMetrics) RecordMutation(context.Context, string, string)                 {}
