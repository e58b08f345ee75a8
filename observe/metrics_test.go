package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64] for %s, got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	op := Operation{Component: "api", Name: "GET /api/v1/loans/{id}"}

	m.RecordRequest(context.Background(), op, 120*time.Millisecond, nil)
	m.RecordRequest(context.Background(), op, 80*time.Millisecond, errors.New("503"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, "client.request.total"); got != 2 {
		t.Errorf("client.request.total = %d, want 2", got)
	}
	if got := sumValue(t, rm, "client.request.errors"); got != 1 {
		t.Errorf("client.request.errors = %d, want 1", got)
	}
	hist := findMetric(rm, "client.request.duration_ms")
	if hist == nil {
		t.Fatal("client.request.duration_ms not found")
	}
	data, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", hist.Data)
	}
	if data.DataPoints[0].Count != 2 {
		t.Errorf("histogram count = %d, want 2", data.DataPoints[0].Count)
	}
}

func TestMetrics_CacheAndMutation(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordCacheLookup(context.Background(), "loans", "memory", "hit")
	m.RecordCacheLookup(context.Background(), "loans", "persisted", "miss")
	m.RecordMutation(context.Background(), "notification-settings", "committed")

	rm := collect(t, reader)
	if got := sumValue(t, rm, "client.cache.lookups"); got != 2 {
		t.Errorf("client.cache.lookups = %d, want 2", got)
	}
	if got := sumValue(t, rm, "client.mutation.settled"); got != 1 {
		t.Errorf("client.mutation.settled = %d, want 1", got)
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.RecordRequest(context.Background(), Operation{Name: "x"}, time.Second, nil)
	m.RecordCacheLookup(context.Background(), "", "", "")
	m.RecordMutation(context.Background(), "", "")
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
