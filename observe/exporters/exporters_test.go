package exporters

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestExporter_InvalidName(t *testing.T) {
	_, err := NewTracingExporter(context.Background(), Options{Name: "jaeger"})
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
	_, err = NewMetricsReader(context.Background(), Options{Name: "invalid"})
	if !errors.Is(err, ErrUnknownExporter) {
		t.Fatalf("err = %v, want ErrUnknownExporter", err)
	}
}

func TestExporter_StdoutTracing(t *testing.T) {
	var buf bytes.Buffer
	exp, err := NewTracingExporter(context.Background(), Options{Name: "stdout", Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create stdout tracing exporter: %v", err)
	}
	if exp == nil {
		t.Fatal("expected non-nil exporter")
	}
	_ = exp.Shutdown(context.Background())
}

func TestExporter_StdoutMetrics(t *testing.T) {
	var buf bytes.Buffer
	reader, err := NewMetricsReader(context.Background(), Options{Name: "stdout", Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create stdout metrics reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
	_ = reader.Shutdown(context.Background())
}

func TestExporter_None(t *testing.T) {
	for _, name := range []string{"none", ""} {
		exp, err := NewTracingExporter(context.Background(), Options{Name: name})
		if err != nil || exp != nil {
			t.Errorf("tracing %q = (%v, %v), want (nil, nil)", name, exp, err)
		}
		reader, err := NewMetricsReader(context.Background(), Options{Name: name})
		if err != nil || reader != nil {
			t.Errorf("metrics %q = (%v, %v), want (nil, nil)", name, reader, err)
		}
	}
}

func TestExporter_OtlpMissingEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	_, err := NewTracingExporter(context.Background(), Options{Name: "otlp"})
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("tracing err = %v, want ErrMissingEndpoint", err)
	}
	_, err = NewMetricsReader(context.Background(), Options{Name: "otlp"})
	if !errors.Is(err, ErrMissingEndpoint) {
		t.Fatalf("metrics err = %v, want ErrMissingEndpoint", err)
	}
}

func TestExporter_OtlpWithEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	tests := []struct {
		name     string
		endpoint string
	}{
		{"host port", "localhost:4317"},
		{"url", "http://localhost:4317"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp, err := NewTracingExporter(context.Background(), Options{Name: "otlp", Endpoint: tt.endpoint})
			if err != nil {
				t.Fatalf("failed to create OTLP exporter: %v", err)
			}
			_ = exp.Shutdown(context.Background())
		})
	}
}

func TestExporter_OtlpFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4317")

	reader, err := NewMetricsReader(context.Background(), Options{Name: "otlp"})
	if err != nil {
		t.Fatalf("failed to create OTLP metrics reader: %v", err)
	}
	_ = reader.Shutdown(context.Background())
}

func TestExporter_Prometheus(t *testing.T) {
	reader, err := NewMetricsReader(context.Background(), Options{Name: "prometheus"})
	if err != nil {
		t.Fatalf("failed to create Prometheus reader: %v", err)
	}
	if reader == nil {
		t.Fatal("expected non-nil reader")
	}
}
