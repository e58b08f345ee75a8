package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type ctxKey struct{}

func TestMiddleware_SuccessPath(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	metricReader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader))
	metrics, _ := NewMetrics(mp.Meter("test"))

	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NopLogger())

	called := false
	wrapped := mw.Wrap(func(ctx context.Context, op Operation) error {
		called = true
		return nil
	})

	if err := wrapped(context.Background(), Operation{Component: "api", Name: "loan"}); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !called {
		t.Fatal("inner function not called")
	}

	spans := spanRecorder.Ended()
	if len(spans) != 1 || spans[0].Name() != "api.loan" {
		t.Fatalf("unexpected spans: %v", spans)
	}
	if got := sumValue(t, collect(t, metricReader), "client.request.total"); got != 1 {
		t.Errorf("client.request.total = %d, want 1", got)
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	var buf bytes.Buffer
	mw := NewMiddleware(nil, nil, NewLoggerWithWriter("info", &buf))

	want := errors.New("backend unavailable")
	err := mw.Wrap(func(context.Context, Operation) error { return want })(context.Background(), Operation{Name: "loan"})
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["level"] != "warn" {
		t.Fatalf("expected one warn entry, got %v", entries)
	}
	if entries[0]["error"] != "backend unavailable" {
		t.Errorf("error field = %v", entries[0]["error"])
	}
}

func TestMiddleware_PropagatesContext(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)

	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	var got any
	_ = mw.Wrap(func(ctx context.Context, _ Operation) error {
		got = ctx.Value(ctxKey{})
		return nil
	})(ctx, Operation{Name: "x"})

	if got != "v" {
		t.Errorf("context value = %v, want v", got)
	}
}
