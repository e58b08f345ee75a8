package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func healthyFunc(name string) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return Healthy("ok") })
}

func TestNewAggregator_Timeout(t *testing.T) {
	if got := NewAggregator().timeout; got != DefaultTimeout {
		t.Errorf("default timeout = %v, want %v", got, DefaultTimeout)
	}
	if got := NewAggregator(time.Second).timeout; got != time.Second {
		t.Errorf("timeout = %v, want 1s", got)
	}
	if got := NewAggregator(-1).timeout; got != DefaultTimeout {
		t.Errorf("negative timeout = %v, want default", got)
	}
}

func TestAggregator_RegisterOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register("storage", healthyFunc("storage"))
	agg.Register("session", healthyFunc("session"))
	agg.Register("storage", healthyFunc("storage"))

	names := agg.CheckerNames()
	if len(names) != 2 || names[0] != "storage" || names[1] != "session" {
		t.Errorf("CheckerNames() = %v", names)
	}

	agg.Unregister("storage")
	agg.Unregister("missing")
	if names := agg.CheckerNames(); len(names) != 1 || names[0] != "session" {
		t.Errorf("after Unregister = %v", names)
	}
}

func TestAggregator_Check(t *testing.T) {
	agg := NewAggregator()
	agg.Register("storage", healthyFunc("storage"))

	result, err := agg.Check(context.Background(), "storage")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want healthy", result.Status)
	}

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v", err)
	}
}

func TestAggregator_CheckAllRunsConcurrently(t *testing.T) {
	agg := NewAggregator(time.Second)

	var running atomic.Int32
	release := make(chan struct{})
	for _, name := range []string{"a", "b", "c"} {
		agg.Register(name, NewCheckerFunc(name, func(ctx context.Context) Result {
			if running.Add(1) == 3 {
				close(release)
			}
			select {
			case <-release:
				return Healthy("ok")
			case <-ctx.Done():
				return Unhealthy("blocked", ctx.Err())
			}
		}))
	}

	results := agg.CheckAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("len(results) = %d", len(results))
	}
	for name, r := range results {
		if r.Status != StatusHealthy {
			t.Errorf("%s = %v %q, want every checker running at once", name, r.Status, r.Message)
		}
	}
}

func TestAggregator_CheckAllTimeout(t *testing.T) {
	agg := NewAggregator(50 * time.Millisecond)
	agg.Register("fast", healthyFunc("fast"))
	agg.Register("slow", NewCheckerFunc("slow", func(context.Context) Result {
		time.Sleep(300 * time.Millisecond)
		return Healthy("late")
	}))

	start := time.Now()
	results := agg.CheckAll(context.Background())
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("CheckAll took %v, want bounded by timeout", elapsed)
	}

	if results["fast"].Status != StatusHealthy {
		t.Errorf("fast = %v", results["fast"].Status)
	}
	slow := results["slow"]
	if slow.Status != StatusUnhealthy || !errors.Is(slow.Error, ErrCheckTimeout) {
		t.Errorf("slow = %v %v, want unhealthy timeout", slow.Status, slow.Error)
	}
}

func TestAggregator_CheckAllEmpty(t *testing.T) {
	if results := NewAggregator().CheckAll(context.Background()); len(results) != 0 {
		t.Errorf("results = %v", results)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", map[string]Result{}, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy("ok"), "b": Healthy("ok")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy("ok"), "b": Degraded("signed out")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded("slow"), "b": Unhealthy("down", nil)}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
