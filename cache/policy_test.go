package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goodleaf/clientcore/resilience"
)

type statusError int

func (e statusError) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusError) StatusCode() int { return int(e) }

func TestPolicy_DefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	if p.StaleTime != 5*time.Minute {
		t.Errorf("StaleTime = %v, want 5m", p.StaleTime)
	}
	if p.GCTime != 10*time.Minute {
		t.Errorf("GCTime = %v, want 10m", p.GCTime)
	}
	if p.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", p.RequestTimeout)
	}
	for _, trig := range []Trigger{TriggerWindowFocus, TriggerMount, TriggerReconnect} {
		if p.ShouldRefetch(trig) {
			t.Errorf("ShouldRefetch(%v) = true, want false", trig)
		}
	}
}

func TestPolicy_ShouldRefetchFlags(t *testing.T) {
	p := Policy{RefetchOnReconnect: true}
	if !p.ShouldRefetch(TriggerReconnect) || p.ShouldRefetch(TriggerMount) {
		t.Error("ShouldRefetch does not follow flags")
	}
}

func TestPolicy_IsFresh(t *testing.T) {
	p := DefaultPolicy()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		updatedAt time.Time
		want      bool
	}{
		{"just written", now, true},
		{"4m59s old", now.Add(-4*time.Minute - 59*time.Second), true},
		{"5m old", now.Add(-5 * time.Minute), false},
		{"zero", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsFresh(tt.updatedAt, now); got != tt.want {
				t.Errorf("IsFresh() = %v, want %v", got, tt.want)
			}
		})
	}

	if NoCachePolicy().IsFresh(now, now) {
		t.Error("NoCachePolicy should never be fresh")
	}
}

func TestPolicy_ReadRetrySchedule(t *testing.T) {
	r := DefaultPolicy().ReadRetry(nil)

	if got := r.Attempts(); got != 4 {
		t.Errorf("Attempts() = %d, want 4 (3 retries)", got)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := r.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
	if got := r.Delay(8); got != 30*time.Second {
		t.Errorf("Delay(8) = %v, want 30s cap", got)
	}
}

func TestPolicy_WriteRetrySchedule(t *testing.T) {
	r := DefaultPolicy().WriteRetry(nil)

	if got := r.Attempts(); got != 2 {
		t.Errorf("Attempts() = %d, want 2 (1 retry)", got)
	}
	if got := r.Delay(1); got != time.Second {
		t.Errorf("Delay(1) = %v, want 1s", got)
	}
}

func fastPolicy() Policy {
	p := DefaultPolicy()
	p.ReadRetryBase = time.Millisecond
	p.ReadRetryMax = 5 * time.Millisecond
	p.WriteRetryDelay = time.Millisecond
	p.RequestTimeout = 200 * time.Millisecond
	return p
}

func TestPolicy_ReadExecutorClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int32
	}{
		{"404 not retried", statusError(404), 1},
		{"401 not retried", statusError(401), 1},
		{"500 retried 3 times", statusError(500), 4},
		{"timeout retried", resilience.ErrTimeout, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			err := fastPolicy().ReadExecutor(nil).Execute(context.Background(), func(context.Context) error {
				calls.Add(1)
				return tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want wrapping %v", err, tt.err)
			}
			if calls.Load() != tt.attempts {
				t.Errorf("attempts = %d, want %d", calls.Load(), tt.attempts)
			}
		})
	}
}

func TestPolicy_WriteExecutorRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	_ = fastPolicy().WriteExecutor(nil).Execute(context.Background(), func(context.Context) error {
		calls.Add(1)
		return statusError(500)
	})
	if calls.Load() != 2 {
		t.Errorf("attempts = %d, want 2", calls.Load())
	}
}

func TestTrigger_String(t *testing.T) {
	if TriggerReconnect.String() != "reconnect" || Trigger(99).String() != "unknown" {
		t.Error("unexpected Trigger.String()")
	}
}
