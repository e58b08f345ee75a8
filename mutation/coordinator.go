package mutation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goodleaf/clientcore/cache"
	"github.com/goodleaf/clientcore/observe"
	"github.com/goodleaf/clientcore/resilience"
)

// ErrNilChange is returned by Mutate when change is nil.
var ErrNilChange = errors.New("mutation: nil change")

// SendFunc writes value to the server and returns the canonical value the
// server stored.
type SendFunc[T any] func(ctx context.Context, key string, value T) (T, error)

// CommitHook runs after a key commits, with the new confirmed value.
type CommitHook[T any] func(ctx context.Context, key string, confirmed T)

// State is a point-in-time view of one key.
type State[T any] struct {
	Phase     Phase
	Visible   T
	Confirmed T

	// Seeded reports whether a confirmed value has ever been set.
	Seeded bool
}

type slot[T any] struct {
	phase     Phase
	visible   T
	confirmed T
	seeded    bool
}

// Coordinator runs optimistic mutations for values of type T.
//
// T is treated as a value: change functions must return a new value
// rather than modify shared memory reachable from their argument.
//
// Contract:
// - Concurrency: safe for concurrent use. Keys are serialized
// individually; no lock is held while a request is in flight.
// - Cancellation: a started send runs to settlement even if the caller's
// context is cancelled.
type Coordinator[T any] struct {
	mu    sync.Mutex
	slots map[string]*slot[T]

	send           SendFunc[T]
	exec           *resilience.Executor
	notifier       Notifier
	hooks          []CommitHook[T]
	failureMessage func(error) string
	logger         observe.Logger
	metrics        observe.Metrics
}

// Option configures a Coordinator.
type Option[T any] func(*Coordinator[T])

// WithPolicy sends through the policy's write retry and request timeout.
// Without it, DefaultPolicy is used.
func WithPolicy[T any](p cache.Policy) Option[T] {
	return func(c *Coordinator[T]) {
		c.exec = p.WriteExecutor(c.onRetry)
	}
}

// WithNotifier sets the receiver of settlement notifications.
func WithNotifier[T any](n Notifier) Option[T] {
	return func(c *Coordinator[T]) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithCommitHook adds a hook run after every commit.
func WithCommitHook[T any](h CommitHook[T]) Option[T] {
	return func(c *Coordinator[T]) {
		if h != nil {
			c.hooks = append(c.hooks, h)
		}
	}
}

// WithFailureMessage overrides how failures are described to the user.
func WithFailureMessage[T any](f func(error) string) Option[T] {
	return func(c *Coordinator[T]) {
		if f != nil {
			c.failureMessage = f
		}
	}
}

// WithLogger sets the logger.
func WithLogger[T any](l observe.Logger) Option[T] {
	return func(c *Coordinator[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink for mutation outcomes.
func WithMetrics[T any](m observe.Metrics) Option[T] {
	return func(c *Coordinator[T]) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCoordinator creates a Coordinator that persists values with send.
func NewCoordinator[T any](send SendFunc[T], opts ...Option[T]) *Coordinator[T] {
	c := &Coordinator[T]{
		slots:          make(map[string]*slot[T]),
		send:           send,
		notifier:       nopNotifier{},
		failureMessage: defaultFailureMessage,
		logger:         observe.NopLogger(),
		metrics:        observe.NopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.exec == nil {
		c.exec = cache.DefaultPolicy().WriteExecutor(c.onRetry)
	}
	return c
}

func (c *Coordinator[T]) onRetry(attempt int, err error, delay time.Duration) {
	c.logger.Debug(context.Background(), "retrying mutation",
		observe.F("attempt", attempt), observe.F("delay_ms", delay.Milliseconds()), observe.F("error", err))
}

// slot returns the slot for key, creating it. Callers hold c.mu.
func (c *Coordinator[T]) slot(key string) *slot[T] {
	s, ok := c.slots[key]
	if !ok {
		s = &slot[T]{}
		c.slots[key] = s
	}
	return s
}

// Seed sets the confirmed value of key, typically after a load. It
// returns false and changes nothing while key is saving.
func (c *Coordinator[T]) Seed(key string, confirmed T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slot(key)
	if s.phase != PhaseIdle {
		return false
	}
	s.confirmed = confirmed
	s.visible = confirmed
	s.seeded = true
	return true
}

// Visible returns the value currently shown for key.
func (c *Coordinator[T]) Visible(key string) T {
	return c.Snapshot(key).Visible
}

// Snapshot returns the state of key.
func (c *Coordinator[T]) Snapshot(key string) State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok {
		return State[T]{}
	}
	return State[T]{
		Phase:     s.phase,
		Visible:   s.visible,
		Confirmed: s.confirmed,
		Seeded:    s.seeded,
	}
}

// Mutate applies change to the visible value of key and saves the result.
// It returns once the mutation has settled.
//
// If key is already saving the call is dropped: it returns OutcomeDropped
// and a nil error without contacting the server. A failed save returns
// OutcomeRolledBack with the cause.
func (c *Coordinator[T]) Mutate(ctx context.Context, key string, change func(T) T) (Outcome, error) {
	if change == nil {
		return OutcomeDropped, ErrNilChange
	}

	c.mu.Lock()
	s := c.slot(key)
	next, err := Transition(s.phase, EventSubmit)
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug(ctx, "mutation dropped", observe.F("key", key), observe.F("phase", s.phase.String()))
		c.metrics.RecordMutation(ctx, key, OutcomeDropped.String())
		return OutcomeDropped, nil
	}
	previous := s.visible
	optimistic := change(previous)
	s.phase = next
	s.visible = optimistic
	c.mu.Unlock()

	// Settlement outlives the caller: the save, hooks and notification all
	// run even if ctx is cancelled mid-flight.
	settleCtx := context.WithoutCancel(ctx)
	canonical, sendErr := c.sendValue(settleCtx, key, optimistic)

	if sendErr != nil {
		c.settle(key, EventFail, func(s *slot[T]) {
			s.visible = previous
		})
		c.logger.Warn(settleCtx, "mutation rolled back", observe.F("key", key), observe.F("error", sendErr))
		c.metrics.RecordMutation(settleCtx, key, OutcomeRolledBack.String())
		c.notifier.Notify(settleCtx, Notification{
			Key:     key,
			Outcome: OutcomeRolledBack,
			Message: c.failureMessage(sendErr),
			Err:     sendErr,
		})
		c.finish(key)
		return OutcomeRolledBack, sendErr
	}

	c.settle(key, EventSucceed, func(s *slot[T]) {
		s.visible = canonical
		s.confirmed = canonical
		s.seeded = true
	})
	c.logger.Debug(settleCtx, "mutation committed", observe.F("key", key))
	c.metrics.RecordMutation(settleCtx, key, OutcomeCommitted.String())
	for _, h := range c.hooks {
		h(settleCtx, key, canonical)
	}
	c.notifier.Notify(settleCtx, Notification{
		Key:     key,
		Outcome: OutcomeCommitted,
		Message: DefaultSuccessMessage,
	})
	c.finish(key)
	return OutcomeCommitted, nil
}

// sendValue runs send through the executor. A timed-out attempt may still
// complete in the background, so its result is guarded.
func (c *Coordinator[T]) sendValue(ctx context.Context, key string, value T) (T, error) {
	var (
		mu        sync.Mutex
		canonical T
	)
	err := c.exec.Execute(ctx, func(ctx context.Context) error {
		v, err := c.send(ctx, key, value)
		if err != nil {
			return err
		}
		mu.Lock()
		canonical = v
		mu.Unlock()
		return nil
	})

	mu.Lock()
	defer mu.Unlock()
	return canonical, err
}

// settle moves key out of Saving on e and applies update under the lock.
func (c *Coordinator[T]) settle(key string, e Event, update func(*slot[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slot(key)
	next, err := Transition(s.phase, e)
	if err != nil {
		c.logger.Error(context.Background(), "mutation settled out of order",
			observe.F("key", key), observe.F("error", err))
	}
	s.phase = next
	update(s)
}

// finish returns key to Idle.
func (c *Coordinator[T]) finish(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.slot(key)
	if next, err := Transition(s.phase, EventSettle); err == nil {
		s.phase = next
	}
}
