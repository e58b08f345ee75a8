package mutation

import (
	"context"
)

// Outcome is how a Mutate call ended.
type Outcome int

const (
	// OutcomeCommitted means the server accepted the change.
	OutcomeCommitted Outcome = iota

	// OutcomeRolledBack means the change failed and the previous value
	// was restored.
	OutcomeRolledBack

	// OutcomeDropped means the key was already saving; nothing was sent.
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled_back"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Notification is the user-facing signal raised once per settled mutation.
type Notification struct {
	Key     string
	Outcome Outcome

	// Message is human-readable and safe to show to the user.
	Message string

	// Err is the failure cause, nil on success.
	Err error
}

// Notifier receives settlement notifications.
//
// Contract:
// - Concurrency: may be called from multiple goroutines.
// - Notify must not block for long; it runs on the mutating goroutine.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}

const (
	DefaultSuccessMessage = "Changes saved."
	DefaultFailureMessage = "We couldn't save your changes. Please try again."
)

func defaultFailureMessage(error) string {
	return DefaultFailureMessage
}

var (
	_ Notifier = NotifierFunc(nil)
	_ Notifier = nopNotifier{}
)
