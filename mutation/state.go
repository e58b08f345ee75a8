package mutation

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned by Transition for events the phase does
// not accept.
var ErrInvalidTransition = errors.New("mutation: invalid transition")

// Phase is the lifecycle phase of one key.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSaving
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSaving:
		return "saving"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Event drives a Phase change.
type Event int

const (
	EventSubmit Event = iota
	EventSucceed
	EventFail
	EventSettle
)

func (e Event) String() string {
	switch e {
	case EventSubmit:
		return "submit"
	case EventSucceed:
		return "succeed"
	case EventFail:
		return "fail"
	case EventSettle:
		return "settle"
	default:
		return "unknown"
	}
}

// Transition returns the phase that follows p on event e. It has no side
// effects.
func Transition(p Phase, e Event) (Phase, error) {
	switch {
	case p == PhaseIdle && e == EventSubmit:
		return PhaseSaving, nil
	case p == PhaseSaving && e == EventSucceed:
		return PhaseCommitted, nil
	case p == PhaseSaving && e == EventFail:
		return PhaseRolledBack, nil
	case (p == PhaseCommitted || p == PhaseRolledBack) && e == EventSettle:
		return PhaseIdle, nil
	}
	return p, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, p)
}
