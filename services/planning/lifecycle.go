package planning

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

// LifecycleState is the state of a strategy's lifecycle.
type LifecycleState uint8

// The lifecycle states.
const (
	StateUninitialized LifecycleState = iota
	StateInitialized
	StateRunning
	StateStopped
)

func (s LifecycleState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// legalTransitions lists, per target state, the states it may be entered from. Strategies whose
// Stop is idempotent treat an illegal Stopped transition as a no-op.
var legalTransitions = map[LifecycleState][]LifecycleState{
	StateInitialized: {StateUninitialized},
	StateRunning:     {StateInitialized, StateStopped},
	StateStopped:     {StateRunning},
}

// Lifecycle guards the Init/Start/Stop state machine of a strategy. It is safe for concurrent
// use.
type Lifecycle struct {
	mu    sync.Mutex
	state LifecycleState
}

// State returns the current state.
func (l *Lifecycle) State() LifecycleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Transition moves to the target state if that is legal from the current one. Entering Running
// from Running returns ErrAlreadyRunning; anything else illegal returns ErrIllegalTransition.
//
// When enter is non-nil it runs under the lifecycle lock before the state changes, and an error
// from it aborts the transition.
func (l *Lifecycle) Transition(to LifecycleState, enter func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if to == StateRunning && l.state == StateRunning {
		return ErrAlreadyRunning
	}
	legal := false
	for _, from := range legalTransitions[to] {
		if from == l.state {
			legal = true
			break
		}
	}
	if !legal {
		return errors.Wrapf(ErrIllegalTransition, "cannot go from %s to %s", l.state, to)
	}
	if enter != nil {
		if err := enter(); err != nil {
			return err
		}
	}
	l.state = to
	return nil
}
