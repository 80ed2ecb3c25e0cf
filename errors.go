package flowstate

import (
	"errors"
	"fmt"
)

// Sentinel errors for the flowstate package.
var (
	// ErrNoInitialState is returned by Validate when no initial state is set.
	ErrNoInitialState = errors.New("no initial state defined")

	// ErrMachineStopped is returned when firing into a stopped machine.
	ErrMachineStopped = errors.New("machine stopped")
)

// TransitionError is returned by Fire when no transition rule accepts the
// event from the machine's current state.
type TransitionError struct {
	// Event is the fired event name.
	Event string

	// From is the state the machine was in.
	From string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition for event %q from state %q", e.Event, e.From)
}

// DefinitionError is returned by Validate when the transition graph is
// inconsistent.
type DefinitionError struct {
	// Reason describes the inconsistency.
	Reason string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	return "invalid definition: " + e.Reason
}
