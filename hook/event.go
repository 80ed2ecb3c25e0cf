package hook

import "sync/atomic"

// EventType identifies the lifecycle point of a transition being announced.
type EventType int

const (
	// Any matches every event type; used as a registry key, never fired.
	Any EventType = iota

	// EnterState announces entry into a state, keyed by the state name.
	EnterState

	// ExitState announces exit from a state, keyed by the state name.
	ExitState

	// TransitionState announces the state-level transition, keyed by the
	// target state name.
	TransitionState

	// EnterAction announces entry, keyed by the triggering event name.
	EnterAction

	// ExitAction announces exit, keyed by the triggering event name.
	ExitAction

	// TransitionAction announces the transition, keyed by the triggering
	// event name.
	TransitionAction
)

// String returns a human-readable event type name.
func (t EventType) String() string {
	switch t {
	case Any:
		return "any"
	case EnterState:
		return "enter_state"
	case ExitState:
		return "exit_state"
	case TransitionState:
		return "transition_state"
	case EnterAction:
		return "enter_action"
	case ExitAction:
		return "exit_action"
	case TransitionAction:
		return "transition_action"
	default:
		return "unknown"
	}
}

// Wildcard registration names. AnyState and AnyEvent share one value: both
// mean "this name slot matches anything" and are matched at name-level
// priority. AnyStateHook and AnyEventHook are matched last, at hook-level
// priority.
const (
	AnyState     = "any"
	AnyEvent     = "any"
	AnyStateHook = "state"
	AnyEventHook = "event"
)

// IsWildcard reports whether name is one of the wildcard sentinels.
func IsWildcard(name string) bool {
	return name == AnyState || name == AnyStateHook || name == AnyEventHook
}

// Transition is the in-flight transition an event belongs to. The cancelled
// flag is set by the observer when a synchronous hook vetoes the transition
// and is read by the owning machine before committing.
type Transition struct {
	// Event is the name of the triggering event.
	Event string

	// From is the source state.
	From string

	// To is the target state.
	To string

	cancelled atomic.Bool
}

// Cancel marks the transition as vetoed.
func (t *Transition) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether a hook vetoed the transition.
func (t *Transition) Cancelled() bool {
	return t.cancelled.Load()
}

// Event is a single lifecycle announcement fired by the owning machine.
// Events are immutable once created.
type Event struct {
	// Type is the lifecycle point being announced.
	Type EventType

	// Name is the registry key the event is matched under: a state name for
	// state-flavored types, the triggering event name for action-flavored
	// types.
	Name string

	// Transition is the in-flight transition context.
	Transition *Transition

	// Data is the caller-supplied payload passed through to hooks.
	Data []any
}

// NewEvent creates a new event for the given lifecycle point.
func NewEvent(t EventType, name string, tr *Transition, data ...any) *Event {
	return &Event{
		Type:       t,
		Name:       name,
		Transition: tr,
		Data:       data,
	}
}

// TransitionEvent is the immutable snapshot handed to each hook invocation.
type TransitionEvent struct {
	// Event is the name of the triggering event.
	Event string

	// From is the source state of the transition.
	From string

	// To is the target state of the transition.
	To string

	// Data is the payload supplied when the event was fired. Hooks must
	// treat it as read-only.
	Data []any
}

// snapshot builds the per-invocation view of the event.
func (e *Event) snapshot() TransitionEvent {
	te := TransitionEvent{Data: e.Data}
	if e.Transition != nil {
		te.Event = e.Transition.Event
		te.From = e.Transition.From
		te.To = e.Transition.To
	}
	return te
}
