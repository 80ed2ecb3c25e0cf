package flowstate

import (
	"context"
	"fmt"

	"github.com/dshills/flowstate/hook"
)

// Guard is a per-transition predicate. A transition whose guard returns
// false is skipped and matching falls through to the next rule for the same
// event and source state.
type Guard func(ctx context.Context, e hook.TransitionEvent) bool

// rule is one declared transition.
type rule struct {
	event string
	from  string
	to    string
	guard Guard
}

// TransitionOption configures a declared transition.
type TransitionOption func(*rule)

// WithGuard attaches a predicate to the transition.
func WithGuard(g Guard) TransitionOption {
	return func(r *rule) {
		r.guard = g
	}
}

// Definition is the transition graph builder. Builder methods return the
// receiver for chaining; Validate or New report inconsistencies.
type Definition struct {
	initial string
	states  []string
	events  []string
	rules   []rule

	stateSet map[string]bool
	eventSet map[string]bool
}

// NewDefinition creates an empty definition.
func NewDefinition() *Definition {
	return &Definition{
		stateSet: make(map[string]bool),
		eventSet: make(map[string]bool),
	}
}

// Initial sets the starting state, declaring it if needed.
func (d *Definition) Initial(name string) *Definition {
	d.initial = name
	d.addState(name)
	return d
}

// State declares one or more states. States referenced by Transition are
// declared implicitly; State exists for unreachable or documentation-only
// states and for vocabulary-first declarations.
func (d *Definition) State(names ...string) *Definition {
	for _, name := range names {
		d.addState(name)
	}
	return d
}

// Transition declares that event moves the machine from one state to
// another. The source may be the wildcard hook.AnyState, matching every
// current state. States and the event name are declared implicitly.
//
// Multiple rules may share an event and source; they are tried in
// declaration order and a false guard falls through to the next.
func (d *Definition) Transition(event, from, to string, opts ...TransitionOption) *Definition {
	r := rule{event: event, from: from, to: to}
	for _, opt := range opts {
		opt(&r)
	}
	d.rules = append(d.rules, r)

	if !d.eventSet[event] {
		d.eventSet[event] = true
		d.events = append(d.events, event)
	}
	if from != hook.AnyState {
		d.addState(from)
	}
	d.addState(to)
	return d
}

func (d *Definition) addState(name string) {
	if name == "" || d.stateSet[name] {
		return
	}
	d.stateSet[name] = true
	d.states = append(d.states, name)
}

// States returns the declared state names in declaration order.
func (d *Definition) States() []string {
	out := make([]string, len(d.states))
	copy(out, d.states)
	return out
}

// Events returns the declared event names in declaration order.
func (d *Definition) Events() []string {
	out := make([]string, len(d.events))
	copy(out, d.events)
	return out
}

// Validate checks the definition for consistency.
func (d *Definition) Validate() error {
	if d.initial == "" {
		return ErrNoInitialState
	}
	if !d.stateSet[d.initial] {
		return &DefinitionError{Reason: fmt.Sprintf("initial state %q not defined", d.initial)}
	}
	if len(d.rules) == 0 {
		return &DefinitionError{Reason: "no transitions defined"}
	}
	for _, name := range d.states {
		if hook.IsWildcard(name) {
			return &DefinitionError{Reason: fmt.Sprintf("state %q is a reserved name", name)}
		}
	}
	for _, name := range d.events {
		if hook.IsWildcard(name) {
			return &DefinitionError{Reason: fmt.Sprintf("event %q is a reserved name", name)}
		}
	}
	for _, r := range d.rules {
		if r.event == "" {
			return &DefinitionError{Reason: "transition with empty event name"}
		}
		if r.from != hook.AnyState && !d.stateSet[r.from] {
			return &DefinitionError{Reason: fmt.Sprintf("transition from undefined state %q", r.from)}
		}
		if !d.stateSet[r.to] {
			return &DefinitionError{Reason: fmt.Sprintf("transition to undefined state %q", r.to)}
		}
	}
	return nil
}

// match returns the first rule accepting event from the given state whose
// guard passes, or nil.
func (d *Definition) match(ctx context.Context, event, from string, e hook.TransitionEvent) *rule {
	for i := range d.rules {
		r := &d.rules[i]
		if r.event != event {
			continue
		}
		if r.from != from && r.from != hook.AnyState {
			continue
		}
		if r.guard != nil {
			e.To = r.to
			if !r.guard(ctx, e) {
				continue
			}
		}
		return r
	}
	return nil
}
