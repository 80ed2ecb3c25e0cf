package flowstate

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/flowstate/hook"
)

func trafficLight() *Definition {
	return NewDefinition().
		Initial("green").
		Transition("slow", "green", "yellow").
		Transition("stop", "yellow", "red").
		Transition("go", "red", "green")
}

func TestDefinitionImplicitDeclarations(t *testing.T) {
	d := trafficLight()

	wantStates := []string{"green", "yellow", "red"}
	states := d.States()
	if len(states) != len(wantStates) {
		t.Fatalf("States() = %v, want %v", states, wantStates)
	}
	for i := range wantStates {
		if states[i] != wantStates[i] {
			t.Errorf("state %d = %q, want %q", i, states[i], wantStates[i])
		}
	}

	wantEvents := []string{"slow", "stop", "go"}
	events := d.Events()
	if len(events) != len(wantEvents) {
		t.Fatalf("Events() = %v, want %v", events, wantEvents)
	}
	for i := range wantEvents {
		if events[i] != wantEvents[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], wantEvents[i])
		}
	}
}

func TestDefinitionValidate(t *testing.T) {
	if err := trafficLight().Validate(); err != nil {
		t.Errorf("valid definition rejected: %v", err)
	}

	if err := NewDefinition().Transition("go", "a", "b").Validate(); !errors.Is(err, ErrNoInitialState) {
		t.Errorf("missing initial = %v, want ErrNoInitialState", err)
	}

	var defErr *DefinitionError
	if err := NewDefinition().Initial("a").Validate(); !errors.As(err, &defErr) {
		t.Errorf("no transitions = %v, want DefinitionError", err)
	}
	if err := NewDefinition().Initial("a").Transition("go", "a", "b").State("any").Validate(); !errors.As(err, &defErr) {
		t.Errorf("reserved state name = %v, want DefinitionError", err)
	}
	if err := NewDefinition().Initial("a").Transition("state", "a", "b").Validate(); !errors.As(err, &defErr) {
		t.Errorf("reserved event name = %v, want DefinitionError", err)
	}
}

func TestDefinitionMatchGuardFallthrough(t *testing.T) {
	d := NewDefinition().
		Initial("idle").
		Transition("run", "idle", "fast", WithGuard(func(ctx context.Context, e hook.TransitionEvent) bool {
			return len(e.Data) > 0 && e.Data[0] == "turbo"
		})).
		Transition("run", "idle", "steady")

	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}

	probe := hook.TransitionEvent{Event: "run", From: "idle", Data: []any{"turbo"}}
	if r := d.match(context.Background(), "run", "idle", probe); r == nil || r.to != "fast" {
		t.Errorf("passing guard matched %v, want fast", r)
	}

	probe.Data = nil
	if r := d.match(context.Background(), "run", "idle", probe); r == nil || r.to != "steady" {
		t.Errorf("failing guard matched %v, want fallthrough to steady", r)
	}
}

func TestDefinitionMatchWildcardSource(t *testing.T) {
	d := NewDefinition().
		Initial("green").
		Transition("slow", "green", "yellow").
		Transition("panic", hook.AnyState, "red")

	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}

	for _, from := range []string{"green", "yellow", "red"} {
		if r := d.match(context.Background(), "panic", from, hook.TransitionEvent{}); r == nil || r.to != "red" {
			t.Errorf("panic from %q matched %v, want red", from, r)
		}
	}
}

func TestDefinitionMatchUnknown(t *testing.T) {
	d := trafficLight()

	if r := d.match(context.Background(), "slow", "red", hook.TransitionEvent{}); r != nil {
		t.Errorf("match from wrong state = %v, want nil", r)
	}
	if r := d.match(context.Background(), "warp", "green", hook.TransitionEvent{}); r != nil {
		t.Errorf("match of unknown event = %v, want nil", r)
	}
}
