// Package flowstate is a small finite-state-machine library built around a
// callback-hook dispatch engine.
//
// A machine is declared through a Definition builder and driven by Fire.
// Behavior attaches through hooks: callbacks registered for lifecycle points
// (entering a state, exiting a state, the transition itself) by exact name or
// by wildcard, optionally one-shot or deferred to the machine's task queue.
// A synchronous hook can veto the in-flight transition before it commits.
//
// The dispatch engine lives in the hook package, the deferred task queue in
// the dispatch package. This package ties them to a transition graph:
//
//	def := flowstate.NewDefinition().
//		Initial("green").
//		Transition("slow", "green", "yellow").
//		Transition("stop", "yellow", "red").
//		Transition("go", "red", "green")
//
//	m, err := flowstate.New(def)
//	m.OnEnter("yellow", func(ctx context.Context, e hook.TransitionEvent) error {
//		// runs after the transition to yellow commits
//		return nil
//	})
//	m.Fire(ctx, "slow")
//
// Machines may also be loaded from TOML with the config package and scripted
// with Lua through the lua package.
package flowstate
