package flowstate_test

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/flowstate"
	"github.com/dshills/flowstate/hook"
)

// Example: traffic light with synchronous and deferred hooks.
func Example_trafficLight() {
	def := flowstate.NewDefinition().
		Initial("green").
		Transition("slow", "green", "yellow").
		Transition("stop", "yellow", "red").
		Transition("go", "red", "green")

	m, _ := flowstate.New(def)

	_ = m.OnEnter("yellow", func(ctx context.Context, e hook.TransitionEvent) error {
		fmt.Printf("entering %s on %s\n", e.To, e.Event)
		return nil
	})
	_ = m.OnEnter("red", func(ctx context.Context, e hook.TransitionEvent) error {
		fmt.Println("logging stop asynchronously")
		return nil
	}, hook.WithAsync())

	ctx := context.Background()
	_ = m.Fire(ctx, "slow")
	_ = m.Fire(ctx, "stop")

	joinCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = m.Join(joinCtx)
	_ = m.Stop(joinCtx)

	fmt.Println("current:", m.Current())
	// Output:
	// entering yellow on slow
	// logging stop asynchronously
	// current: red
}

// Example: a hook vetoing a transition before it commits.
func Example_cancellation() {
	def := flowstate.NewDefinition().
		Initial("locked").
		Transition("open", "locked", "unlocked")

	m, _ := flowstate.New(def)

	_ = m.OnExit("locked", func(ctx context.Context, e hook.TransitionEvent) error {
		if len(e.Data) == 0 || e.Data[0] != "secret" {
			return hook.ErrCancelled
		}
		return nil
	})

	ctx := context.Background()
	_ = m.Fire(ctx, "open", "wrong")
	fmt.Println("after wrong key:", m.Current())

	_ = m.Fire(ctx, "open", "secret")
	fmt.Println("after right key:", m.Current())

	_ = m.Stop(ctx)
	// Output:
	// after wrong key: locked
	// after right key: unlocked
}
