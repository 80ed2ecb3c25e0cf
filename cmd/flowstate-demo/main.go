// Command flowstate-demo runs a traffic-light machine with Go and Lua hooks.
//
// With no flags it uses a built-in definition. Pass -def to load a TOML
// definition (optionally live-reloaded with -watch) and -script to attach
// hooks from a Lua file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/flowstate"
	"github.com/dshills/flowstate/config"
	"github.com/dshills/flowstate/hook"
	"github.com/dshills/flowstate/lua"
)

func main() {
	defPath := flag.String("def", "", "TOML definition file (built-in traffic light when empty)")
	scriptPath := flag.String("script", "", "Lua hook script")
	watch := flag.Bool("watch", false, "reload the definition when the file changes")
	cycles := flag.Int("cycles", 2, "full light cycles to run")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.InfoLevel)
	}

	if err := run(log, *defPath, *scriptPath, *watch, *cycles); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
}

func run(log zerolog.Logger, defPath, scriptPath string, watch bool, cycles int) error {
	def, err := definition(defPath)
	if err != nil {
		return err
	}

	m, err := flowstate.New(def, flowstate.WithLogger(log))
	if err != nil {
		return err
	}
	ctx := context.Background()
	defer func() {
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = m.Stop(stopCtx)
	}()

	if watch && defPath != "" {
		w, err := config.NewWatcher(defPath, func(def *flowstate.Definition) {
			log.Info().Msg("definition changed on disk; restart to apply")
		}, config.WithWatcherLogger(log))
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
	}

	// A Go hook per phase keeps the console narrating the lifecycle.
	err = m.On(hook.EnterState, hook.AnyState, func(ctx context.Context, e hook.TransitionEvent) error {
		fmt.Printf("light is now %s (event %s)\n", e.To, e.Event)
		return nil
	})
	if err != nil {
		return err
	}
	err = m.OnExit(hook.AnyState, func(ctx context.Context, e hook.TransitionEvent) error {
		log.Info().Str("from", e.From).Str("to", e.To).Msg("audit trail entry")
		return nil
	}, hook.WithAsync())
	if err != nil {
		return err
	}
	err = m.OnceOnEnter("red", func(ctx context.Context, e hook.TransitionEvent) error {
		fmt.Println("first red of the session")
		return nil
	})
	if err != nil {
		return err
	}

	if scriptPath != "" {
		binder := lua.NewBinder(lua.WithLogger(log))
		defer binder.Close()
		n, err := binder.BindFile(m, scriptPath)
		if err != nil {
			return err
		}
		log.Info().Int("hooks", n).Str("script", scriptPath).Msg("lua hooks bound")
	}

	events := []string{"slow", "stop", "go"}
	for i := 0; i < cycles; i++ {
		for _, event := range events {
			if err := m.Fire(ctx, event, i); err != nil {
				return err
			}
		}
	}

	joinCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Join(joinCtx); err != nil {
		return err
	}

	stats := m.QueueStats()
	log.Info().
		Uint64("deferred", stats.Enqueued).
		Uint64("succeeded", stats.Succeeded).
		Str("state", m.Current()).
		Msg("done")
	return nil
}

// definition loads the TOML file or falls back to the built-in light.
func definition(path string) (*flowstate.Definition, error) {
	if path != "" {
		return config.Load(path)
	}
	return flowstate.NewDefinition().
		Initial("green").
		Transition("slow", "green", "yellow").
		Transition("stop", "yellow", "red").
		Transition("go", "red", "green"), nil
}
