package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/flowstate"
	"github.com/dshills/flowstate/hook"
)

// ScriptError wraps a Lua evaluation or hook-call failure with the function
// name involved.
type ScriptError struct {
	// Name is the Lua global involved, or "<script>" for load failures.
	Name string

	// Err is the underlying Lua error.
	Err error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua %s: %v", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}

// Binder owns one Lua state and registers its global hook functions on
// machines. All calls into the state are serialized; the Lua runtime is not
// safe for concurrent use.
type Binder struct {
	mu    sync.Mutex
	state *lua.LState
	log   zerolog.Logger
}

// Option configures a Binder.
type Option func(*Binder)

// WithLogger sets the binder's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Binder) {
		b.log = log
	}
}

// NewBinder creates a binder with a fresh Lua state. Callers must Close it.
func NewBinder(opts ...Option) *Binder {
	b := &Binder{
		state: lua.NewState(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Close releases the Lua state.
func (b *Binder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Close()
}

// Bind evaluates source and registers every global function whose name
// parses as a hook binding on the machine. Globals that are not hook
// bindings (helpers, Lua builtins) are left alone. It returns the number of
// hooks registered. The scan covers every global currently defined in the
// state, so hooks from earlier Bind calls register again on the new machine.
//
// A hook name outside the machine's vocabulary fails the whole call unless
// the machine's error policy suppresses it.
func (b *Binder) Bind(m *flowstate.Machine, source string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.state.DoString(source); err != nil {
		return 0, &ScriptError{Name: "<script>", Err: err}
	}
	return b.bindGlobals(m)
}

// BindFile evaluates the script at path and registers its hooks, as Bind.
func (b *Binder) BindFile(m *flowstate.Machine, path string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.state.DoFile(path); err != nil {
		return 0, &ScriptError{Name: path, Err: err}
	}
	return b.bindGlobals(m)
}

// bindGlobals walks the global table and registers function globals with
// hook-binding names. Caller holds the lock.
func (b *Binder) bindGlobals(m *flowstate.Machine) (int, error) {
	type global struct {
		name string
		fn   *lua.LFunction
	}
	var candidates []global
	b.state.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		fn, ok := v.(*lua.LFunction)
		if !ok {
			return
		}
		candidates = append(candidates, global{name: string(name), fn: fn})
	})

	bound := 0
	var bindErr error
	for _, g := range candidates {
		err := m.Bind(g.name, b.callback(g.name, g.fn))
		if err == nil {
			b.log.Debug().Str("hook", g.name).Msg("lua hook bound")
			bound++
			continue
		}
		var opErr *hook.UnknownOperationError
		if errors.As(err, &opErr) {
			// Not a hook binding; an ordinary function or builtin.
			continue
		}
		bindErr = err
		break
	}
	return bound, bindErr
}

// callback wraps a Lua function as a hook callback. A hook returning false
// maps to the cancellation sentinel; a Lua error propagates as ScriptError.
func (b *Binder) callback(name string, fn *lua.LFunction) hook.Callback {
	return func(ctx context.Context, e hook.TransitionEvent) error {
		b.mu.Lock()
		defer b.mu.Unlock()

		L := b.state
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, eventToTable(L, e)); err != nil {
			return &ScriptError{Name: name, Err: err}
		}
		ret := L.Get(-1)
		L.Pop(1)

		if ret == lua.LFalse {
			return hook.ErrCancelled
		}
		return nil
	}
}
