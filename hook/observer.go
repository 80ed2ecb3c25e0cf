package hook

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/dshills/flowstate/dispatch"
	"github.com/dshills/flowstate/internal/relock"
)

// Host is the owning machine as the observer sees it. The interface is
// deliberately minimal to avoid coupling the dispatch core to a particular
// machine implementation.
type Host interface {
	// HasState reports whether name is a known state.
	HasState(name string) bool

	// HasEvent reports whether name is a known event.
	HasEvent(name string) bool

	// CatchError reports whether the machine's error policy suppresses the
	// given error. When it returns true the failed registration becomes a
	// silent no-op.
	CatchError(err error) bool

	// Defer pushes a deferred hook invocation onto the machine's queue.
	Defer(ctx context.Context, task dispatch.Task) error
}

// Observer owns a hook registry and implements the registration and trigger
// surface for one machine. It is itself a Subscriber: the machine announces
// lifecycle events through its subscriber list, and the observer resolves
// and executes the hooks that apply.
//
// All registration and dispatch operations are serialized by one reentrant
// lock, so hook bodies may call back into the observer.
type Observer struct {
	host     Host
	registry *Registry
	mu       relock.Mutex
	log      zerolog.Logger
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// WithLogger sets the observer's logger.
func WithLogger(log zerolog.Logger) ObserverOption {
	return func(o *Observer) {
		o.log = log
	}
}

// NewObserver creates an observer for the given host and subscribes it to
// the machine's subscriber list. The subscriber list stays owned by the
// machine; the observer only holds it for the back-reference.
func NewObserver(host Host, subscribers *Subscribers, opts ...ObserverOption) *Observer {
	o := &Observer{
		host:     host,
		registry: NewRegistry(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if subscribers != nil {
		subscribers.Subscribe(o)
	}
	return o
}

// On registers a callback for the given event type and name. The name must
// be a known state, a known event, or a wildcard sentinel; otherwise
// InvalidCallbackNameError is returned unless the host's error policy
// swallows it, in which case nothing is registered and On returns nil.
func (o *Observer) On(t EventType, name string, cb Callback, opts ...Option) error {
	if cb == nil {
		return ErrNilCallback
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.validName(name) {
		err := &InvalidCallbackNameError{Name: name}
		if o.host.CatchError(err) {
			o.log.Debug().Str("name", name).Msg("registration suppressed by error policy")
			return nil
		}
		return err
	}

	h := NewHook(cb, opts...)
	o.registry.Register(t, name, h)
	o.log.Debug().
		Stringer("type", t).
		Str("name", name).
		Bool("once", h.Once).
		Bool("async", h.Async).
		Msg("hook registered")
	return nil
}

// Off removes the oldest hook registered at (t, name). Removal is FIFO, not
// identity-based; it reports whether a hook was removed.
func (o *Observer) Off(t EventType, name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry.Unregister(t, name) != nil
}

// OnEnter registers a callback for entering the named state, or for the
// named event's enter phase when the name is an event name.
func (o *Observer) OnEnter(name string, cb Callback, opts ...Option) error {
	return o.listen(EnterState, EnterAction, name, cb, opts...)
}

// OnExit registers a callback for exiting the named state, or for the named
// event's exit phase when the name is an event name.
func (o *Observer) OnExit(name string, cb Callback, opts ...Option) error {
	return o.listen(ExitState, ExitAction, name, cb, opts...)
}

// OnTransition registers a callback for the transition phase keyed by the
// named state or event.
func (o *Observer) OnTransition(name string, cb Callback, opts ...Option) error {
	return o.listen(TransitionState, TransitionAction, name, cb, opts...)
}

// OnceOnEnter registers a one-shot enter callback.
func (o *Observer) OnceOnEnter(name string, cb Callback, opts ...Option) error {
	return o.OnEnter(name, cb, append(opts, WithOnce())...)
}

// OnceOnExit registers a one-shot exit callback.
func (o *Observer) OnceOnExit(name string, cb Callback, opts ...Option) error {
	return o.OnExit(name, cb, append(opts, WithOnce())...)
}

// OnceOnTransition registers a one-shot transition callback.
func (o *Observer) OnceOnTransition(name string, cb Callback, opts ...Option) error {
	return o.OnTransition(name, cb, append(opts, WithOnce())...)
}

// listen classifies name as a state or an event and registers the matching
// flavor. A name that is neither is registered under both flavors, each of
// which is still subject to On's vocabulary validation.
func (o *Observer) listen(stateType, actionType EventType, name string, cb Callback, opts ...Option) error {
	switch {
	case o.host.HasState(name):
		return o.On(stateType, name, cb, opts...)
	case o.host.HasEvent(name):
		return o.On(actionType, name, cb, opts...)
	default:
		if err := o.On(stateType, name, cb, opts...); err != nil {
			return err
		}
		return o.On(actionType, name, cb, opts...)
	}
}

// Notify implements Subscriber by triggering hook dispatch for the event.
func (o *Observer) Notify(ctx context.Context, e *Event) error {
	return o.Trigger(ctx, e)
}

// Trigger resolves and executes every hook applicable to the event.
//
// Cells are visited in fixed priority order: the exact event type before the
// Any type, and within each type the exact name, then the name-level
// wildcard, then the two hook-level wildcards. Hooks within a cell run in
// registration order.
//
// A synchronous hook returning ErrCancelled marks the event's transition
// cancelled and dispatch continues; any other error aborts the pass and
// propagates unmodified. Async hooks are deferred to the host queue and
// their results discarded. Once hooks are unregistered immediately after
// dispatch.
func (o *Observer) Trigger(ctx context.Context, e *Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, t := range o.typeOrder(e.Type) {
		for _, name := range nameOrder(e.Name) {
			for _, h := range o.registry.Get(t, name) {
				if err := o.dispatch(ctx, t, name, h, e); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// dispatch runs or defers a single hook and handles Once removal and
// cancellation propagation.
func (o *Observer) dispatch(ctx context.Context, t EventType, name string, h *Hook, e *Event) error {
	te := e.snapshot()

	if h.Async {
		cb := h.Callback
		err := o.host.Defer(ctx, func(ctx context.Context) error {
			if err := cb(ctx, te); err != nil && !errors.Is(err, ErrCancelled) {
				return err
			}
			// Deferred results never cancel; ErrCancelled is discarded.
			return nil
		})
		if err != nil {
			o.log.Warn().Err(err).Stringer("type", t).Str("name", name).Msg("deferred hook dropped")
		}
		if h.Once {
			o.registry.Remove(t, name, h.ID)
		}
		return nil
	}

	err := h.Callback(ctx, te)
	switch {
	case err == nil:
	case errors.Is(err, ErrCancelled):
		if e.Transition != nil {
			e.Transition.Cancel()
		}
	default:
		// The hook never returned normally, so the Once removal below is
		// skipped and the error surfaces to the firing caller as-is.
		return err
	}

	if h.Once {
		o.registry.Remove(t, name, h.ID)
	}
	return nil
}

// typeOrder returns the registry type keys for a firing event: exact type
// first, then the Any wildcard type.
func (o *Observer) typeOrder(t EventType) []EventType {
	if t == Any {
		return []EventType{Any}
	}
	return []EventType{t, Any}
}

// nameOrder returns the registry name keys for a firing event in matching
// priority order, with duplicates removed.
func nameOrder(name string) []string {
	order := []string{name, AnyState, AnyStateHook, AnyEventHook}
	out := order[:0]
	for _, n := range order {
		dup := false
		for _, seen := range out {
			if seen == n {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, n)
		}
	}
	return out
}

// validName reports whether name may be used for registration: a wildcard
// sentinel, a known state, or a known event.
func (o *Observer) validName(name string) bool {
	return IsWildcard(name) || o.host.HasState(name) || o.host.HasEvent(name)
}

// Registry exposes the observer's hook registry. Callers must not mutate it
// while triggers may be running.
func (o *Observer) Registry() *Registry {
	return o.registry
}
