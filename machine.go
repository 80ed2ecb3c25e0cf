package flowstate

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dshills/flowstate/dispatch"
	"github.com/dshills/flowstate/hook"
	"github.com/dshills/flowstate/internal/relock"
)

// Machine is a finite-state machine driving the hook dispatch engine. It
// owns the subscriber list, one observer, and one deferred task queue, and
// implements the host surface the observer consults for vocabulary checks
// and async deferral.
//
// Fire and the registration methods are safe for concurrent use. The machine
// lock is reentrant, so a synchronous hook body may fire a nested event or
// register further hooks.
type Machine struct {
	def         *Definition
	subscribers *hook.Subscribers
	observer    *hook.Observer
	queue       *dispatch.Queue
	log         zerolog.Logger
	catch       func(error) bool

	mu      relock.Mutex
	current string
	stopped bool
}

// settings collects construction-time configuration.
type settings struct {
	log   zerolog.Logger
	catch func(error) bool
	qopts []dispatch.QueueOption
}

// Option configures a Machine.
type Option func(*settings)

// WithLogger sets the machine logger, shared with the observer and queue.
func WithLogger(log zerolog.Logger) Option {
	return func(s *settings) {
		s.log = log
		s.qopts = append(s.qopts, dispatch.WithLogger(log))
	}
}

// WithQueueSize sets the deferred task buffer size.
func WithQueueSize(size int) Option {
	return func(s *settings) {
		s.qopts = append(s.qopts, dispatch.WithQueueSize(size))
	}
}

// WithAsyncErrorHandler receives errors returned by deferred hooks, which
// never surface to the firing caller.
func WithAsyncErrorHandler(h dispatch.ErrorHandler) Option {
	return func(s *settings) {
		s.qopts = append(s.qopts, dispatch.WithErrorHandler(h))
	}
}

// WithCatchError installs the machine's error suppression policy. When the
// predicate reports true for an error, the failing operation becomes a
// silent no-op instead of returning the error.
func WithCatchError(fn func(error) bool) Option {
	return func(s *settings) {
		s.catch = fn
	}
}

// New validates the definition and builds a running machine in the
// definition's initial state. The deferred task queue is started; callers
// must Stop the machine to release its worker.
func New(def *Definition, opts ...Option) (*Machine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	s := settings{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&s)
	}

	m := &Machine{
		def:         def,
		subscribers: hook.NewSubscribers(),
		log:         s.log,
		catch:       s.catch,
		current:     def.initial,
	}
	m.observer = hook.NewObserver(m, m.subscribers, hook.WithLogger(m.log))
	m.queue = dispatch.NewQueue(s.qopts...)
	if err := m.queue.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

// Current returns the machine's current state.
func (m *Machine) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Is reports whether the machine is in the named state.
func (m *Machine) Is(name string) bool {
	return m.Current() == name
}

// Fire drives one transition. The lifecycle is:
//
//	exit hooks -> transition hooks -> commit -> enter hooks
//
// Exit and transition hooks run before the state changes; a cancellation
// there vetoes the transition silently and Fire returns nil with the state
// unchanged. Enter hooks run after commit and cannot roll it back. Each
// phase announces a state-flavored and an action-flavored event, in that
// order, to every subscriber.
//
// A TransitionError is returned when no rule accepts the event from the
// current state, unless the machine's error policy suppresses it.
func (m *Machine) Fire(ctx context.Context, event string, data ...any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrMachineStopped
	}

	probe := hook.TransitionEvent{Event: event, From: m.current, Data: data}
	r := m.def.match(ctx, event, m.current, probe)
	if r == nil {
		err := &TransitionError{Event: event, From: m.current}
		if m.CatchError(err) {
			m.log.Debug().Str("event", event).Str("state", m.current).Msg("transition rejected by error policy")
			return nil
		}
		return err
	}

	tr := &hook.Transition{Event: event, From: m.current, To: r.to}
	m.log.Debug().Str("event", event).Str("from", tr.From).Str("to", tr.To).Msg("transition started")

	pre := []*hook.Event{
		hook.NewEvent(hook.ExitState, tr.From, tr, data...),
		hook.NewEvent(hook.ExitAction, event, tr, data...),
		hook.NewEvent(hook.TransitionState, tr.To, tr, data...),
		hook.NewEvent(hook.TransitionAction, event, tr, data...),
	}
	for _, e := range pre {
		if err := m.subscribers.Visit(ctx, e); err != nil {
			return err
		}
		if tr.Cancelled() {
			m.log.Debug().Str("event", event).Str("from", tr.From).Str("to", tr.To).Msg("transition cancelled")
			return nil
		}
	}

	m.current = r.to

	post := []*hook.Event{
		hook.NewEvent(hook.EnterState, tr.To, tr, data...),
		hook.NewEvent(hook.EnterAction, event, tr, data...),
	}
	for _, e := range post {
		if err := m.subscribers.Visit(ctx, e); err != nil {
			return err
		}
	}

	m.log.Debug().Str("event", event).Str("from", tr.From).Str("to", tr.To).Msg("transition committed")
	return nil
}

// Join blocks until every deferred hook enqueued so far has run, or the
// context expires.
func (m *Machine) Join(ctx context.Context) error {
	return m.queue.Join(ctx)
}

// Stop drains and stops the deferred task queue. Further Fire calls return
// ErrMachineStopped. Stop is not idempotent at the queue level, so the
// stopped flag gates repeat calls.
func (m *Machine) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.mu.Unlock()

	return m.queue.Stop(ctx)
}

// Subscribe adds generic listeners notified of every lifecycle event the
// machine fires.
func (m *Machine) Subscribe(subs ...hook.Subscriber) {
	m.subscribers.Subscribe(subs...)
}

// QueueStats returns counters for the deferred task queue.
func (m *Machine) QueueStats() dispatch.Stats {
	return m.queue.Stats()
}

// HasState reports whether name is a declared state. Part of the observer
// host surface.
func (m *Machine) HasState(name string) bool {
	return m.def.stateSet[name]
}

// HasEvent reports whether name is a declared event. Part of the observer
// host surface.
func (m *Machine) HasEvent(name string) bool {
	return m.def.eventSet[name]
}

// CatchError reports whether the configured error policy suppresses err.
// Part of the observer host surface.
func (m *Machine) CatchError(err error) bool {
	return m.catch != nil && m.catch(err)
}

// Defer pushes a deferred hook invocation onto the machine's queue. Part of
// the observer host surface.
func (m *Machine) Defer(ctx context.Context, task dispatch.Task) error {
	return m.queue.Push(ctx, task)
}

// On registers a callback on the observer. See hook.Observer.On.
func (m *Machine) On(t hook.EventType, name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.On(t, name, cb, opts...)
}

// Off removes the oldest hook registered at (t, name).
func (m *Machine) Off(t hook.EventType, name string) bool {
	return m.observer.Off(t, name)
}

// OnEnter registers a callback for entering the named state or event phase.
func (m *Machine) OnEnter(name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.OnEnter(name, cb, opts...)
}

// OnExit registers a callback for exiting the named state or event phase.
func (m *Machine) OnExit(name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.OnExit(name, cb, opts...)
}

// OnTransition registers a callback for the transition phase.
func (m *Machine) OnTransition(name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.OnTransition(name, cb, opts...)
}

// OnceOnEnter registers a one-shot enter callback.
func (m *Machine) OnceOnEnter(name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.OnceOnEnter(name, cb, opts...)
}

// OnceOnExit registers a one-shot exit callback.
func (m *Machine) OnceOnExit(name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.OnceOnExit(name, cb, opts...)
}

// OnceOnTransition registers a one-shot transition callback.
func (m *Machine) OnceOnTransition(name string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.OnceOnTransition(name, cb, opts...)
}

// Bind registers a callback from a method-style name such as
// "on_enter_green". See hook.Observer.Bind.
func (m *Machine) Bind(method string, cb hook.Callback, opts ...hook.Option) error {
	return m.observer.Bind(method, cb, opts...)
}
