package hook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/flowstate/dispatch"
)

// fakeHost is a minimal Host with a fixed vocabulary. Deferred tasks are
// collected for the test to run on demand.
type fakeHost struct {
	states   map[string]bool
	events   map[string]bool
	catch    bool
	mu       sync.Mutex
	tasks    []dispatch.Task
	deferErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		states: map[string]bool{"green": true, "yellow": true, "red": true},
		events: map[string]bool{"slow": true, "go": true, "stop": true},
	}
}

func (f *fakeHost) HasState(name string) bool { return f.states[name] }
func (f *fakeHost) HasEvent(name string) bool { return f.events[name] }
func (f *fakeHost) CatchError(err error) bool { return f.catch }

func (f *fakeHost) Defer(ctx context.Context, task dispatch.Task) error {
	if f.deferErr != nil {
		return f.deferErr
	}
	f.mu.Lock()
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()
	return nil
}

// runDeferred executes the collected tasks in order and returns their errors.
func (f *fakeHost) runDeferred(ctx context.Context) []error {
	f.mu.Lock()
	tasks := f.tasks
	f.tasks = nil
	f.mu.Unlock()

	var errs []error
	for _, task := range tasks {
		errs = append(errs, task(ctx))
	}
	return errs
}

func enterEvent(name string) *Event {
	return NewEvent(EnterState, name, &Transition{Event: "slow", From: "green", To: name})
}

func record(log *[]string, label string) Callback {
	return func(ctx context.Context, e TransitionEvent) error {
		*log = append(*log, label)
		return nil
	}
}

func TestObserverOnRejectsNilCallback(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	if err := o.On(EnterState, "green", nil); !errors.Is(err, ErrNilCallback) {
		t.Errorf("On with nil callback = %v, want ErrNilCallback", err)
	}
}

func TestObserverOnRejectsUnknownName(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	err := o.On(EnterState, "purple", nopCallback)
	var nameErr *InvalidCallbackNameError
	if !errors.As(err, &nameErr) {
		t.Fatalf("On with unknown name = %v, want InvalidCallbackNameError", err)
	}
	if nameErr.Name != "purple" {
		t.Errorf("rejected name = %q, want %q", nameErr.Name, "purple")
	}
	if o.Registry().Len() != 0 {
		t.Error("rejected registration still stored a hook")
	}
}

func TestObserverOnSuppressedByErrorPolicy(t *testing.T) {
	host := newFakeHost()
	host.catch = true
	o := NewObserver(host, nil)

	if err := o.On(EnterState, "purple", nopCallback); err != nil {
		t.Errorf("On with suppressing policy = %v, want nil", err)
	}
	if o.Registry().Len() != 0 {
		t.Error("suppressed registration still stored a hook")
	}
}

func TestObserverOnAcceptsWildcards(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	for _, name := range []string{AnyState, AnyStateHook, AnyEventHook} {
		if err := o.On(EnterState, name, nopCallback); err != nil {
			t.Errorf("On(%q) = %v, want nil", name, err)
		}
	}
}

func TestObserverListenClassifiesByVocabulary(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	if err := o.OnEnter("green", nopCallback); err != nil {
		t.Fatalf("OnEnter(state): %v", err)
	}
	if err := o.OnEnter("slow", nopCallback); err != nil {
		t.Fatalf("OnEnter(event): %v", err)
	}

	if n := len(o.Registry().Get(EnterState, "green")); n != 1 {
		t.Errorf("state name registered %d EnterState hooks, want 1", n)
	}
	if n := len(o.Registry().Get(EnterAction, "green")); n != 0 {
		t.Errorf("state name registered %d EnterAction hooks, want 0", n)
	}
	if n := len(o.Registry().Get(EnterAction, "slow")); n != 1 {
		t.Errorf("event name registered %d EnterAction hooks, want 1", n)
	}
	if n := len(o.Registry().Get(EnterState, "slow")); n != 0 {
		t.Errorf("event name registered %d EnterState hooks, want 0", n)
	}
}

func TestObserverListenWildcardRegistersBothFlavors(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	if err := o.OnTransition(AnyState, nopCallback); err != nil {
		t.Fatalf("OnTransition(any): %v", err)
	}
	if n := len(o.Registry().Get(TransitionState, AnyState)); n != 1 {
		t.Errorf("wildcard registered %d TransitionState hooks, want 1", n)
	}
	if n := len(o.Registry().Get(TransitionAction, AnyState)); n != 1 {
		t.Errorf("wildcard registered %d TransitionAction hooks, want 1", n)
	}
}

func TestObserverOffRemovesOldest(t *testing.T) {
	var log []string
	o := NewObserver(newFakeHost(), nil)

	if err := o.On(EnterState, "green", record(&log, "first")); err != nil {
		t.Fatal(err)
	}
	if err := o.On(EnterState, "green", record(&log, "second")); err != nil {
		t.Fatal(err)
	}

	if !o.Off(EnterState, "green") {
		t.Fatal("Off returned false with hooks present")
	}
	if err := o.Trigger(context.Background(), enterEvent("green")); err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 || log[0] != "second" {
		t.Errorf("after Off, trigger ran %v, want [second]", log)
	}
	if o.Off(ExitState, "green") {
		t.Error("Off on empty cell returned true")
	}
}

func TestObserverTriggerPriorityOrder(t *testing.T) {
	var log []string
	o := NewObserver(newFakeHost(), nil)

	// Registered shuffled; execution order must follow cell priority.
	registrations := []struct {
		t     EventType
		name  string
		label string
	}{
		{Any, AnyEventHook, "any/event"},
		{EnterState, AnyStateHook, "enter/state"},
		{Any, "yellow", "any/yellow"},
		{EnterState, "yellow", "enter/yellow"},
		{Any, AnyStateHook, "any/state"},
		{EnterState, AnyEventHook, "enter/event"},
		{Any, AnyState, "any/any"},
		{EnterState, AnyState, "enter/any"},
	}
	for _, reg := range registrations {
		if err := o.On(reg.t, reg.name, record(&log, reg.label)); err != nil {
			t.Fatalf("On(%v, %q): %v", reg.t, reg.name, err)
		}
	}

	if err := o.Trigger(context.Background(), enterEvent("yellow")); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"enter/yellow", "enter/any", "enter/state", "enter/event",
		"any/yellow", "any/any", "any/state", "any/event",
	}
	if len(log) != len(want) {
		t.Fatalf("ran %d hooks, want %d: %v", len(log), len(want), log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("hook %d = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestObserverTriggerRegistrationOrderWithinCell(t *testing.T) {
	var log []string
	o := NewObserver(newFakeHost(), nil)

	for _, label := range []string{"a", "b", "c"} {
		if err := o.On(EnterState, "green", record(&log, label)); err != nil {
			t.Fatal(err)
		}
	}
	if err := o.Trigger(context.Background(), enterEvent("green")); err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if log[i] != want[i] {
			t.Errorf("hook %d = %q, want %q", i, log[i], want[i])
		}
	}
}

func TestObserverTriggerWildcardNameNoDuplicates(t *testing.T) {
	count := 0
	o := NewObserver(newFakeHost(), nil)
	if err := o.On(EnterState, AnyState, func(ctx context.Context, e TransitionEvent) error {
		count++
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	// An event named after the wildcard must not match the same cell twice.
	if err := o.Trigger(context.Background(), enterEvent(AnyState)); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("wildcard cell ran %d times, want 1", count)
	}
}

func TestObserverOnceRunsExactlyOnce(t *testing.T) {
	var log []string
	o := NewObserver(newFakeHost(), nil)

	if err := o.On(EnterState, "green", record(&log, "once"), WithOnce()); err != nil {
		t.Fatal(err)
	}
	if err := o.On(EnterState, "green", record(&log, "other"), WithOnce()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := o.Trigger(context.Background(), enterEvent("green")); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"once", "other"}
	if len(log) != len(want) {
		t.Fatalf("once hooks ran %d times total, want %d: %v", len(log), len(want), log)
	}
	if o.Registry().Len() != 0 {
		t.Errorf("Registry().Len() = %d after once dispatch, want 0", o.Registry().Len())
	}
}

func TestObserverOnceStaysRegisteredAfterError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	o := NewObserver(newFakeHost(), nil)

	if err := o.On(EnterState, "green", func(ctx context.Context, e TransitionEvent) error {
		calls++
		return boom
	}, WithOnce()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := o.Trigger(context.Background(), enterEvent("green")); !errors.Is(err, boom) {
			t.Fatalf("Trigger = %v, want %v", err, boom)
		}
	}
	if calls != 2 {
		t.Errorf("failing once hook ran %d times, want 2 (no removal on error)", calls)
	}
}

func TestObserverCancellationMarksTransitionAndContinues(t *testing.T) {
	var log []string
	o := NewObserver(newFakeHost(), nil)

	if err := o.On(EnterState, "green", func(ctx context.Context, e TransitionEvent) error {
		log = append(log, "veto")
		return ErrCancelled
	}); err != nil {
		t.Fatal(err)
	}
	if err := o.On(EnterState, "green", record(&log, "after")); err != nil {
		t.Fatal(err)
	}

	e := enterEvent("green")
	if err := o.Trigger(context.Background(), e); err != nil {
		t.Fatalf("Trigger after cancellation = %v, want nil", err)
	}
	if !e.Transition.Cancelled() {
		t.Error("transition not marked cancelled")
	}
	if len(log) != 2 {
		t.Errorf("ran %d hooks, want 2 (cancellation must not halt the pass)", len(log))
	}
}

func TestObserverErrorAbortsPass(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	o := NewObserver(newFakeHost(), nil)

	if err := o.On(EnterState, "green", record(&log, "first")); err != nil {
		t.Fatal(err)
	}
	if err := o.On(EnterState, "green", func(ctx context.Context, e TransitionEvent) error {
		return boom
	}); err != nil {
		t.Fatal(err)
	}
	if err := o.On(EnterState, "green", record(&log, "never")); err != nil {
		t.Fatal(err)
	}

	if err := o.Trigger(context.Background(), enterEvent("green")); !errors.Is(err, boom) {
		t.Fatalf("Trigger = %v, want %v", err, boom)
	}
	if len(log) != 1 || log[0] != "first" {
		t.Errorf("hooks ran: %v, want [first]", log)
	}
}

func TestObserverAsyncHookIsDeferred(t *testing.T) {
	host := newFakeHost()
	o := NewObserver(host, nil)

	ran := false
	if err := o.On(EnterState, "yellow", func(ctx context.Context, e TransitionEvent) error {
		ran = true
		return nil
	}, WithAsync()); err != nil {
		t.Fatal(err)
	}

	if err := o.Trigger(context.Background(), enterEvent("yellow")); err != nil {
		t.Fatal(err)
	}
	if ran {
		t.Fatal("async hook ran on the triggering goroutine")
	}

	host.runDeferred(context.Background())
	if !ran {
		t.Error("deferred task did not run the hook")
	}
}

func TestObserverAsyncCancellationDiscarded(t *testing.T) {
	host := newFakeHost()
	o := NewObserver(host, nil)

	if err := o.On(EnterState, "yellow", func(ctx context.Context, e TransitionEvent) error {
		return ErrCancelled
	}, WithAsync()); err != nil {
		t.Fatal(err)
	}

	e := enterEvent("yellow")
	if err := o.Trigger(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	for _, err := range host.runDeferred(context.Background()) {
		if err != nil {
			t.Errorf("deferred task returned %v, want nil", err)
		}
	}
	if e.Transition.Cancelled() {
		t.Error("deferred cancellation mutated the transition")
	}
}

func TestObserverAsyncOnceRemovedAtDispatch(t *testing.T) {
	host := newFakeHost()
	o := NewObserver(host, nil)

	calls := 0
	if err := o.On(EnterState, "yellow", func(ctx context.Context, e TransitionEvent) error {
		calls++
		return nil
	}, WithAsync(), WithOnce()); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := o.Trigger(context.Background(), enterEvent("yellow")); err != nil {
			t.Fatal(err)
		}
	}
	host.runDeferred(context.Background())

	if calls != 1 {
		t.Errorf("async once hook deferred %d times, want 1", calls)
	}
}

func TestObserverDeferFailureDoesNotAbort(t *testing.T) {
	host := newFakeHost()
	host.deferErr = dispatch.ErrQueueFull
	o := NewObserver(host, nil)

	var log []string
	if err := o.On(EnterState, "yellow", record(&log, "async"), WithAsync()); err != nil {
		t.Fatal(err)
	}
	if err := o.On(EnterState, "yellow", record(&log, "sync")); err != nil {
		t.Fatal(err)
	}

	if err := o.Trigger(context.Background(), enterEvent("yellow")); err != nil {
		t.Fatalf("Trigger with full queue = %v, want nil", err)
	}
	if len(log) != 1 || log[0] != "sync" {
		t.Errorf("hooks ran: %v, want [sync]", log)
	}
}

func TestObserverNotifyTriggersViaSubscribers(t *testing.T) {
	var log []string
	subs := NewSubscribers()
	o := NewObserver(newFakeHost(), subs)

	if subs.Index(o) != 0 {
		t.Fatal("observer did not self-subscribe")
	}
	if err := o.On(EnterState, "green", record(&log, "hit")); err != nil {
		t.Fatal(err)
	}

	if err := subs.Visit(context.Background(), enterEvent("green")); err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 {
		t.Errorf("subscriber visit ran %d hooks, want 1", len(log))
	}
}

func TestObserverReentrantRegistrationFromHook(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	var nested error
	if err := o.On(EnterState, "green", func(ctx context.Context, e TransitionEvent) error {
		nested = o.On(ExitState, "green", nopCallback)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := o.Trigger(context.Background(), enterEvent("green")); err != nil {
			t.Errorf("Trigger: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reentrant registration deadlocked")
	}
	if nested != nil {
		t.Errorf("nested On = %v, want nil", nested)
	}
}

func TestObserverConcurrentTriggerAndRegister(t *testing.T) {
	o := NewObserver(newFakeHost(), nil)

	var count int
	if err := o.On(EnterState, "green", func(ctx context.Context, e TransitionEvent) error {
		count++
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	const goroutines = 8
	const rounds = 40

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < rounds; j++ {
				if err := o.Trigger(context.Background(), enterEvent("green")); err != nil {
					t.Errorf("Trigger: %v", err)
				}
				if err := o.On(ExitState, "red", nopCallback); err != nil {
					t.Errorf("On: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if count != goroutines*rounds {
		t.Errorf("hook ran %d times, want %d", count, goroutines*rounds)
	}
}

func TestObserverAsyncThroughRealQueue(t *testing.T) {
	q := dispatch.NewQueue()
	if err := q.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})

	host := &queueHost{fakeHost: newFakeHost(), q: q}
	o := NewObserver(host, nil)

	var mu sync.Mutex
	var got []string
	if err := o.On(EnterState, "yellow", func(ctx context.Context, e TransitionEvent) error {
		mu.Lock()
		got = append(got, e.From+"->"+e.To)
		mu.Unlock()
		return nil
	}, WithAsync()); err != nil {
		t.Fatal(err)
	}

	if err := o.Trigger(context.Background(), enterEvent("yellow")); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Join(ctx); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "green->yellow" {
		t.Errorf("deferred hook observed %v, want [green->yellow]", got)
	}
}

// queueHost routes Defer through a real dispatch queue.
type queueHost struct {
	*fakeHost
	q *dispatch.Queue
}

func (h *queueHost) Defer(ctx context.Context, task dispatch.Task) error {
	return h.q.Push(ctx, task)
}
