// Package hook is the callback dispatch core of flowstate.
//
// It provides the pieces a state machine needs to let external code attach
// behavior to transition lifecycle points and have that behavior fire in a
// well-defined order:
//
//   - Subscribers: a thread-safe ordered list of generic listeners, notified
//     for every event regardless of name.
//   - Registry: a nested mapping event-type → name → ordered hooks, with
//     auto-vivifying lookups and FIFO unregistration.
//   - Observer: the coordination layer. It validates registrations against
//     the owning machine's state/event vocabulary, resolves which hooks apply
//     to a concrete event (exact and wildcard matches), executes them
//     synchronously or defers them to the machine's dispatch queue, and
//     propagates a cancellation signal back to the in-flight transition.
//
// # Matching
//
// A firing event is resolved against up to eight registry cells: the exact
// event type then the Any type, and within each type the concrete name, the
// name-level wildcard (AnyState/AnyEvent) and the two hook-level wildcards
// (AnyStateHook, AnyEventHook), in that fixed priority order. Hooks within a
// cell run in registration order.
//
// # Execution
//
// A synchronous hook runs on the triggering goroutine. Returning ErrCancelled
// marks the event's transition cancelled; the owning machine consults that
// flag before committing. Any other error aborts the trigger pass and
// propagates to the caller unmodified. A hook tagged Async is wrapped into a
// task and pushed onto the owner's dispatch.Queue; its result is discarded
// and can never cancel. Hooks tagged Once are unregistered immediately after
// their first dispatch.
//
// # Concurrency
//
// Registration and dispatch are serialized by one reentrant lock per
// Observer, so a hook body may register further hooks or fire nested events
// without deadlocking. Subscribers carries its own reentrant lock with the
// same property.
package hook
