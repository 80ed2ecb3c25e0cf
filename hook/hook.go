package hook

import (
	"context"

	"github.com/google/uuid"
)

// Callback is the function signature for registered hooks. The snapshot is
// immutable; data inside it must be treated as read-only.
//
// A synchronous callback returning ErrCancelled vetoes the transition. Any
// other non-nil error aborts the trigger pass and propagates to the firing
// caller. Results of asynchronous callbacks are discarded.
type Callback func(ctx context.Context, e TransitionEvent) error

// Hook is a registered callback plus its capability tags. Tags are
// orthogonal: a hook may be both Once and Async.
type Hook struct {
	// ID uniquely identifies this registration.
	ID string

	// Callback is the user function to invoke.
	Callback Callback

	// Once marks the hook for automatic unregistration after its first
	// dispatch.
	Once bool

	// Async defers the hook to the owner's dispatch queue instead of running
	// it on the triggering goroutine.
	Async bool
}

// Option configures a Hook at registration time.
type Option func(*Hook)

// WithOnce tags the hook for removal after its first dispatch.
func WithOnce() Option {
	return func(h *Hook) {
		h.Once = true
	}
}

// WithAsync tags the hook for deferred execution on the owner's queue.
func WithAsync() Option {
	return func(h *Hook) {
		h.Async = true
	}
}

// NewHook creates a hook for the given callback.
func NewHook(cb Callback, opts ...Option) *Hook {
	h := &Hook{
		ID:       uuid.NewString(),
		Callback: cb,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
