package hook

import (
	"context"

	"github.com/dshills/flowstate/internal/relock"
)

// Subscriber is a generic listener notified of every event the owning
// machine fires, regardless of event type or name.
//
// Subscriber values are compared with == by Index, so implementations must
// be comparable (pointer receivers are).
type Subscriber interface {
	// Notify delivers one event. An error returned here propagates to
	// whoever fired the event.
	Notify(ctx context.Context, e *Event) error
}

// Subscribers is a thread-safe ordered list of generic listeners. The same
// subscriber may be added more than once and will be notified once per entry.
//
// All operations share one reentrant lock, so a subscriber may subscribe or
// visit again from within its own Notify without deadlocking.
type Subscribers struct {
	mu   relock.Mutex
	list []Subscriber
}

// NewSubscribers creates an empty subscriber list.
func NewSubscribers() *Subscribers {
	return &Subscribers{}
}

// Subscribe appends one or more subscribers to the list.
func (s *Subscribers) Subscribe(subs ...Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = append(s.list, subs...)
}

// Visit notifies every current subscriber in subscription order. Errors are
// not isolated: the first non-nil error aborts the visit and propagates to
// the caller.
func (s *Subscribers) Visit(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.list {
		if err := sub.Notify(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears the list and returns the registry for chaining. Callers must
// not reset while a visit they depend on is outstanding.
func (s *Subscribers) Reset() *Subscribers {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = nil
	return s
}

// Empty reports whether the list has no subscribers.
func (s *Subscribers) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list) == 0
}

// Index returns the position of the first matching subscriber, or -1 if it
// is not subscribed.
func (s *Subscribers) Index(sub Subscriber) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.list {
		if existing == sub {
			return i
		}
	}
	return -1
}

// Len returns the number of subscribed entries.
func (s *Subscribers) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}
