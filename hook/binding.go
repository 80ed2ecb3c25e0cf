package hook

import "strings"

// bindings maps callback-method prefixes to registration operations.
// Longer prefixes are listed first so once_on_enter_ is not mistaken for
// on_enter_ with a name of "ter_...".
var bindings = []struct {
	prefix string
	bind   func(o *Observer, name string, cb Callback, opts ...Option) error
}{
	{"once_on_enter_", (*Observer).OnceOnEnter},
	{"once_on_exit_", (*Observer).OnceOnExit},
	{"once_on_transition_", (*Observer).OnceOnTransition},
	{"on_enter_", (*Observer).OnEnter},
	{"on_exit_", (*Observer).OnExit},
	{"on_transition_", (*Observer).OnTransition},
}

// Bind registers a callback from a method-style name such as
// "on_enter_green" or "once_on_transition_slow". Names that match no known
// operation prefix, or that leave an empty target after the prefix, yield
// UnknownOperationError.
func (o *Observer) Bind(method string, cb Callback, opts ...Option) error {
	for _, b := range bindings {
		if !strings.HasPrefix(method, b.prefix) {
			continue
		}
		name := method[len(b.prefix):]
		if name == "" {
			break
		}
		return b.bind(o, name, cb, opts...)
	}
	return &UnknownOperationError{Op: method}
}
