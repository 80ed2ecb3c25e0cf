package hook

import "errors"

// Sentinel errors for the hook package.
var (
	// ErrCancelled is the cancellation sentinel. A synchronous hook returning
	// it vetoes the in-flight transition; it is never propagated as a
	// failure.
	ErrCancelled = errors.New("transition cancelled")

	// ErrNilCallback is returned when a nil callback is registered.
	ErrNilCallback = errors.New("callback cannot be nil")
)

// InvalidCallbackNameError is returned when a hook is registered under a name
// that is neither a known state, a known event, nor a wildcard sentinel.
type InvalidCallbackNameError struct {
	// Name is the rejected registration name.
	Name string
}

// Error implements the error interface.
func (e *InvalidCallbackNameError) Error() string {
	return "invalid callback name: " + e.Name
}

// UnknownOperationError is returned by dynamic binding when a method string
// does not parse to a known registration operation and valid name.
type UnknownOperationError struct {
	// Op is the method string that failed to bind.
	Op string
}

// Error implements the error interface.
func (e *UnknownOperationError) Error() string {
	return "unknown hook operation: " + e.Op
}
