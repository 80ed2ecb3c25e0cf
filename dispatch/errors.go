package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrAlreadyRunning is returned when Start is called on a running queue.
	ErrAlreadyRunning = errors.New("queue is already running")

	// ErrNotRunning is returned when operations are attempted on a stopped queue.
	ErrNotRunning = errors.New("queue is not running")

	// ErrQueueFull is returned when the queue is at capacity and cannot accept
	// more tasks.
	ErrQueueFull = errors.New("task queue is full")

	// ErrNilTask is returned when a nil task is pushed.
	ErrNilTask = errors.New("task cannot be nil")
)

// PanicError wraps a panic recovered from a task as an error.
type PanicError struct {
	// TaskID identifies the task that panicked.
	TaskID string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return "task " + e.TaskID + " panicked"
}
