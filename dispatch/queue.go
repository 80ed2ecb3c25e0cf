package dispatch

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Task is a unit of deferred work. The context is the one supplied to Push.
type Task func(ctx context.Context) error

// ErrorHandler is called from the worker when a task returns an error.
type ErrorHandler func(taskID string, err error)

// PanicHandler is called from the worker when a task panics.
type PanicHandler func(taskID string, value any, stack []byte)

// entry is a queued task, or a join marker when done is non-nil.
type entry struct {
	id   string
	ctx  context.Context
	task Task
	done chan struct{}
}

// Queue executes tasks on a single worker goroutine in submission order.
type Queue struct {
	size         int
	log          zerolog.Logger
	errorHandler ErrorHandler
	panicHandler PanicHandler

	mu      sync.RWMutex // guards tasks creation/close against Push
	tasks   chan entry
	running atomic.Bool
	wg      sync.WaitGroup

	// Stats
	enqueued  atomic.Uint64
	processed atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	dropped   atomic.Uint64
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithQueueSize sets the task buffer size.
func WithQueueSize(size int) QueueOption {
	return func(q *Queue) {
		if size > 0 {
			q.size = size
		}
	}
}

// WithLogger sets the logger used for task failures and panics.
func WithLogger(log zerolog.Logger) QueueOption {
	return func(q *Queue) {
		q.log = log
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h ErrorHandler) QueueOption {
	return func(q *Queue) {
		if h != nil {
			q.errorHandler = h
		}
	}
}

// WithPanicHandler replaces the default panic handler.
func WithPanicHandler(h PanicHandler) QueueOption {
	return func(q *Queue) {
		if h != nil {
			q.panicHandler = h
		}
	}
}

// NewQueue creates a new queue with the given options.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		size: 1024,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.errorHandler == nil {
		q.errorHandler = func(taskID string, err error) {
			q.log.Error().Err(err).Str("task", taskID).Msg("deferred task failed")
		}
	}
	if q.panicHandler == nil {
		q.panicHandler = func(taskID string, value any, stack []byte) {
			err := &PanicError{TaskID: taskID, Value: value, Stack: stack}
			q.log.Error().
				Err(err).
				Interface("panic", value).
				Bytes("stack", stack).
				Msg("deferred task panicked")
		}
	}
	return q
}

// Start starts the worker goroutine.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running.Load() {
		return ErrAlreadyRunning
	}

	q.tasks = make(chan entry, q.size)
	q.running.Store(true)

	q.wg.Add(1)
	go q.worker()

	return nil
}

// Stop stops the queue gracefully. It waits for all queued tasks to complete
// or until the context is cancelled.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running.Load() {
		q.mu.Unlock()
		return ErrNotRunning
	}
	q.running.Store(false)
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Push adds a task for deferred execution. It never blocks: if the queue is
// at capacity the task is dropped and ErrQueueFull is returned.
func (q *Queue) Push(ctx context.Context, task Task) error {
	if task == nil {
		return ErrNilTask
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if !q.running.Load() {
		return ErrNotRunning
	}

	select {
	case q.tasks <- entry{id: uuid.NewString(), ctx: ctx, task: task}:
		q.enqueued.Add(1)
		return nil
	default:
		q.dropped.Add(1)
		return ErrQueueFull
	}
}

// Join blocks until every task pushed before the call has been executed, or
// until the context is cancelled. It works by pushing a marker through the
// queue, so it observes the same FIFO order as tasks do.
func (q *Queue) Join(ctx context.Context) error {
	q.mu.RLock()
	if !q.running.Load() {
		q.mu.RUnlock()
		return ErrNotRunning
	}

	marker := entry{done: make(chan struct{})}
	select {
	case q.tasks <- marker:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-marker.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// worker drains the task channel until Stop closes it.
func (q *Queue) worker() {
	defer q.wg.Done()

	for e := range q.tasks {
		if e.done != nil {
			close(e.done)
			continue
		}
		q.run(e)
	}
}

// run executes a single task with panic recovery.
func (q *Queue) run(e entry) {
	q.processed.Add(1)

	defer func() {
		if r := recover(); r != nil {
			q.panicked.Add(1)
			stack := debug.Stack()
			// Protect the panic handler call so a faulty handler cannot
			// kill the worker.
			func() {
				defer func() { _ = recover() }()
				q.panicHandler(e.id, r, stack)
			}()
		}
	}()

	// Skip tasks whose context was cancelled while queued.
	select {
	case <-e.ctx.Done():
		q.failed.Add(1)
		return
	default:
	}

	if err := e.task(e.ctx); err != nil {
		q.failed.Add(1)
		q.errorHandler(e.id, err)
		return
	}
	q.succeeded.Add(1)
}

// Len returns the current number of queued tasks. Returns 0 when stopped.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running.Load() {
		return 0
	}
	return len(q.tasks)
}

// IsRunning reports whether the queue accepts tasks.
func (q *Queue) IsRunning() bool {
	return q.running.Load()
}

// Stats contains queue statistics.
type Stats struct {
	// Enqueued is the total number of tasks accepted.
	Enqueued uint64

	// Processed is the number of tasks the worker has picked up.
	Processed uint64

	// Succeeded is the number of tasks that completed without error.
	Succeeded uint64

	// Failed is the number of tasks that returned an error or were skipped
	// due to context cancellation.
	Failed uint64

	// Panicked is the number of tasks that panicked.
	Panicked uint64

	// Dropped is the number of tasks rejected because the queue was full.
	Dropped uint64

	// Depth is the current number of queued tasks.
	Depth int
}

// Stats returns a snapshot of queue statistics.
func (q *Queue) Stats() Stats {
	return Stats{
		Enqueued:  q.enqueued.Load(),
		Processed: q.processed.Load(),
		Succeeded: q.succeeded.Load(),
		Failed:    q.failed.Load(),
		Panicked:  q.panicked.Load(),
		Dropped:   q.dropped.Load(),
		Depth:     q.Len(),
	}
}
