// Package dispatch provides the deferred execution queue used to run
// asynchronous hooks off the triggering goroutine.
//
// A Queue is owned by a single state machine. Tasks pushed by that machine
// are executed by one worker goroutine in submission order; queues belonging
// to different machines are independent and make no ordering promises
// relative to each other.
//
// The queue is strictly a producer/consumer boundary: the observer only ever
// pushes tasks, the worker is the sole consumer. Task failures and recovered
// panics never reach the pushing goroutine; they are surfaced through the
// queue's error and panic handlers, which log by default.
//
// # Basic Usage
//
//	q := dispatch.NewQueue(dispatch.WithQueueSize(1024))
//	if err := q.Start(); err != nil {
//	    return err
//	}
//	defer q.Stop(context.Background())
//
//	q.Push(ctx, func(ctx context.Context) error {
//	    return doWork(ctx)
//	})
//
//	// Wait for everything pushed so far to finish.
//	if err := q.Join(ctx); err != nil {
//	    return err
//	}
package dispatch
