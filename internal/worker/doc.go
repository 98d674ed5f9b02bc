// Package worker provides a fixed-size goroutine pool that runs jobs and
// collects their errors.
//
// The benchmark runner uses it to drive one session per worker when a run
// spreads its operations across several connections.
//
// # Basic Usage
//
//	pool := worker.NewPool(4) // 4 workers
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	for _, conn := range conns {
//	    pool.SubmitWait(func(ctx context.Context) error {
//	        return drive(ctx, conn)
//	    })
//	}
//	if err := pool.Wait(); err != nil {
//	    // errors.Join of every failed job
//	}
//
// Run wraps the same sequence for a fixed list of jobs:
//
//	err := worker.Run(ctx, 4, jobs...)
//
// # Submission
//
// Submit never blocks and returns false when the queue is full. SubmitWait
// blocks until there is room or the pool's context is canceled. Wait must not
// be called concurrently with Submit or SubmitWait.
//
// # Shutdown
//
// Canceling the context passed to Start stops new submissions. Jobs already
// queued still run, receive the canceled context, and are expected to return
// promptly. Stop waits for them before returning. A panicking job is
// recovered and reported as an error from Wait.
package worker
