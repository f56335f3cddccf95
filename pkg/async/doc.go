// Package async provides the bounded worker pool that runs bus deliveries.
//
// # Overview
//
// Each message received by a transport becomes one Task submitted to a
// WorkerPool. Tasks run with a per-task timeout and panic recovery; a panic
// or returned error is logged and never takes the worker down.
//
//	pool := async.NewWorkerPool(ctx, 8, "bus delivery", 30*time.Second, logger)
//	defer pool.Shutdown(5 * time.Second)
//
//	pool.Submit(func(ctx context.Context) error {
//		handler(ctx, msg)
//		return nil
//	})
//
// Shutdown stops accepting work and waits for queued and in-flight tasks to
// finish, so handlers already dispatched run to completion.
//
// # Related Packages
//
//   - pkg/bus: RedisBus dispatches deliveries through a WorkerPool
package async
