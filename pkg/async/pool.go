package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPoolClosed is returned by Submit after Shutdown has been called
var ErrPoolClosed = errors.New("worker pool shut down")

// Task is a unit of work run by the pool
type Task func(ctx context.Context) error

// WorkerPool manages a fixed set of workers that process tasks from a queue.
type WorkerPool struct {
	workers  int
	taskName string
	timeout  time.Duration
	workCh   chan Task
	doneCh   chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	log      *logrus.Logger

	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewWorkerPool creates a pool and starts its workers.
//
// timeout bounds each task; zero means tasks only end when ctx is canceled.
func NewWorkerPool(ctx context.Context, workers int, taskName string, timeout time.Duration, log *logrus.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logrus.New()
	}
	ctx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  workers,
		taskName: taskName,
		timeout:  timeout,
		workCh:   make(chan Task, workers*2),
		doneCh:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				pool.worker(id)
			}(i)
		}
		wg.Wait()
		close(pool.doneCh)
	}()

	return pool
}

// Submit queues a task. It blocks while the queue is full.
func (p *WorkerPool) Submit(fn Task) error {
	if fn == nil {
		return fmt.Errorf("task is required")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.workCh <- fn:
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Shutdown stops accepting tasks and waits up to timeout for the queue to drain.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.doneCh
		return nil
	}
	p.closed = true
	close(p.workCh)
	p.mu.Unlock()

	select {
	case <-p.doneCh:
		p.cancel()
		return nil
	case <-time.After(timeout):
		p.cancel()
		return fmt.Errorf("worker pool %q shutdown timed out after %v", p.taskName, timeout)
	}
}

// InFlight returns the number of tasks currently executing
func (p *WorkerPool) InFlight() int64 {
	return p.inFlight.Load()
}

// Completed returns the number of tasks that finished without error
func (p *WorkerPool) Completed() int64 {
	return p.completed.Load()
}

// Failed returns the number of tasks that returned an error or panicked
func (p *WorkerPool) Failed() int64 {
	return p.failed.Load()
}

func (p *WorkerPool) worker(id int) {
	for fn := range p.workCh {
		p.run(id, fn)
	}
}

func (p *WorkerPool) run(id int, fn Task) {
	ctx, cancel := p.taskContext()
	defer cancel()

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			p.failed.Add(1)
			p.log.WithFields(logrus.Fields{
				"task":   p.taskName,
				"worker": id,
				"panic":  r,
				"stack":  string(debug.Stack()),
			}).Error("PANIC recovered in worker pool task")
		}
	}()

	if err := fn(ctx); err != nil {
		p.failed.Add(1)
		p.log.WithFields(logrus.Fields{
			"task":   p.taskName,
			"worker": id,
		}).WithError(err).Warn("worker pool task failed")
		return
	}
	p.completed.Add(1)
}

func (p *WorkerPool) taskContext() (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(p.ctx, p.timeout)
	}
	return context.WithCancel(p.ctx)
}
