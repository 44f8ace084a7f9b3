// ABOUTME: Bounded background work queue with a fixed worker pool
// ABOUTME: Submit is non-blocking; full buffers drop tasks and failures are logged

package eventbus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Defaults for QueueConfig.
const (
	DefaultQueueSize = 256
	DefaultWorkers   = 1
)

// Task is one unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// QueueConfig contains configuration options for the Queue.
type QueueConfig struct {
	Size    int
	Workers int
	Logger  *slog.Logger
}

// Queue runs submitted tasks on a worker pool.
type Queue struct {
	tasks   chan Task
	workers int
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewQueue creates a queue. Run must be called to start processing.
func NewQueue(cfg QueueConfig) *Queue {
	size := cfg.Size
	if size <= 0 {
		size = DefaultQueueSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		tasks:   make(chan Task, size),
		workers: workers,
		logger:  logger.With("component", "queue"),
	}
}

// Submit enqueues a task without blocking. It returns false if the task was dropped.
func (q *Queue) Submit(name string, run func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.dropped.Add(1)
		q.logger.Debug("dropped task on closed queue", "task", name)
		return false
	}

	select {
	case q.tasks <- Task{Name: name, Run: run}:
		return true
	default:
		q.dropped.Add(1)
		q.logger.Warn("queue full, dropping task", "task", name, "capacity", cap(q.tasks))
		return false
	}
}

// Run processes tasks until ctx is cancelled, then closes the queue and
// finishes the tasks already buffered before returning.
func (q *Queue) Run(ctx context.Context) error {
	drainCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for task := range q.tasks {
				q.runTask(drainCtx, worker, task)
			}
		}(i)
	}

	q.logger.Debug("queue started", "workers", q.workers, "capacity", cap(q.tasks))
	<-ctx.Done()

	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	wg.Wait()
	q.logger.Debug("queue stopped", "dropped", q.dropped.Load(), "failed", q.failed.Load())
	return nil
}

func (q *Queue) runTask(ctx context.Context, worker int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			q.failed.Add(1)
			q.logger.Error("task panicked", "task", task.Name, "worker", worker, "panic", rec)
		}
	}()

	if err := task.Run(ctx); err != nil {
		q.failed.Add(1)
		q.logger.Warn("task failed", "task", task.Name, "worker", worker, "error", err)
	}
}

// Dropped returns how many tasks were dropped.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}

// Failed returns how many tasks returned an error or panicked.
func (q *Queue) Failed() int64 {
	return q.failed.Load()
}
