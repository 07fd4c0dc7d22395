package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/EmployeeImport/internal/core"
)

// LocalQueue runs jobs in process on a fixed number of worker goroutines.
// Jobs still queued when the process stops are lost.
type LocalQueue struct {
	exec    *Executor
	jobs    chan ImportJob
	workers int
	sleep   Sleeper
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// LocalOption configures a LocalQueue.
type LocalOption func(*LocalQueue)

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) LocalOption {
	return func(q *LocalQueue) { q.sleep = s }
}

// WithLocalLogger sets the logger.
func WithLocalLogger(l *slog.Logger) LocalOption {
	return func(q *LocalQueue) { q.logger = l }
}

// NewLocalQueue creates a queue holding up to buffer pending jobs.
func NewLocalQueue(exec *Executor, workers, buffer int, opts ...LocalOption) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	q := &LocalQueue{
		exec:    exec,
		jobs:    make(chan ImportJob, buffer),
		workers: workers,
		sleep:   sleepWithContext,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Dispatch queues job. It fails when the queue is full or stopped.
func (q *LocalQueue) Dispatch(ctx context.Context, job ImportJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return fmt.Errorf("%w: local queue stopped", core.ErrQueueUnavailable)
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("%w: local queue full", core.ErrQueueUnavailable)
	}
}

// Run processes jobs until ctx is cancelled. A job that is mid-backoff when
// ctx ends is dropped.
func (q *LocalQueue) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case job := <-q.jobs:
					if err := q.exec.Run(gctx, job, q.sleep); err != nil {
						q.logger.Warn("import job interrupted by shutdown",
							"file_path", job.FilePath,
							"owner_user_id", job.OwnerUserID,
							"error", err,
						)
					}
				}
			}
		})
	}

	err := g.Wait()

	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	return err
}
