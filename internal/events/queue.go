// internal/events/queue.go
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Job is a fire-and-forget side task (history persistence, snapshot GC)
// run off the pipeline's critical path. Its failure is logged and can never
// affect a PipelineResult.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue executes jobs sequentially on a worker goroutine with independent
// failure handling.
type Queue struct {
	jobs   chan Job
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:   make(chan Job, size),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue submits a job without blocking. A full queue drops the job with a
// warning rather than stalling the caller.
func (q *Queue) Enqueue(job Job) {
	select {
	case q.jobs <- job:
	default:
		q.logger.Warn("background queue full, dropping job",
			zap.String("job", job.Name))
	}
}

// Close stops the worker after draining queued jobs.
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
	q.cancel()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		q.runOne(job)
	}
}

func (q *Queue) runOne(job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("background job panicked",
				zap.String("job", job.Name),
				zap.Any("panic", r))
		}
	}()

	if err := job.Run(q.ctx); err != nil {
		q.logger.Error("background job failed",
			zap.String("job", job.Name),
			zap.Error(err))
	}
}
