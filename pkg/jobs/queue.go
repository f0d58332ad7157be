package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueStopped is returned when a job is enqueued before Start or after Stop.
var ErrQueueStopped = errors.New("queue not running")

// Job is a unit of work on a named topic. Delivery is at-least-once, so
// handlers must be idempotent.
type Job struct {
	ID       string
	Topic    string
	Key      string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// ExhaustedHook observes jobs that failed on every attempt.
type ExhaustedHook func(Job, error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *zap.Logger
	OnExhausted ExhaustedHook
}

// Queue is an in-memory topic backed by a goroutine worker pool. Failed jobs
// are retried with a linear backoff up to MaxRetries.
type Queue struct {
	topic   string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// NewQueue builds a queue for topic.
func NewQueue(topic string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		topic:   topic,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("topic", topic)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Topic returns the queue's topic name.
func (q *Queue) Topic() string {
	return q.topic
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.running = true
	q.logger.Sugar().Infow("queue started", "workers", q.cfg.Workers, "buffer", q.cfg.BufferSize)
}

// Stop cancels the workers and pending retries, then waits for them to exit.
// Buffered jobs that were not picked up are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.retries.Wait()
	q.logger.Sugar().Infow("queue stopped", "dropped", len(q.jobs))
}

// Enqueue pushes a job onto the topic, filling in ID, topic and timestamp.
// When the buffer is full it blocks until a slot frees up, the caller's ctx
// is done or the queue stops.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	queueCtx, running := q.ctx, q.running
	q.mu.RUnlock()

	if !running {
		return fmt.Errorf("%s: %w", q.topic, ErrQueueStopped)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Topic = q.topic
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: enqueue %s: %w", q.topic, job.ID, ctx.Err())
	case <-queueCtx.Done():
		return fmt.Errorf("%s: %w", q.topic, ErrQueueStopped)
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.run(job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) run(job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return q.handler(q.ctx, job)
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Sugar().Errorw("job exhausted retries", "job_id", job.ID, "key", job.Key, "attempts", job.Attempt, "error", err)
		if q.cfg.OnExhausted != nil {
			q.cfg.OnExhausted(job, err)
		}
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "job_id", job.ID, "key", job.Key, "attempt", job.Attempt, "error", err)

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.cfg.RetryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(q.ctx, j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue job", "job_id", j.ID, "error", err)
			}
		}
	}(job)
}
