package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test.topic", func(_ context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{Key: "section-1"}))

	select {
	case job := <-done:
		assert.Equal(t, "test.topic", job.Topic)
		assert.Equal(t, "section-1", job.Key)
		assert.NotEmpty(t, job.ID)
	case <-time.After(time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesThenSucceeds(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("retry.topic", func(context.Context, Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{}))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueReportsExhaustedJobs(t *testing.T) {
	exhausted := make(chan Job, 1)
	q := NewQueue("fail.topic", func(context.Context, Job) error {
		return errors.New("permanent")
	}, QueueConfig{
		MaxRetries:  1,
		RetryDelay:  5 * time.Millisecond,
		OnExhausted: func(job Job, _ error) { exhausted <- job },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(context.Background(), Job{Key: "k"}))

	select {
	case job := <-exhausted:
		assert.Equal(t, 2, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted hook not called")
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(context.Background(), Job{})
	assert.ErrorIs(t, err, ErrQueueStopped)
}

func TestQueueEnqueueHonoursCallerContext(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	q := NewQueue("busy", func(context.Context, Job) error {
		started <- struct{}{}
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(context.Background(), Job{Key: "running"}))
	<-started
	require.NoError(t, q.Enqueue(context.Background(), Job{Key: "buffered"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- q.Enqueue(ctx, Job{Key: "blocked"}) }()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotErrorIs(t, err, ErrQueueStopped)
	case <-time.After(time.Second):
		t.Fatal("enqueue ignored the caller's deadline")
	}
}
