package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForState(t *testing.T, q *Queue, id string, want State) Status {
	t.Helper()
	var st Status
	require.Eventually(t, func() bool {
		var ok bool
		st, ok = q.Status(id)
		return ok && st.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestQueueRunsRegisteredHandler(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	var payload atomic.Value
	q.Register("refresh", func(ctx context.Context, job Job) error {
		payload.Store(job.Payload)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit("refresh", "program-1")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	st := waitForState(t, q, id, StateSucceeded)
	assert.Equal(t, 1, st.Attempts)
	assert.NotNil(t, st.FinishedAt)
	assert.Equal(t, "program-1", payload.Load())
}

func TestQueueRetriesThenFails(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	var calls int32
	q.Register("flaky", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Submit("flaky", nil)
	require.NoError(t, err)

	st := waitForState(t, q, id, StateFailed)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, st.Attempts)
	assert.Equal(t, "boom", st.Error)
}

func TestQueueRejectsUnknownType(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Submit("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestQueueSubmitBeforeStart(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	q.Register("refresh", func(ctx context.Context, job Job) error { return nil })

	_, err := q.Submit("refresh", nil)
	assert.Error(t, err)
}
