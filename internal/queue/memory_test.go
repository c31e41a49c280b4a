package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_DispatchesRegisteredHandler(t *testing.T) {
	q := NewMemory()

	var handled []Job
	q.Register("topic.a", func(ctx context.Context, job Job) error {
		handled = append(handled, job)
		return nil
	}, RetryPolicy{})

	err := q.Enqueue(context.Background(), "topic.a", map[string]string{"k": "v"})

	require.NoError(t, err)
	require.Len(t, handled, 1)
	assert.Equal(t, "topic.a", handled[0].Topic)
	assert.Len(t, q.Jobs("topic.a"), 1)
}

func TestMemory_RecordsJobsWithoutHandler(t *testing.T) {
	q := NewMemory()

	err := q.Enqueue(context.Background(), "topic.b", "payload")

	require.NoError(t, err)
	assert.Len(t, q.Jobs("topic.b"), 1)
	assert.Empty(t, q.Jobs("topic.a"))
}

func TestMemory_RetriesUntilSuccess(t *testing.T) {
	q := NewMemory()

	attempts := 0
	q.Register("topic.flaky", func(ctx context.Context, job Job) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, RetryPolicy{MaxAttempts: 3})

	err := q.Enqueue(context.Background(), "topic.flaky", nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestMemory_AbandonsAfterBudget(t *testing.T) {
	q := NewMemory()

	attempts := 0
	q.Register("topic.broken", func(ctx context.Context, job Job) error {
		attempts++
		return errors.New("permanent")
	}, RetryPolicy{MaxAttempts: 3})

	err := q.Enqueue(context.Background(), "topic.broken", nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "abandoned after 3 attempts")
	assert.Equal(t, 3, attempts)
}
