package b2chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueueConfig() QueueConfig {
	return QueueConfig{
		MaxInflight:     1,
		MinInterval:     0,
		RetryAttempts:   4,
		RetryDelay:      2 * time.Millisecond,
		RetryMaxDelay:   10 * time.Millisecond,
		RetryMultiplier: 2.0,
	}
}

func TestCallQueueRetriesOnThrottle(t *testing.T) {
	q := NewCallQueue(testQueueConfig())

	attempts := 0
	err := q.Do(context.Background(), "contacts.export", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return NewAPIError("/contacts/export", 429, "slow down")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCallQueueStopsOnPermanentError(t *testing.T) {
	q := NewCallQueue(testQueueConfig())

	attempts := 0
	err := q.Do(context.Background(), "contacts.export", func(context.Context) error {
		attempts++
		return NewAPIError("/contacts/export", 400, "bad request")
	})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, 1, attempts, "client errors are not retried")
}

func TestCallQueueExhaustsAttempts(t *testing.T) {
	cfg := testQueueConfig()
	cfg.RetryAttempts = 3
	q := NewCallQueue(cfg)

	attempts := 0
	err := q.Do(context.Background(), "chats.export", func(context.Context) error {
		attempts++
		return NewAPIError("/chats/export", 503, "unavailable")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCallQueueMinInterval(t *testing.T) {
	cfg := testQueueConfig()
	cfg.MinInterval = 50 * time.Millisecond
	q := NewCallQueue(cfg)

	var starts []time.Time
	for i := 0; i < 2; i++ {
		err := q.Do(context.Background(), "contacts.export", func(context.Context) error {
			starts = append(starts, time.Now())
			return nil
		})
		require.NoError(t, err)
	}

	require.Len(t, starts, 2)
	assert.GreaterOrEqual(t, starts[1].Sub(starts[0]), 40*time.Millisecond,
		"second call must wait out the pacing interval")
}

func TestCallQueueCancelledWhilePending(t *testing.T) {
	cfg := testQueueConfig()
	cfg.MinInterval = 10 * time.Second
	q := NewCallQueue(cfg)

	// Consume the single burst token so the next call has to wait.
	require.NoError(t, q.Do(context.Background(), "warmup", func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- q.Do(ctx, "contacts.export", func(context.Context) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled call did not abandon promptly")
	}
}

func TestCallQueueDoesNotRetryCancellation(t *testing.T) {
	q := NewCallQueue(testQueueConfig())

	attempts := 0
	err := q.Do(context.Background(), "contacts.export", func(context.Context) error {
		attempts++
		return context.Canceled
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestCallQueueRetriesTimeout(t *testing.T) {
	q := NewCallQueue(testQueueConfig())

	attempts := 0
	err := q.Do(context.Background(), "contacts.export", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return errors.New("request failed: " + context.DeadlineExceeded.Error())
		}
		return nil
	})

	// A bare string mentioning a deadline is not retryable; the wrapped
	// sentinel is. This pins the taxonomy to error identity, not text.
	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	attempts = 0
	err = q.Do(context.Background(), "contacts.export", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return context.DeadlineExceeded
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
