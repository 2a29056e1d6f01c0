package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStateBackoffGrowsAndCaps(t *testing.T) {
	state := NewRetryState(0)
	require.Equal(t, retryBaseInterval, state.interval)

	expected := retryBaseInterval
	for i := 0; i < 10; i++ {
		interval := state.nextInterval()
		// Jitter stays within +-25% of the pre-step interval.
		assert.GreaterOrEqual(t, interval, expected*3/4)
		assert.LessOrEqual(t, interval, expected*5/4)

		expected *= 2
		if expected > retryMaxInterval {
			expected = retryMaxInterval
		}
		assert.Equal(t, expected, state.interval)
	}
	assert.Equal(t, retryMaxInterval, state.interval)
}

func TestRetryStateTimeoutSurfacesError(t *testing.T) {
	state := NewRetryState(time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	errBoom := errors.New("boom")
	assert.Equal(t, errBoom, state.Retry(context.Background(), errBoom))
}

func TestRetryStateSleepsThenContinues(t *testing.T) {
	state := NewRetryState(0)
	state.interval = time.Millisecond

	start := time.Now()
	require.NoError(t, state.Retry(context.Background(), errors.New("boom")))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetryStateContextCancellation(t *testing.T) {
	state := NewRetryState(0)
	state.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := state.Retry(ctx, errors.New("boom"))
	assert.ErrorIs(t, err, context.Canceled)
}
