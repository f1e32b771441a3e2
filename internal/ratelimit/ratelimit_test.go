package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWait_EnforcesMinimumDelay(t *testing.T) {
	limiter := NewSimpleRateLimiter(50*time.Millisecond, 50*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))

	assert.GreaterOrEqual(t, time.Since(start), 45*time.Millisecond)
}

func TestWait_FirstCallDoesNotBlockLong(t *testing.T) {
	limiter := NewSimpleRateLimiter(5*time.Second, 5*time.Second)
	limiter.lastAction = time.Now().Add(-time.Minute)

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))

	assert.Less(t, time.Since(start), time.Second)
}

func TestWait_CancelledContext(t *testing.T) {
	limiter := NewSimpleRateLimiter(time.Minute, time.Minute)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetDelay(t *testing.T) {
	limiter := NewSimpleRateLimiter(time.Minute, 2*time.Minute)
	limiter.SetDelay(time.Millisecond, 2*time.Millisecond)

	require.NoError(t, limiter.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background()))

	assert.Less(t, time.Since(start), time.Second)
}

func TestCalculateDelay_StaysWithinBounds(t *testing.T) {
	limiter := NewSimpleRateLimiter(10*time.Millisecond, 20*time.Millisecond)

	for i := 0; i < 100; i++ {
		delay := limiter.calculateDelay()
		assert.GreaterOrEqual(t, delay, 10*time.Millisecond)
		assert.Less(t, delay, 20*time.Millisecond)
	}
}
