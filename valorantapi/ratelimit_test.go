package valorantapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToQuota(t *testing.T) {
	limiter := NewRateLimiter(3, time.Second)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond, "first quota acquisitions never wait")
	assert.Equal(t, 3, limiter.InUse())
}

func TestRateLimiterBlocksBeyondQuota(t *testing.T) {
	window := 300 * time.Millisecond
	limiter := NewRateLimiter(2, window)

	require.NoError(t, limiter.Acquire(context.Background()))
	require.NoError(t, limiter.Acquire(context.Background()))

	start := time.Now()
	require.NoError(t, limiter.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), window, "third call waits for the window to roll")
}

func TestRateLimiterNeverExceedsQuotaInWindow(t *testing.T) {
	window := 250 * time.Millisecond
	quota := 3
	limiter := NewRateLimiter(quota, window)

	var grants []time.Time
	for i := 0; i < 7; i++ {
		require.NoError(t, limiter.Acquire(context.Background()))
		grants = append(grants, time.Now())
	}

	// Across any rolling window the number of grants stays within quota.
	for i := range grants {
		inWindow := 0
		for j := range grants {
			d := grants[j].Sub(grants[i])
			if d >= 0 && d < window {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, quota)
	}
}

func TestRateLimiterAcquireHonorsContext(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterPrunesOldStamps(t *testing.T) {
	limiter := NewRateLimiter(2, 50*time.Millisecond)
	require.NoError(t, limiter.Acquire(context.Background()))
	require.NoError(t, limiter.Acquire(context.Background()))

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, limiter.InUse())
}
