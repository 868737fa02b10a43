package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitWithoutDelay(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(0, 0)

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitSpacesCalls(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(50*time.Millisecond, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestWaitHonoursContext(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(time.Hour, time.Hour)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func TestRecordErrorBacksOff(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(time.Second, 2*time.Second)

	limiter.RecordError()
	limiter.RecordError()
	min, max := limiter.Delays()
	assert.Equal(t, time.Second, min)
	assert.Equal(t, 2*time.Second, max)

	limiter.RecordError()
	min, max = limiter.Delays()
	assert.Equal(t, 1500*time.Millisecond, min)
	assert.Equal(t, 3*time.Second, max)
}

func TestRecordErrorCapped(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(50*time.Second, 100*time.Second)
	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}
	min, max := limiter.Delays()
	assert.Equal(t, 60*time.Second, min)
	assert.Equal(t, 120*time.Second, max)
}

func TestRecordSuccessRecoversToFloor(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(time.Second, 2*time.Second)
	for i := 0; i < 3; i++ {
		limiter.RecordError()
	}

	for i := 0; i < 60; i++ {
		limiter.RecordSuccess()
	}
	min, _ := limiter.Delays()
	assert.Equal(t, time.Second, min)
}
