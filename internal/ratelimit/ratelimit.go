package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// AdaptiveRateLimiter spaces navigations by a random delay in [min, max).
// Consecutive errors widen the window; a run of successes narrows it back
// toward the configured minimum.
type AdaptiveRateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration
	floor    time.Duration

	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	maxMinDelay   time.Duration
	maxMaxDelay   time.Duration
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		limiter:       rate.NewLimiter(rate.Inf, 1),
		minDelay:      minDelay,
		maxDelay:      maxDelay,
		floor:         minDelay,
		maxErrorCount: 3,
		backoffFactor: 1.5,
		maxMinDelay:   60 * time.Second,
		maxMaxDelay:   120 * time.Second,
	}
}

func (a *AdaptiveRateLimiter) Wait(ctx context.Context) error {
	a.mu.Lock()
	delay := a.calculateDelay()
	if delay <= 0 {
		a.limiter.SetLimit(rate.Inf)
	} else {
		a.limiter.SetLimit(rate.Every(delay))
	}
	a.mu.Unlock()

	return a.limiter.Wait(ctx)
}

func (a *AdaptiveRateLimiter) SetDelay(min, max time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.minDelay = min
	a.maxDelay = max
	a.floor = min
}

// Delays returns the current window.
func (a *AdaptiveRateLimiter) Delays() (time.Duration, time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.minDelay, a.maxDelay
}

func (a *AdaptiveRateLimiter) calculateDelay() time.Duration {
	if a.maxDelay <= a.minDelay {
		return a.minDelay
	}
	delta := a.maxDelay - a.minDelay
	return a.minDelay + time.Duration(rand.Int63n(int64(delta)))
}

func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < a.floor {
			newMin = a.floor
		}
		a.minDelay = newMin
		if a.maxDelay < a.minDelay {
			a.maxDelay = a.minDelay
		}
		a.successCount = 0
	}
}

func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)

		if newMin > a.maxMinDelay {
			newMin = a.maxMinDelay
		}
		if newMax > a.maxMaxDelay {
			newMax = a.maxMaxDelay
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorCount = 0
	}
}
