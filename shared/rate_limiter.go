package shared

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPRequestRateLimiter spaces outbound requests to one upstream at least
// minimumDelay apart.
type HTTPRequestRateLimiter struct {
	minimumDelay time.Duration
	nextSlot     time.Time
	mutex        sync.Mutex
	requestCount int64
}

func NewHTTPRequestRateLimiter(minimumDelay time.Duration) *HTTPRequestRateLimiter {
	return &HTTPRequestRateLimiter{minimumDelay: minimumDelay}
}

// Wait blocks until the caller's slot arrives or ctx is done. Slots are
// reserved under the lock so concurrent callers queue up in order.
func (limiter *HTTPRequestRateLimiter) Wait(ctx context.Context) error {
	limiter.mutex.Lock()
	now := time.Now()
	slot := limiter.nextSlot
	if slot.Before(now) {
		slot = now
	}
	limiter.nextSlot = slot.Add(limiter.minimumDelay)
	limiter.requestCount++
	count := limiter.requestCount
	limiter.mutex.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"component":     "HTTPRequestRateLimiter",
		"minimum_delay": limiter.minimumDelay,
		"delay":         delay,
		"request_count": count,
	}).Debug("Enforcing rate limit delay")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetRequestCount returns the total number of requests processed
func (limiter *HTTPRequestRateLimiter) GetRequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
