package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorIsolationHandler keeps a failing upstream from being called on every
// request. Once the failure rate over a minimum sample exceeds the limit the
// breaker opens and callers are routed to their fallback until the cool-down
// passes.
type ErrorIsolationHandler struct {
	mu                  sync.Mutex
	serviceName         string
	maxFailureRate      float64
	minSamples          int64
	coolDown            time.Duration
	circuitBreakerOpen  bool
	failureCount        int64
	successCount        int64
	openedAt            time.Time
	halfOpenAttempts    int
	maxHalfOpenAttempts int
	now                 func() time.Time
}

func NewErrorIsolationHandler(serviceName string, maxFailureRate float64) *ErrorIsolationHandler {
	return &ErrorIsolationHandler{
		serviceName:         serviceName,
		maxFailureRate:      maxFailureRate,
		minSamples:          10,
		coolDown:            30 * time.Second,
		maxHalfOpenAttempts: 3,
		now:                 time.Now,
	}
}

// RecordSuccess records a successful operation
func (h *ErrorIsolationHandler) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.successCount++
	if !h.circuitBreakerOpen {
		return
	}

	h.halfOpenAttempts++
	if h.halfOpenAttempts >= h.maxHalfOpenAttempts {
		h.circuitBreakerOpen = false
		h.failureCount = 0
		h.successCount = 0
		h.halfOpenAttempts = 0

		logrus.WithFields(logrus.Fields{
			"service_name": h.serviceName,
			"component":    "ErrorIsolationHandler",
		}).Info("Circuit breaker closed after successful half-open attempts")
	}
}

// RecordFailure records a failed operation
func (h *ErrorIsolationHandler) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.failureCount++

	if h.circuitBreakerOpen {
		// a failed probe restarts the cool-down
		h.halfOpenAttempts = 0
		h.openedAt = h.now()
		return
	}

	total := h.failureCount + h.successCount
	if total < h.minSamples {
		return
	}
	rate := float64(h.failureCount) / float64(total)
	if rate > h.maxFailureRate {
		h.circuitBreakerOpen = true
		h.halfOpenAttempts = 0
		h.openedAt = h.now()

		logrus.WithFields(logrus.Fields{
			"service_name":     h.serviceName,
			"component":        "ErrorIsolationHandler",
			"failure_rate":     rate,
			"max_failure_rate": h.maxFailureRate,
			"failure_count":    h.failureCount,
			"success_count":    h.successCount,
		}).Warn("Circuit breaker opened due to high failure rate")
	}
}

// IsCircuitBreakerOpen reports whether calls should skip the upstream. After
// the cool-down the breaker is half-open and lets probes through.
func (h *ErrorIsolationHandler) IsCircuitBreakerOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.circuitBreakerOpen {
		return false
	}
	return h.now().Sub(h.openedAt) < h.coolDown
}

// Execute runs fn unless the breaker is open, in which case it returns an
// unavailable ServiceError without calling fn.
func (h *ErrorIsolationHandler) Execute(operation string, fn func() error) error {
	if h.IsCircuitBreakerOpen() {
		logrus.WithFields(logrus.Fields{
			"service_name": h.serviceName,
			"operation":    operation,
			"component":    "ErrorIsolationHandler",
		}).Debug("Circuit breaker is open, skipping upstream call")
		return NewUnavailableError(h.serviceName+" is temporarily unavailable", nil).
			WithOperation(h.serviceName, operation)
	}

	if err := fn(); err != nil {
		h.RecordFailure()
		return err
	}
	h.RecordSuccess()
	return nil
}

// GetFailureRate returns the current failure rate
func (h *ErrorIsolationHandler) GetFailureRate() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	total := h.failureCount + h.successCount
	if total == 0 {
		return 0
	}
	return float64(h.failureCount) / float64(total)
}
