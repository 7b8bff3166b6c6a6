package database

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fenilmodi00/ipo-subscription-backend/shared"
	"github.com/sirupsen/logrus"
)

// RetryConfig holds retry configuration for database operations
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DatabaseOptimizer retries transient read failures and records query
// metrics. Writes are not routed through it; a retried write could apply
// twice.
type DatabaseOptimizer struct {
	retryConfig        RetryConfig
	slowQueryThreshold time.Duration
	metrics            *shared.DatabaseMetrics
}

func NewDatabaseOptimizer(metrics *shared.DatabaseMetrics) *DatabaseOptimizer {
	config := shared.NewDefaultUnifiedConfiguration().Database
	if metrics == nil {
		metrics = shared.NewDatabaseMetrics()
	}
	return &DatabaseOptimizer{
		retryConfig: RetryConfig{
			MaxRetries:    config.MaxRetryAttempts,
			BaseDelay:     100 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			BackoffFactor: 2.0,
		},
		slowQueryThreshold: config.SlowQueryThreshold,
		metrics:            metrics,
	}
}

// ExecuteWithRetry executes a database operation with exponential backoff retry
func (opt *DatabaseOptimizer) ExecuteWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= opt.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(opt.retryConfig.BaseDelay) *
				math.Pow(opt.retryConfig.BackoffFactor, float64(attempt-1)))
			if delay > opt.retryConfig.MaxDelay {
				delay = opt.retryConfig.MaxDelay
			}

			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
				"error":   lastErr,
			}).Warn("Retrying database operation")
			opt.metrics.RecordRetry()

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		startTime := time.Now()
		err := operation()
		duration := time.Since(startTime)
		slow := duration > opt.slowQueryThreshold
		opt.metrics.RecordQuery(err == nil, duration, slow)

		if slow {
			logrus.WithFields(logrus.Fields{
				"duration": duration,
				"attempt":  attempt,
			}).Warn("Slow database query detected")
		}

		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"max_retries": opt.retryConfig.MaxRetries,
		"final_error": lastErr,
	}).Error("Database operation failed after all retries")

	return fmt.Errorf("database operation failed after %d retries: %w", opt.retryConfig.MaxRetries, lastErr)
}

// Record times a single non-retried operation.
func (opt *DatabaseOptimizer) Record(operation func() error) error {
	startTime := time.Now()
	err := operation()
	duration := time.Since(startTime)
	opt.metrics.RecordQuery(err == nil, duration, duration > opt.slowQueryThreshold)
	return err
}
