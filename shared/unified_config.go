package shared

import (
	"time"

	"github.com/sirupsen/logrus"
)

// UnifiedConfiguration holds the tuning defaults shared by every component.
// Secrets and endpoints come from config.Config; this holds the knobs that
// rarely change between deployments.
type UnifiedConfiguration struct {
	Database DatabaseConfig `json:"database"`
	Upstream ServiceConfig  `json:"upstream"`
	Scraper  ServiceConfig  `json:"scraper"`
}

// ServiceConfig holds outbound HTTP settings for one class of upstream.
type ServiceConfig struct {
	HTTPRequestTimeout time.Duration `json:"http_timeout"`
	RequestRateLimit   time.Duration `json:"rate_limit"`
	MaxRetryAttempts   int           `json:"max_retries"`
	RetryBackoff       time.Duration `json:"retry_backoff"`
	MaxFailureRate     float64       `json:"max_failure_rate"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	MaxOpenConns       int           `json:"max_open_conns"`
	MaxIdleConns       int           `json:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	PingTimeout        time.Duration `json:"ping_timeout"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold"`
	MaxRetryAttempts   int           `json:"max_retries"`
}

// NewDefaultUnifiedConfiguration returns production-ready default configuration
func NewDefaultUnifiedConfiguration() *UnifiedConfiguration {
	return &UnifiedConfiguration{
		Database: DatabaseConfig{
			MaxOpenConns:       25,
			MaxIdleConns:       5,
			ConnMaxLifetime:    5 * time.Minute,
			ConnMaxIdleTime:    5 * time.Minute,
			PingTimeout:        5 * time.Second,
			SlowQueryThreshold: 200 * time.Millisecond,
			MaxRetryAttempts:   2,
		},
		Upstream: ServiceConfig{
			HTTPRequestTimeout: 10 * time.Second,
			RequestRateLimit:   200 * time.Millisecond,
			MaxRetryAttempts:   1,
			RetryBackoff:       500 * time.Millisecond,
			MaxFailureRate:     0.5,
		},
		Scraper: ServiceConfig{
			HTTPRequestTimeout: 30 * time.Second,
			RequestRateLimit:   2 * time.Second,
			MaxRetryAttempts:   2,
			RetryBackoff:       time.Second,
			MaxFailureRate:     0.5,
		},
	}
}

// ValidateAndApplyDefaults replaces non-positive values with defaults.
func (c *UnifiedConfiguration) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "UnifiedConfiguration")
	defaults := NewDefaultUnifiedConfiguration()

	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
		logger.Debug("Applied default Database.MaxOpenConns")
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
		logger.Debug("Applied default Database.MaxIdleConns")
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = defaults.Database.ConnMaxLifetime
	}
	if c.Database.PingTimeout <= 0 {
		c.Database.PingTimeout = defaults.Database.PingTimeout
	}
	if c.Database.SlowQueryThreshold <= 0 {
		c.Database.SlowQueryThreshold = defaults.Database.SlowQueryThreshold
	}
	c.Upstream.applyDefaults(defaults.Upstream)
	c.Scraper.applyDefaults(defaults.Scraper)
}

func (s *ServiceConfig) applyDefaults(d ServiceConfig) {
	if s.HTTPRequestTimeout <= 0 {
		s.HTTPRequestTimeout = d.HTTPRequestTimeout
	}
	if s.RequestRateLimit <= 0 {
		s.RequestRateLimit = d.RequestRateLimit
	}
	if s.MaxRetryAttempts < 0 {
		s.MaxRetryAttempts = d.MaxRetryAttempts
	}
	if s.RetryBackoff <= 0 {
		s.RetryBackoff = d.RetryBackoff
	}
	if s.MaxFailureRate <= 0 {
		s.MaxFailureRate = d.MaxFailureRate
	}
}
