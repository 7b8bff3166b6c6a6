package shared

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const maxLatencySamples = 1000

// ServiceMetrics tracks request outcomes and latency for one service.
type ServiceMetrics struct {
	serviceName         string
	totalRequests       int64
	successfulRequests  int64
	failedRequests      int64
	totalProcessingTime time.Duration
	lastUpdated         time.Time
	counters            map[string]int64
	samples             []time.Duration
	mutex               sync.RWMutex
}

// MetricsSnapshot is a point-in-time copy of ServiceMetrics.
type MetricsSnapshot struct {
	ServiceName           string           `json:"service_name"`
	TotalRequests         int64            `json:"total_requests"`
	SuccessfulRequests    int64            `json:"successful_requests"`
	FailedRequests        int64            `json:"failed_requests"`
	SuccessRate           float64          `json:"success_rate"`
	AverageProcessingTime time.Duration    `json:"average_processing_time"`
	MinProcessingTime     time.Duration    `json:"min_processing_time"`
	MaxProcessingTime     time.Duration    `json:"max_processing_time"`
	P95ProcessingTime     time.Duration    `json:"p95_processing_time"`
	P99ProcessingTime     time.Duration    `json:"p99_processing_time"`
	Counters              map[string]int64 `json:"counters"`
	LastUpdated           time.Time        `json:"last_updated"`
}

func NewServiceMetrics(serviceName string) *ServiceMetrics {
	return &ServiceMetrics{
		serviceName: serviceName,
		lastUpdated: time.Now(),
		counters:    make(map[string]int64),
		samples:     make([]time.Duration, 0, 64),
	}
}

// RecordRequest records a request with its success status and processing time
func (m *ServiceMetrics) RecordRequest(success bool, processingTime time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRequests++
	m.totalProcessingTime += processingTime
	if success {
		m.successfulRequests++
	} else {
		m.failedRequests++
	}
	if len(m.samples) >= maxLatencySamples {
		m.samples = m.samples[1:]
	}
	m.samples = append(m.samples, processingTime)
	m.lastUpdated = time.Now()
}

// IncrementCustomCounter increments a named counter.
func (m *ServiceMetrics) IncrementCustomCounter(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.counters[key]++
	m.lastUpdated = time.Now()
}

// GetSuccessRate returns the success rate as a percentage
func (m *ServiceMetrics) GetSuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.successRateLocked()
}

func (m *ServiceMetrics) successRateLocked() float64 {
	if m.totalRequests == 0 {
		return 0
	}
	return float64(m.successfulRequests) / float64(m.totalRequests) * 100.0
}

// GetSnapshot returns a copy safe to serialize.
func (m *ServiceMetrics) GetSnapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snapshot := MetricsSnapshot{
		ServiceName:        m.serviceName,
		TotalRequests:      m.totalRequests,
		SuccessfulRequests: m.successfulRequests,
		FailedRequests:     m.failedRequests,
		SuccessRate:        m.successRateLocked(),
		Counters:           make(map[string]int64, len(m.counters)),
		LastUpdated:        m.lastUpdated,
	}
	for k, v := range m.counters {
		snapshot.Counters[k] = v
	}
	if m.totalRequests > 0 {
		snapshot.AverageProcessingTime = m.totalProcessingTime / time.Duration(m.totalRequests)
	}
	if len(m.samples) > 0 {
		sorted := make([]time.Duration, len(m.samples))
		copy(sorted, m.samples)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		snapshot.MinProcessingTime = sorted[0]
		snapshot.MaxProcessingTime = sorted[len(sorted)-1]
		snapshot.P95ProcessingTime = sorted[percentileIndex(len(sorted), 0.95)]
		snapshot.P99ProcessingTime = sorted[percentileIndex(len(sorted), 0.99)]
	}
	return snapshot
}

func percentileIndex(n int, p float64) int {
	i := int(float64(n) * p)
	if i >= n {
		i = n - 1
	}
	return i
}

// LogSummary logs a metrics summary
func (m *ServiceMetrics) LogSummary() {
	s := m.GetSnapshot()
	logrus.WithFields(logrus.Fields{
		"service_name":            s.ServiceName,
		"total_requests":          s.TotalRequests,
		"successful_requests":     s.SuccessfulRequests,
		"failed_requests":         s.FailedRequests,
		"success_rate":            s.SuccessRate,
		"average_processing_time": s.AverageProcessingTime,
		"p95_processing_time":     s.P95ProcessingTime,
		"counters":                s.Counters,
	}).Info("Service metrics summary")
}

// HTTPMetrics tracks outbound HTTP calls per upstream provider.
type HTTPMetrics struct {
	TotalRequests      int64            `json:"total_requests"`
	SuccessfulRequests int64            `json:"successful_requests"`
	FailedRequests     int64            `json:"failed_requests"`
	FallbackResponses  int64            `json:"fallback_responses"`
	TotalResponseTime  time.Duration    `json:"total_response_time"`
	ProviderFailures   map[string]int64 `json:"provider_failures"`
	mutex              sync.RWMutex
}

func NewHTTPMetrics() *HTTPMetrics {
	return &HTTPMetrics{ProviderFailures: make(map[string]int64)}
}

// RecordHTTPRequest records one upstream call.
func (hm *HTTPMetrics) RecordHTTPRequest(provider string, success bool, responseTime time.Duration) {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()

	hm.TotalRequests++
	hm.TotalResponseTime += responseTime
	if success {
		hm.SuccessfulRequests++
		return
	}
	hm.FailedRequests++
	hm.ProviderFailures[provider]++
}

// RecordFallback counts a response served from static demo data.
func (hm *HTTPMetrics) RecordFallback() {
	hm.mutex.Lock()
	defer hm.mutex.Unlock()
	hm.FallbackResponses++
}

// Snapshot returns a copy of the counters.
func (hm *HTTPMetrics) Snapshot() map[string]interface{} {
	hm.mutex.RLock()
	defer hm.mutex.RUnlock()

	failures := make(map[string]int64, len(hm.ProviderFailures))
	for k, v := range hm.ProviderFailures {
		failures[k] = v
	}
	var avg time.Duration
	if hm.TotalRequests > 0 {
		avg = hm.TotalResponseTime / time.Duration(hm.TotalRequests)
	}
	return map[string]interface{}{
		"total_requests":        hm.TotalRequests,
		"successful_requests":   hm.SuccessfulRequests,
		"failed_requests":       hm.FailedRequests,
		"fallback_responses":    hm.FallbackResponses,
		"average_response_time": avg.String(),
		"provider_failures":     failures,
	}
}

// DatabaseMetrics tracks database operation performance and success rates
type DatabaseMetrics struct {
	TotalQueries      int64         `json:"total_queries"`
	SuccessfulQueries int64         `json:"successful_queries"`
	FailedQueries     int64         `json:"failed_queries"`
	SlowQueries       int64         `json:"slow_queries"`
	Retries           int64         `json:"retries"`
	TotalQueryTime    time.Duration `json:"total_query_time"`
	mutex             sync.RWMutex
}

func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// RecordQuery records a database query with its success status and execution time
func (dm *DatabaseMetrics) RecordQuery(success bool, queryTime time.Duration, isSlowQuery bool) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.TotalQueries++
	dm.TotalQueryTime += queryTime
	if success {
		dm.SuccessfulQueries++
	} else {
		dm.FailedQueries++
	}
	if isSlowQuery {
		dm.SlowQueries++
	}
}

func (dm *DatabaseMetrics) RecordRetry() {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	dm.Retries++
}

// Snapshot returns a copy of the counters.
func (dm *DatabaseMetrics) Snapshot() map[string]interface{} {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	var avg time.Duration
	if dm.TotalQueries > 0 {
		avg = dm.TotalQueryTime / time.Duration(dm.TotalQueries)
	}
	return map[string]interface{}{
		"total_queries":      dm.TotalQueries,
		"successful_queries": dm.SuccessfulQueries,
		"failed_queries":     dm.FailedQueries,
		"slow_queries":       dm.SlowQueries,
		"retries":            dm.Retries,
		"average_query_time": avg.String(),
	}
}

// MetricsRegistry collects the named service metrics exposed to admins.
type MetricsRegistry struct {
	mutex    sync.RWMutex
	services map[string]*ServiceMetrics
	HTTP     *HTTPMetrics
	Database *DatabaseMetrics
}

func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		services: make(map[string]*ServiceMetrics),
		HTTP:     NewHTTPMetrics(),
		Database: NewDatabaseMetrics(),
	}
}

// Service returns the metrics for name, creating them on first use.
func (r *MetricsRegistry) Service(name string) *ServiceMetrics {
	r.mutex.RLock()
	m, ok := r.services[name]
	r.mutex.RUnlock()
	if ok {
		return m
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	if m, ok = r.services[name]; ok {
		return m
	}
	m = NewServiceMetrics(name)
	r.services[name] = m
	return m
}

// Snapshot returns every registered metric set.
func (r *MetricsRegistry) Snapshot() map[string]interface{} {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	services := make(map[string]MetricsSnapshot, len(r.services))
	for name, m := range r.services {
		services[name] = m.GetSnapshot()
	}
	return map[string]interface{}{
		"services": services,
		"http":     r.HTTP.Snapshot(),
		"database": r.Database.Snapshot(),
	}
}
