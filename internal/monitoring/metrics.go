package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const responseSampleSize = 1000

// Metrics holds in-process counters served on /metrics
type Metrics struct {
	RequestCount  int64
	ErrorCount    int64
	CacheHits     int64
	CacheMisses   int64
	TotalDuration int64 // nanoseconds across all requests
	StartTime     time.Time

	HeatmapCalculations  int64
	AssessmentsCreated   int64
	AssessmentsSubmitted int64
	CSVRowsImported      int64
	CSVRowsRejected      int64
	DevicesScored        int64

	responseTimes []time.Duration
	next          int
	responseMutex sync.RWMutex

	requestCountByStatus map[int]int64
	statusMutex          sync.RWMutex

	CircuitBreakerOpens int64

	externalAPIRequests   map[string]int64
	externalAPIErrorCount map[string]int64
	externalAPIMutex      sync.RWMutex

	RateLimitIPBlocks       int64
	RateLimitRedisErrors    int64
	RateLimitFallbackCount  int64
	rateLimitEndpointBlocks map[string]int64
	rateLimitMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:               time.Now(),
		responseTimes:           make([]time.Duration, 0, responseSampleSize),
		requestCountByStatus:    make(map[int]int64),
		externalAPIRequests:     make(map[string]int64),
		externalAPIErrorCount:   make(map[string]int64),
		rateLimitEndpointBlocks: make(map[string]int64),
	}
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

func (m *Metrics) IncrementHeatmapCalculation() {
	atomic.AddInt64(&m.HeatmapCalculations, 1)
}

func (m *Metrics) IncrementAssessmentCreated() {
	atomic.AddInt64(&m.AssessmentsCreated, 1)
}

func (m *Metrics) IncrementAssessmentSubmitted() {
	atomic.AddInt64(&m.AssessmentsSubmitted, 1)
}

// RecordImport adds the outcome of one CSV import
func (m *Metrics) RecordImport(imported, rejected int) {
	atomic.AddInt64(&m.CSVRowsImported, int64(imported))
	atomic.AddInt64(&m.CSVRowsRejected, int64(rejected))
}

func (m *Metrics) AddDevicesScored(n int) {
	atomic.AddInt64(&m.DevicesScored, int64(n))
}

// RecordResponseTime records a response time for the average and the
// percentiles, which are computed over the last 1000 samples.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	atomic.AddInt64(&m.TotalDuration, duration.Nanoseconds())

	m.responseMutex.Lock()
	if len(m.responseTimes) < responseSampleSize {
		m.responseTimes = append(m.responseTimes, duration)
	} else {
		m.responseTimes[m.next] = duration
		m.next = (m.next + 1) % responseSampleSize
	}
	m.responseMutex.Unlock()
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.requestCountByStatus[statusCode]++
}

// IncrementCircuitBreakerOpen increments circuit breaker open count
func (m *Metrics) IncrementCircuitBreakerOpen() {
	atomic.AddInt64(&m.CircuitBreakerOpens, 1)
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.externalAPIMutex.Lock()
	defer m.externalAPIMutex.Unlock()

	m.externalAPIRequests[apiName]++
	if !success {
		m.externalAPIErrorCount[apiName]++
	}
}

// GetPercentileResponseTime calculates percentile response time
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.responseMutex.RLock()
	times := make([]time.Duration, len(m.responseTimes))
	copy(times, m.responseTimes)
	m.responseMutex.RUnlock()

	if len(times) == 0 {
		return 0
	}

	sort.Slice(times, func(i, j int) bool {
		return times[i] < times[j]
	})

	index := int(float64(len(times)-1) * percentile / 100.0)
	if index >= len(times) {
		index = len(times) - 1
	}

	return times[index]
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.requestCountByStatus))
	for code, count := range m.requestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetExternalAPIStats returns external API statistics
func (m *Metrics) GetExternalAPIStats() map[string]interface{} {
	m.externalAPIMutex.RLock()
	defer m.externalAPIMutex.RUnlock()

	stats := make(map[string]interface{})
	for api, requests := range m.externalAPIRequests {
		errors := m.externalAPIErrorCount[api]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errors) / float64(requests) * 100
		}

		stats[api] = map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"error_rate": errorRate,
		}
	}
	return stats
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := float64(0)
	avgResponseMs := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
		avgResponseMs = float64(atomic.LoadInt64(&m.TotalDuration)) / float64(requests) / 1e6
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.StartTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"avg_response_time_ms":   avgResponseMs,
		"start_time":             m.StartTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"external_api_stats":       m.GetExternalAPIStats(),
		"circuit_breaker_opens":    atomic.LoadInt64(&m.CircuitBreakerOpens),

		"heatmap_calculations":  atomic.LoadInt64(&m.HeatmapCalculations),
		"assessments_created":   atomic.LoadInt64(&m.AssessmentsCreated),
		"assessments_submitted": atomic.LoadInt64(&m.AssessmentsSubmitted),
		"csv_rows_imported":     atomic.LoadInt64(&m.CSVRowsImported),
		"csv_rows_rejected":     atomic.LoadInt64(&m.CSVRowsRejected),
		"devices_scored":        atomic.LoadInt64(&m.DevicesScored),
		"rate_limit":            m.GetRateLimitStats(),
	}
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// IncrementRateLimitEndpoint increments rate limit blocks for a specific endpoint
func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.rateLimitMutex.Lock()
	defer m.rateLimitMutex.Unlock()
	m.rateLimitEndpointBlocks[endpoint]++
}

// GetRateLimitStats returns rate limiting statistics
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	m.rateLimitMutex.RLock()
	endpointBlocks := make(map[string]int64, len(m.rateLimitEndpointBlocks))
	for k, v := range m.rateLimitEndpointBlocks {
		endpointBlocks[k] = v
	}
	m.rateLimitMutex.RUnlock()

	return map[string]interface{}{
		"ip_blocks":       atomic.LoadInt64(&m.RateLimitIPBlocks),
		"redis_errors":    atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.RateLimitFallbackCount),
		"endpoint_blocks": endpointBlocks,
	}
}
