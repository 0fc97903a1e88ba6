package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// File engine metrics
	FileOps            *prometheus.CounterVec
	FileOpDuration     *prometheus.HistogramVec
	TenantRootsCreated prometheus.Counter
	ArchiveBytes       *prometheus.HistogramVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64
	TotalErrors   int64
	TotalDuration float64 // sum of all request durations
	RequestCount  int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panel_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panel_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// File engine metrics
		FileOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "panel_file_operations_total",
				Help: "Total number of file engine operations",
			},
			[]string{"operation", "status"},
		),
		FileOpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panel_file_operation_duration_seconds",
				Help:    "File engine operation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation"},
		),
		TenantRootsCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "panel_tenant_roots_created_total",
				Help: "Total number of tenant root directories created",
			},
		),
		ArchiveBytes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "panel_archive_bytes",
				Help:    "Archive sizes processed, by direction",
				Buckets: []float64{1000, 10000, 100000, 1000000, 10000000, 100000000},
			},
			[]string{"direction"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "panel_uptime_seconds",
				Help: "Service uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status[0] == '4' || status[0] == '5' {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordFileOp records a file engine operation. Status is "ok" or the
// error code of the failure.
func (m *Metrics) RecordFileOp(operation, status string, duration time.Duration) {
	m.FileOps.WithLabelValues(operation, status).Inc()
	m.FileOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordArchiveBytes records the size of a compressed or extracted archive
func (m *Metrics) RecordArchiveBytes(direction string, bytes int64) {
	m.ArchiveBytes.WithLabelValues(direction).Observe(float64(bytes))
}

// IncTenantRootsCreated increments the tenant root creation counter
func (m *Metrics) IncTenantRootsCreated() {
	m.TenantRootsCreated.Inc()
}

// Snapshot returns the current aggregate request counters
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
