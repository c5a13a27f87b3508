// Package metrics provides Prometheus metrics for the interview matching service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the matching service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Queue metrics - enrollment and cancellation flow
	enqueues          prometheus.Counter
	enqueueDuplicates prometheus.Counter
	withdrawals       prometheus.Counter
	queueWaiting      prometheus.Gauge
	bucketsLive       prometheus.Gauge

	// Matching metrics - what the engine produced and fought over
	matches          prometheus.Counter
	matchConflicts   prometheus.Counter
	matchPassLatency prometheus.Histogram

	// Session metrics - lifecycle outcomes
	sessionsCreated    prometheus.Counter
	sessionTransitions *prometheus.CounterVec
	videoFallbacks     prometheus.Counter
	notifyFailures     prometheus.Counter

	// Trigger/worker metrics - scheduling health
	triggersFired     prometheus.Counter
	triggersCoalesced prometheus.Counter
	triggerQueueSize  prometheus.Gauge
	sweepRuns         prometheus.Counter
	workerCount       prometheus.Gauge
	workerErrors      prometheus.Counter

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "supermock",
		subsystem:        "matcher",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.enqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enqueues_total",
		Help:      "Total number of queue entries created",
	})

	m.enqueueDuplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enqueue_duplicates_total",
		Help:      "Total number of idempotent enqueues that hit an existing waiting entry",
	})

	m.withdrawals = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "withdrawals_total",
		Help:      "Total number of user withdrawal requests processed",
	})

	m.queueWaiting = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_waiting",
		Help:      "Current number of waiting queue entries",
	})

	m.bucketsLive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "buckets_live",
		Help:      "Current number of buckets holding at least one waiting entry",
	})

	m.matches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "matches_total",
		Help:      "Total number of interviewer/candidate pairs matched",
	})

	m.matchConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_conflicts_total",
		Help:      "Total number of matching races lost to a concurrent pass",
	})

	m.matchPassLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_pass_latency_milliseconds",
		Help:      "Histogram of matching pass latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.sessionsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_created_total",
		Help:      "Total number of sessions created",
	})

	m.sessionTransitions = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "session_transitions_total",
			Help:      "Total number of session status transitions by target status",
		},
		[]string{"target"},
	)

	m.videoFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "video_fallbacks_total",
		Help:      "Total number of sessions whose video link fell back to manual",
	})

	m.notifyFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notify_failures_total",
		Help:      "Total number of lifecycle events that failed to deliver",
	})

	m.triggersFired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "triggers_fired_total",
		Help:      "Total number of bucket triggers scheduled",
	})

	m.triggersCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "triggers_coalesced_total",
		Help:      "Total number of trigger fires coalesced into a pending pass",
	})

	m.triggerQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "trigger_queue_size",
		Help:      "Current number of buckets awaiting a matching pass",
	})

	m.sweepRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sweep_runs_total",
		Help:      "Total number of periodic sweep passes",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of matching workers",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of matching passes that failed",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordEnqueue increments the enqueue counter.
func RecordEnqueue() {
	globalManager.enqueues.Inc()
}

// RecordEnqueueDuplicate increments the duplicate-enqueue counter.
func RecordEnqueueDuplicate() {
	globalManager.enqueueDuplicates.Inc()
}

// RecordWithdrawal increments the withdrawal counter.
func RecordWithdrawal() {
	globalManager.withdrawals.Inc()
}

// UpdateQueueWaiting sets the waiting-entry gauge.
func UpdateQueueWaiting(count int) {
	globalManager.queueWaiting.Set(float64(count))
}

// UpdateBucketsLive sets the live-bucket gauge.
func UpdateBucketsLive(count int) {
	globalManager.bucketsLive.Set(float64(count))
}

// RecordMatch increments the match counter.
func RecordMatch() {
	globalManager.matches.Inc()
}

// RecordMatchConflict increments the lost-race counter.
func RecordMatchConflict() {
	globalManager.matchConflicts.Inc()
}

// RecordMatchPassLatency records matching pass latency in milliseconds.
func RecordMatchPassLatency(latencyMs float64) {
	globalManager.matchPassLatency.Observe(latencyMs)
}

// RecordSessionCreated increments the session counter.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionTransition increments the transition counter for the target status.
func RecordSessionTransition(target string) {
	globalManager.sessionTransitions.WithLabelValues(target).Inc()
}

// RecordVideoFallback increments the manual-video-fallback counter.
func RecordVideoFallback() {
	globalManager.videoFallbacks.Inc()
}

// RecordNotifyFailure increments the dropped-notification counter.
func RecordNotifyFailure() {
	globalManager.notifyFailures.Inc()
}

// RecordTriggerFired increments the trigger counter.
func RecordTriggerFired() {
	globalManager.triggersFired.Inc()
}

// RecordTriggerCoalesced increments the coalesced-trigger counter.
func RecordTriggerCoalesced() {
	globalManager.triggersCoalesced.Inc()
}

// UpdateTriggerQueueSize sets the pending-bucket gauge.
func UpdateTriggerQueueSize(size int) {
	globalManager.triggerQueueSize.Set(float64(size))
}

// RecordSweepRun increments the sweep counter.
func RecordSweepRun() {
	globalManager.sweepRuns.Inc()
}

// UpdateWorkerCount sets the worker gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the failed-pass counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
