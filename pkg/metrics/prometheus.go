// Package metrics provides Prometheus metrics for the birdie badge engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the badge engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Evaluation
	roundsEvaluated     prometheus.Counter
	roundsDuplicate     prometheus.Counter
	evaluationLatency   prometheus.Histogram
	pairsEvaluated      prometheus.Counter
	awardsGranted       *prometheus.CounterVec
	awardsAlreadyHeld   prometheus.Counter
	awardWriteErrors    prometheus.Counter
	predicateFaults     *prometheus.CounterVec
	aggregationFailures prometheus.Counter
	aggregationLatency  prometheus.Histogram
	progressConflicts   prometheus.Counter
	progressFailures    prometheus.Counter
	catalogBadges       prometheus.Gauge
	catalogReloads      *prometheus.CounterVec

	// Repository
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "birdie",
		subsystem:        "badges",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, Buckets: buckets, ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	latencyBuckets := []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

	m.roundsEvaluated = m.counter("rounds_evaluated_total", "Completed rounds run through the badge engine")
	m.roundsDuplicate = m.counter("rounds_duplicate_total", "Round submissions dropped as duplicates")
	m.evaluationLatency = m.histogram("round_evaluation_latency_milliseconds", "Time to evaluate all badges for one round", latencyBuckets)
	m.pairsEvaluated = m.counter("pairs_evaluated_total", "Player x badge pairs evaluated")
	m.awardsGranted = m.counterVec("awards_granted_total", "Award records newly created", "badge")
	m.awardsAlreadyHeld = m.counter("awards_already_held_total", "Award inserts that found an existing record")
	m.awardWriteErrors = m.counter("award_write_errors_total", "Award inserts that failed")
	m.predicateFaults = m.counterVec("predicate_faults_total", "Predicates that could not be evaluated", "badge")
	m.aggregationFailures = m.counter("aggregation_unavailable_total", "Historical aggregations that timed out or failed")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Historical aggregation latency", latencyBuckets)
	m.progressConflicts = m.counter("progress_conflicts_total", "Optimistic progress updates that lost a race and retried")
	m.progressFailures = m.counter("progress_write_failures_total", "Progress updates abandoned after retries or store errors")
	m.catalogBadges = m.gauge("catalog_badges", "Badge definitions in the active catalog")
	m.catalogReloads = m.counterVec("catalog_reloads_total", "Catalog reload attempts", "result")

	m.repositoryUpdateLatency = m.histogram("repository_update_latency_milliseconds", "Repository write latency", latencyBuckets)
	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Repository read latency", latencyBuckets)

	m.queueSize = m.gauge("queue_size", "Rounds waiting in the evaluation queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Rounds enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Rounds dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rounds rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Workers draining the round queue")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-round worker latency", latencyBuckets)
	m.workerErrorRate = m.counter("worker_errors_total", "Rounds a worker failed to evaluate")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("http_request_duration_milliseconds"),
		Help: "HTTP request duration", Buckets: latencyBuckets, ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Evaluation Metrics Functions.

// RecordRoundEvaluated increments the evaluated rounds counter and observes latency.
func RecordRoundEvaluated(latencyMs float64) {
	globalManager.roundsEvaluated.Inc()
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordRoundDuplicate increments the duplicate round submissions counter.
func RecordRoundDuplicate() {
	globalManager.roundsDuplicate.Inc()
}

// RecordPairEvaluated increments the player x badge pair counter.
func RecordPairEvaluated() {
	globalManager.pairsEvaluated.Inc()
}

// RecordAwardGranted increments the awards counter for a badge.
func RecordAwardGranted(badgeID string) {
	globalManager.awardsGranted.WithLabelValues(badgeID).Inc()
}

// RecordAwardAlreadyHeld increments the idempotent-insert counter.
func RecordAwardAlreadyHeld() {
	globalManager.awardsAlreadyHeld.Inc()
}

// RecordAwardWriteError increments the failed award insert counter.
func RecordAwardWriteError() {
	globalManager.awardWriteErrors.Inc()
}

// RecordPredicateFault increments the predicate fault counter for a badge.
func RecordPredicateFault(badgeID string) {
	globalManager.predicateFaults.WithLabelValues(badgeID).Inc()
}

// RecordAggregationUnavailable increments the unavailable aggregation counter.
func RecordAggregationUnavailable() {
	globalManager.aggregationFailures.Inc()
}

// RecordAggregationLatency records historical aggregation latency.
func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordProgressConflict increments the CAS conflict counter.
func RecordProgressConflict() {
	globalManager.progressConflicts.Inc()
}

// RecordProgressWriteFailure increments the abandoned progress update counter.
func RecordProgressWriteFailure() {
	globalManager.progressFailures.Inc()
}

// UpdateCatalogBadges sets the number of active badge definitions.
func UpdateCatalogBadges(count int) {
	globalManager.catalogBadges.Set(float64(count))
}

// RecordCatalogReload records a reload attempt outcome ("ok" or "rejected").
func RecordCatalogReload(result string) {
	globalManager.catalogReloads.WithLabelValues(result).Inc()
}

// Repository Metrics Functions.

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
