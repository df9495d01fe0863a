// Package metrics provides Prometheus metrics for the scoreboard service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup outcomes used as the "result" label.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheBypass   = "bypass"
	CacheGetError = "error"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Scoreboard
	standingsRequests    *prometheus.CounterVec
	standingsComputation *prometheus.HistogramVec
	standingsRows        prometheus.Histogram
	aggregationErrors    prometheus.Counter
	eventsReplayed       prometheus.Counter
	eventsEmitted        prometheus.Counter
	eventsReplayLatency  prometheus.Histogram

	// Cache
	cacheLookups       *prometheus.CounterVec
	cacheSets          *prometheus.CounterVec
	cacheSetErrors     *prometheus.CounterVec
	cacheStaleSkips    prometheus.Counter
	cacheInvalidations prometheus.Counter

	// Run store and grader
	storeQueryLatency   *prometheus.HistogramVec
	detailFetchLatency  prometheus.Histogram
	detailFetchErrors   prometheus.Counter
	detailRateLimitWait prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Warm queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec
	warmCoalesced      prometheus.Counter

	// Warm workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoreboard",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.standingsRequests = m.counterVec("standings_requests_total", "Standings requests by view and cache result", "view", "result")
	m.standingsComputation = m.histogramVec("standings_computation_milliseconds", "Time to compute a scoreboard snapshot", "view")
	m.standingsRows = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("standings_rows"), Help: "Participants per computed snapshot",
		ConstLabels: m.customLabels, Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	m.aggregationErrors = m.counter("aggregation_errors_total", "Failed score aggregations")
	m.eventsReplayed = m.counter("event_replays_total", "Event stream requests served")
	m.eventsEmitted = m.counter("events_emitted_total", "Scoreboard events emitted by replays")
	m.eventsReplayLatency = m.histogram("event_replay_milliseconds", "Time to replay a contest's runs")

	m.cacheLookups = m.counterVec("cache_lookups_total", "Scoreboard cache lookups by view and result", "view", "result")
	m.cacheSets = m.counterVec("cache_sets_total", "Scoreboard snapshots written to cache", "view")
	m.cacheSetErrors = m.counterVec("cache_set_errors_total", "Failed scoreboard cache writes", "view")
	m.cacheStaleSkips = m.counter("cache_stale_skips_total", "Snapshots not cached because the contest was invalidated meanwhile")
	m.cacheInvalidations = m.counter("cache_invalidations_total", "Contest scoreboard invalidations")

	m.storeQueryLatency = m.histogramVec("store_query_milliseconds", "Run store query latency", "query")
	m.detailFetchLatency = m.histogram("detail_fetch_milliseconds", "Grader run detail latency")
	m.detailFetchErrors = m.counter("detail_fetch_errors_total", "Failed grader run detail lookups")
	m.detailRateLimitWait = m.histogram("detail_rate_limit_wait_milliseconds", "Time spent waiting on the grader rate limiter")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")

	m.queueSize = m.gauge("warm_queue_size", "Pending cache warm jobs")
	m.queueCapacity = m.gauge("warm_queue_capacity", "Warm queue capacity")
	m.queueUtilization = m.gauge("warm_queue_utilization_ratio", "Warm queue fill ratio")
	m.queueEnqueued = m.counter("warm_queue_enqueued_total", "Warm jobs enqueued")
	m.queueDequeued = m.counter("warm_queue_dequeued_total", "Warm jobs dequeued")
	m.queueEnqueueErrors = m.counterVec("warm_queue_enqueue_errors_total", "Warm jobs rejected by the queue", "reason")
	m.warmCoalesced = m.counter("warm_jobs_coalesced_total", "Warm requests merged into an already pending job")

	m.workerCount = m.gauge("warm_worker_count", "Running warm workers")
	m.workerProcessingLatency = m.histogram("warm_worker_processing_milliseconds", "Time to warm one contest")
	m.workerErrors = m.counter("warm_worker_errors_total", "Failed warm jobs")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Allocated heap bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause")
}

// RecordStandingsRequest counts a standings request by view and cache result.
func RecordStandingsRequest(view, result string) {
	globalManager.standingsRequests.WithLabelValues(view, result).Inc()
}

// RecordStandingsComputation records how long a snapshot took and its size.
func RecordStandingsComputation(view string, latencyMs float64, rows int) {
	globalManager.standingsComputation.WithLabelValues(view).Observe(latencyMs)
	globalManager.standingsRows.Observe(float64(rows))
}

// RecordAggregationError increments the aggregation error counter.
func RecordAggregationError() {
	globalManager.aggregationErrors.Inc()
}

// RecordEventReplay records one replay and the number of events it produced.
func RecordEventReplay(events int, latencyMs float64) {
	globalManager.eventsReplayed.Inc()
	globalManager.eventsEmitted.Add(float64(events))
	globalManager.eventsReplayLatency.Observe(latencyMs)
}

// RecordCacheLookup counts a cache lookup outcome.
func RecordCacheLookup(view, result string) {
	globalManager.cacheLookups.WithLabelValues(view, result).Inc()
}

// RecordCacheSet counts a cache write.
func RecordCacheSet(view string) {
	globalManager.cacheSets.WithLabelValues(view).Inc()
}

// RecordCacheSetError counts a failed cache write.
func RecordCacheSetError(view string) {
	globalManager.cacheSetErrors.WithLabelValues(view).Inc()
}

// RecordCacheStaleSkip counts a snapshot dropped because of a newer invalidation.
func RecordCacheStaleSkip() {
	globalManager.cacheStaleSkips.Inc()
}

// RecordCacheInvalidation counts a contest invalidation.
func RecordCacheInvalidation() {
	globalManager.cacheInvalidations.Inc()
}

// RecordStoreQueryLatency records one run store query.
func RecordStoreQueryLatency(query string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordDetailFetch records a grader detail lookup.
func RecordDetailFetch(latencyMs float64, err error) {
	globalManager.detailFetchLatency.Observe(latencyMs)
	if err != nil {
		globalManager.detailFetchErrors.Inc()
	}
}

// RecordDetailRateLimitWait records time spent blocked on the grader limiter.
func RecordDetailRateLimitWait(waitMs float64) {
	globalManager.detailRateLimitWait.Observe(waitMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current warm queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the warm queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected warm job by reason.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// RecordWarmCoalesced counts a warm request merged into a pending job.
func RecordWarmCoalesced() {
	globalManager.warmCoalesced.Inc()
}

// UpdateWorkerCount sets the number of running warm workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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

// Since returns the milliseconds elapsed since start.
func Since(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
