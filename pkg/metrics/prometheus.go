package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric name defaults.
const (
	DefaultNamespace = "sprof"
	DefaultSubsystem = "analysis"
)

// DefaultLatencyBuckets returns the latency buckets, in milliseconds, used
// when none are configured.
func DefaultLatencyBuckets() []float64 {
	return []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}
}

// Analysis outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
)

// Manager owns every Prometheus metric of the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	constLabels    prometheus.Labels
	registry       prometheus.Registerer

	// Analysis metrics
	analyses       *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	pointsRemoved  prometheus.Histogram
	fitIterations  prometheus.Histogram
	storedAnalyses prometheus.Gauge

	// Watcher metrics
	filesSeen *prometheus.CounterVec

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var (
	customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /metrics
	globalManager  *Manager                   //nolint:gochecknoglobals // singleton behind the Record* helpers
)

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Init rebuilds the global manager with opts on a fresh registry, which
// GetRegistry returns from then on. It must run before any metric is
// recorded, typically right after the configuration is loaded.
func Init(opts ...Option) {
	reg := prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(reg))...)
	customRegistry = reg
}

// NewManager creates a Manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      DefaultNamespace,
		subsystem:      DefaultSubsystem,
		latencyBuckets: DefaultLatencyBuckets(),
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(
		m.counterOpts("analyses_total", "Analyses by outcome and error kind"),
		[]string{"outcome", "kind"},
	)
	m.stageLatency = auto.NewHistogramVec(
		m.histogramOpts("stage_latency_milliseconds", "Time spent in each analysis stage", m.latencyBuckets),
		[]string{"stage"},
	)
	m.pointsRemoved = auto.NewHistogram(
		m.histogramOpts("points_removed", "Samples removed as outliers per sprint", []float64{0, 1, 2, 3, 6, 10, 15, 25}),
	)
	m.fitIterations = auto.NewHistogram(
		m.histogramOpts("fit_iterations", "Levenberg-Marquardt iterations of the final fit", []float64{2, 5, 10, 20, 50, 100, 200}),
	)
	m.storedAnalyses = auto.NewGauge(m.gaugeOpts("stored_analyses", "Analyses held by the repository"))

	m.filesSeen = auto.NewCounterVec(
		m.counterOpts("watched_files_total", "Radar files seen by the directory watcher"),
		[]string{"result"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum number of queued jobs"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Jobs accepted by the queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Jobs taken from the queue"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Jobs rejected by the queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured analysis workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently analysing a trace"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Time to process one job", m.latencyBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Jobs whose handler returned an error"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status code"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration", m.latencyBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_total", "Errors by component and type"),
		[]string{"component", "type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100}),
	)
}

// RecordAnalysis counts one finished analysis. kind is the error kind for
// failures and "none" otherwise.
func (m *Manager) RecordAnalysis(outcome, kind string) error {
	switch outcome {
	case OutcomeSuccess, OutcomeFailed, OutcomeDuplicate:
	default:
		return fmt.Errorf("%q: %w", outcome, ErrUnknownOutcome)
	}
	m.analyses.WithLabelValues(outcome, kind).Inc()
	return nil
}

// RecordStageLatency observes the time spent in one analysis stage.
func (m *Manager) RecordStageLatency(stage string, ms float64) {
	m.stageLatency.WithLabelValues(stage).Observe(ms)
}

// RecordSprint observes the outlier count and fit iterations of a sprint.
func (m *Manager) RecordSprint(pointsOut, iterations int) {
	m.pointsRemoved.Observe(float64(pointsOut))
	m.fitIterations.Observe(float64(iterations))
}

// RecordAnalysis counts one finished analysis on the global manager.
func RecordAnalysis(outcome, kind string) error { return globalManager.RecordAnalysis(outcome, kind) }

// RecordStageLatency observes a stage latency on the global manager.
func RecordStageLatency(stage string, ms float64) { globalManager.RecordStageLatency(stage, ms) }

// RecordSprint observes sprint statistics on the global manager.
func RecordSprint(pointsOut, iterations int) { globalManager.RecordSprint(pointsOut, iterations) }

// UpdateStoredAnalyses sets the number of stored analyses.
func UpdateStoredAnalyses(count int) { globalManager.storedAnalyses.Set(float64(count)) }

// RecordWatchedFile counts a file seen by the watcher with its result
// (queued, skipped, duplicate, unreadable).
func RecordWatchedFile(result string) { globalManager.filesSeen.WithLabelValues(result).Inc() }

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPauseTime.Observe(ms) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
