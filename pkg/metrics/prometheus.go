// Package metrics provides Prometheus metrics for the anek-counter service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Business metrics
	eventsRecorded *prometheus.CounterVec
	eventsRejected prometheus.Counter
	usersUpserted  prometheus.Counter

	// Store metrics
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       prometheus.Counter

	// Conversation metrics
	activeConversations   prometheus.Gauge
	conversationsFinished prometheus.Counter
	conversationsCanceled prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "anek",
		subsystem:        "counter",
		histogramBuckets: prometheus.DefBuckets,
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

	m.eventsRecorded = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_recorded_total",
			Help:      "Total number of events written to the log, by type code",
		},
		[]string{"type"},
	)

	m.eventsRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_rejected_total",
		Help:      "Total number of event writes rejected by validation or type lookup",
	})

	m.usersUpserted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "users_upserted_total",
		Help:      "Total number of user identity upserts",
	})

	m.storeQueryLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "store_query_latency_milliseconds",
			Help:      "Histogram of store query latency in milliseconds, by query name",
			Buckets:   m.histogramBuckets,
		},
		[]string{"query"},
	)

	m.storeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_errors_total",
		Help:      "Total number of store query failures",
	})

	m.activeConversations = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_conversations",
		Help:      "Number of in-progress logging conversations",
	})

	m.conversationsFinished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "conversations_finished_total",
		Help:      "Total number of logging conversations completed",
	})

	m.conversationsCanceled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "conversations_canceled_total",
		Help:      "Total number of logging conversations canceled",
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
}

// RecordEventRecorded increments the recorded-events counter for a type code.
func RecordEventRecorded(typeCode string) {
	globalManager.eventsRecorded.WithLabelValues(typeCode).Inc()
}

// RecordEventRejected increments the rejected-events counter.
func RecordEventRejected() {
	globalManager.eventsRejected.Inc()
}

// RecordUserUpserted increments the user upsert counter.
func RecordUserUpserted() {
	globalManager.usersUpserted.Inc()
}

// RecordStoreQueryLatency records the latency of a named store query.
func RecordStoreQueryLatency(query string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordStoreError increments the store failure counter.
func RecordStoreError() {
	globalManager.storeErrors.Inc()
}

// UpdateActiveConversations sets the in-progress conversation gauge.
func UpdateActiveConversations(count int) {
	globalManager.activeConversations.Set(float64(count))
}

// RecordConversationFinished increments the completed-conversation counter.
func RecordConversationFinished() {
	globalManager.conversationsFinished.Inc()
}

// RecordConversationCanceled increments the canceled-conversation counter.
func RecordConversationCanceled() {
	globalManager.conversationsCanceled.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry backing the global manager,
// for exposing via promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
