package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the messaging service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Message lifecycle metrics
	messagesAppendedTotal  *prometheus.CounterVec
	messagesDeletedTotal   prometheus.Counter
	messagesMarkedReadTotal prometheus.Counter
	appendRejectedTotal    *prometheus.CounterVec

	// Conversation metrics
	conversationsCreatedTotal prometheus.Counter

	// Upload validation metrics
	uploadRejectedTotal *prometheus.CounterVec
	uploadSizeBytes     prometheus.Histogram
	uploadByMIMEType    *prometheus.CounterVec

	// Poll traffic metrics
	pollRequestsTotal *prometheus.CounterVec

	// Unread cache metrics
	unreadCacheHitsTotal   prometheus.Counter
	unreadCacheMissesTotal prometheus.Counter
}

// NewMetrics creates all metrics registered on a private registry
func NewMetrics(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		messagesAppendedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "messages_appended_total",
				Help:        "Total number of messages appended",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		messagesDeletedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "messages_deleted_total",
				Help:        "Total number of messages deleted by their sender",
				ConstLabels: labels,
			},
		),
		messagesMarkedReadTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "messages_marked_read_total",
				Help:        "Total number of messages transitioned to read",
				ConstLabels: labels,
			},
		),
		appendRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "message_append_rejected_total",
				Help:        "Total number of append requests rejected before persistence",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),

		conversationsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "conversations_created_total",
				Help:        "Total number of conversations created",
				ConstLabels: labels,
			},
		),

		uploadRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "upload_rejected_total",
				Help:        "Total number of uploads rejected by validation",
				ConstLabels: labels,
			},
			[]string{"reason"},
		),
		uploadSizeBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "upload_size_bytes",
				Help:        "Histogram of uploaded file sizes in bytes",
				ConstLabels: labels,
				Buckets:     []float64{1024, 10240, 102400, 1048576, 10485760, 52428800},
			},
		),
		uploadByMIMEType: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "upload_by_mime_type_total",
				Help:        "Total number of uploads by MIME type",
				ConstLabels: labels,
			},
			[]string{"mime_type"},
		),

		pollRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "poll_requests_total",
				Help:        "Total number of poll requests by resource",
				ConstLabels: labels,
			},
			[]string{"resource"},
		),

		unreadCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "unread_cache_hits_total",
				Help:        "Total number of unread-count cache hits",
				ConstLabels: labels,
			},
		),
		unreadCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "unread_cache_misses_total",
				Help:        "Total number of unread-count cache misses",
				ConstLabels: labels,
			},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsInFlight,
		m.messagesAppendedTotal,
		m.messagesDeletedTotal,
		m.messagesMarkedReadTotal,
		m.appendRejectedTotal,
		m.conversationsCreatedTotal,
		m.uploadRejectedTotal,
		m.uploadSizeBytes,
		m.uploadByMIMEType,
		m.pollRequestsTotal,
		m.unreadCacheHitsTotal,
		m.unreadCacheMissesTotal,
	)

	return m
}

// GetRegistry returns the private Prometheus registry for scraping
func (m *Metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the number of in-flight HTTP requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the number of in-flight HTTP requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// RecordMessageAppended records a persisted message by kind
func (m *Metrics) RecordMessageAppended(kind string) {
	m.messagesAppendedTotal.WithLabelValues(kind).Inc()
}

// RecordMessageDeleted records a sender-initiated deletion
func (m *Metrics) RecordMessageDeleted() {
	m.messagesDeletedTotal.Inc()
}

// RecordMessagesMarkedRead records messages transitioned to read in bulk
func (m *Metrics) RecordMessagesMarkedRead(count int64) {
	m.messagesMarkedReadTotal.Add(float64(count))
}

// RecordAppendRejected records an append rejected before any I/O
func (m *Metrics) RecordAppendRejected(reason string) {
	m.appendRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordConversationCreated records a newly created conversation
func (m *Metrics) RecordConversationCreated() {
	m.conversationsCreatedTotal.Inc()
}

// RecordUploadRejected records an upload rejected by validation
func (m *Metrics) RecordUploadRejected(reason string) {
	m.uploadRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordUploadAccepted records an accepted upload's size and MIME type
func (m *Metrics) RecordUploadAccepted(mimeType string, size int64) {
	m.uploadSizeBytes.Observe(float64(size))
	m.uploadByMIMEType.WithLabelValues(mimeType).Inc()
}

// RecordPollRequest records a poll of a client-facing resource
func (m *Metrics) RecordPollRequest(resource string) {
	m.pollRequestsTotal.WithLabelValues(resource).Inc()
}

// RecordUnreadCacheHit records an unread-count cache hit
func (m *Metrics) RecordUnreadCacheHit() {
	m.unreadCacheHitsTotal.Inc()
}

// RecordUnreadCacheMiss records an unread-count cache miss
func (m *Metrics) RecordUnreadCacheMiss() {
	m.unreadCacheMissesTotal.Inc()
}
