package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Video-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Upload lifecycle
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "uploads_total",
			Help:      "Upload lifecycle steps by stage and outcome",
		},
		[]string{"stage", "status"},
	)

	DeclaredUploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "declared_upload_bytes_total",
			Help:      "Total bytes declared by initiated uploads",
		},
	)

	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "session_transitions_total",
			Help:      "Terminal session transitions, including idempotent repeats",
		},
		[]string{"state", "changed"},
	)

	ReactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "reactions_total",
			Help:      "Reaction writes by operation",
		},
		[]string{"operation"},
	)

	// S3 operations
	S3OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "s3_operations_total",
			Help:      "Total S3 operations",
		},
		[]string{"operation", "status"},
	)

	S3Duration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "s3_duration_seconds",
			Help:      "S3 operation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	// Background work
	ExpiredSessionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "expired_sessions_total",
			Help:      "Upload sessions abandoned by the expiry sweep",
		},
	)

	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "expiry_sweeps_total",
			Help:      "Expiry sweep runs by outcome",
		},
		[]string{"status"},
	)

	QueueMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vidflow",
			Subsystem: "video_api",
			Name:      "queue_messages_total",
			Help:      "Transcode queue messages by direction and outcome",
		},
		[]string{"direction", "status"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records an upload lifecycle step
func RecordUpload(stage, status string) {
	UploadsTotal.WithLabelValues(stage, status).Inc()
}

// RecordDeclaredBytes adds the size of an accepted upload intent
func RecordDeclaredBytes(bytes int64) {
	if bytes > 0 {
		DeclaredUploadBytes.Add(float64(bytes))
	}
}

// RecordTransition records a terminal transition
func RecordTransition(state string, changed bool) {
	label := "false"
	if changed {
		label = "true"
	}
	TransitionsTotal.WithLabelValues(state, label).Inc()
}

// RecordReaction records a reaction write
func RecordReaction(operation string) {
	ReactionsTotal.WithLabelValues(operation).Inc()
}

// RecordS3Operation records an S3 operation
func RecordS3Operation(operation, status string, durationSec float64) {
	S3OperationsTotal.WithLabelValues(operation, status).Inc()
	S3Duration.WithLabelValues(operation).Observe(durationSec)
}

// RecordSweep records one expiry sweep
func RecordSweep(status string, expired int) {
	SweepRunsTotal.WithLabelValues(status).Inc()
	if expired > 0 {
		ExpiredSessionsTotal.Add(float64(expired))
	}
}

// RecordQueueMessage records a transcode queue message
func RecordQueueMessage(direction, status string) {
	QueueMessagesTotal.WithLabelValues(direction, status).Inc()
}
