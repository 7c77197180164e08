// Package metrics provides Prometheus metrics for the telemetry platform
// (RED HTTP metrics, ingestion pipeline counters, analysis engine counters).
// Scrapeable at /metrics; names are stable across releases.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "telemetry"

var (
	// HTTPRequestTotal counts requests by method, path, status (RED: rate).
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency histogram (RED: duration).
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~3.8s
		},
		[]string{"method", "path"},
	)

	// IngestReadingsTotal counts ingested readings by outcome (accepted,
	// rejected_malformed, rejected_identity_mismatch, rejected_invalid,
	// rejected_quality, rejected_store).
	IngestReadingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_readings_total",
			Help:      "Total number of readings processed by the ingestion engine, by outcome.",
		},
		[]string{"outcome"},
	)

	// IngestBufferOverflowTotal counts readings dropped because the bounded
	// buffer was full (drop-new backpressure policy).
	IngestBufferOverflowTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_buffer_overflow_total",
			Help:      "Total number of readings dropped because the ingestion buffer was full.",
		},
	)

	// IngestBufferDepth tracks current buffer occupancy.
	IngestBufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_buffer_depth",
			Help:      "Current number of readings waiting in the ingestion buffer.",
		},
	)

	// IngestBatchSizeReadings counts persisted batches and their size.
	IngestBatchSizeReadings = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_size_readings",
			Help:      "Number of readings in each persisted batch.",
			Buckets:   prometheus.LinearBuckets(10, 50, 10), // 10..460
		},
	)

	// IngestStoreWriteDurationSeconds tracks batch persistence latency.
	IngestStoreWriteDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_store_write_duration_seconds",
			Help:      "Duration of a batch write to the store.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	// IngestStoreWriteRetriesTotal counts retried batch writes.
	IngestStoreWriteRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_store_write_retries_total",
			Help:      "Total number of batch writes that required a retry.",
		},
	)

	// MQTTConnectionState is 1 when the MQTT subscriber is connected, else 0.
	MQTTConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connection_state",
			Help:      "Current MQTT connection state (1=connected, 0=disconnected).",
		},
	)

	// MQTTReconnectsTotal counts reconnect attempts by outcome.
	MQTTReconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_reconnects_total",
			Help:      "Total number of MQTT reconnect attempts by outcome.",
		},
		[]string{"outcome"}, // attempt, failure
	)

	// AnalysisRunsTotal counts analysis engine invocations by outcome.
	AnalysisRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_runs_total",
			Help:      "Total number of analysis engine invocations, by outcome.",
		},
		[]string{"outcome"}, // ok, insufficient_data, store_error
	)

	// AnalysisDurationSeconds tracks analysis computation latency.
	AnalysisDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a single machine analysis run.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		},
	)

	// AnomaliesDetectedTotal counts anomalies detected by type and severity.
	AnomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_detected_total",
			Help:      "Total number of anomalies detected, by type and severity.",
		},
		[]string{"type", "severity"},
	)

	// WebSocketConnectionsActive is current number of WebSocket clients.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active WebSocket connections.",
		},
	)

	// WebSocketMessagesSentTotal counts WebSocket messages sent to clients.
	WebSocketMessagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_sent_total",
			Help:      "Total number of WebSocket messages sent to clients.",
		},
	)

	// DBQueryDurationSeconds tracks store query latency by operation type.
	DBQueryDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Store query duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"}, // append_batch, scan_machine, scan_range, scan_above_threshold, aggregate, drop_before
	)

	// AuthLoginAttemptsTotal counts authentication login attempts.
	AuthLoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_login_attempts_total",
			Help:      "Total number of authentication login attempts.",
		},
		[]string{"outcome"}, // success, unknown_user, wrong_password
	)
)
