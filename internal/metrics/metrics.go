// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Correlation loop
	CorrelationTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_correlation_ticks_total",
			Help: "Correlation ticks by outcome",
		},
		[]string{"outcome"}, // ok, error, panic
	)

	CorrelationTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moodscore_correlation_tick_duration_seconds",
			Help:    "Wall time of one correlation tick",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	MonitorState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodscore_monitor_state",
			Help: "Orchestrator state (0=stopped, 1=starting, 2=running, 3=stop_requested)",
		},
	)

	// Scoring
	ScoreDeltasApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_score_deltas_applied_total",
			Help: "Deltas applied to track records by category and source",
		},
		[]string{"category", "source"},
	)

	ScoreRecordsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodscore_score_records_created_total",
			Help: "Track records created by a first delta",
		},
	)

	LegacyMigrations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodscore_legacy_migrations_total",
			Help: "Legacy records migrated to the per-category shape",
		},
	)

	ScoreApplyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_score_apply_failures_total",
			Help: "applyDelta calls that failed and were dropped",
		},
		[]string{"source"},
	)

	// Store
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodscore_store_operation_duration_seconds",
			Help:    "Score store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_store_operation_errors_total",
			Help: "Score store operation failures",
		},
		[]string{"driver", "operation"},
	)

	// Playback
	PlaybackPolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_playback_polls_total",
			Help: "Playback polls by result",
		},
		[]string{"result"}, // track, idle, error
	)

	TrackTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_track_transitions_total",
			Help: "Observed track changes by classification",
		},
		[]string{"kind"}, // skip, natural
	)

	// Sampler
	SamplerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "moodscore_sampler_active",
			Help: "1 while the emotion sampler capture loop is running",
		},
	)

	SamplerFramesCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodscore_sampler_frames_captured_total",
			Help: "Frames read from the camera",
		},
	)

	SamplerClassifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_sampler_classifications_total",
			Help: "Classifier invocations by outcome",
		},
		[]string{"outcome"}, // ok, error
	)

	// Notifier
	NotifierSignals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodscore_notifier_signals_total",
			Help: "ChangeNotifier.Signal calls",
		},
	)

	NotifierWakeups = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "moodscore_notifier_wakeups_total",
			Help: "Debounced wake-ups delivered to listeners",
		},
	)

	// Events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodscore_events_published_total",
			Help: "Score change events published by transport and result",
		},
		[]string{"transport", "result"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// WebSocket
	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordTick records one correlation tick.
func RecordTick(outcome string, duration time.Duration) {
	CorrelationTicks.WithLabelValues(outcome).Inc()
	CorrelationTickDuration.Observe(duration.Seconds())
}

// RecordStoreOp records latency and, when err is non-nil, a failure.
func RecordStoreOp(driver, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(driver, operation).Inc()
	}
}

// RecordDeltaApplied records a successful applyDelta.
func RecordDeltaApplied(category, source string, created, migrated bool) {
	ScoreDeltasApplied.WithLabelValues(category, source).Inc()
	if created {
		ScoreRecordsCreated.Inc()
	}
	if migrated {
		LegacyMigrations.Inc()
	}
}

// RecordTransition records a classified track change.
func RecordTransition(skip bool) {
	if skip {
		TrackTransitions.WithLabelValues("skip").Inc()
		return
	}
	TrackTransitions.WithLabelValues("natural").Inc()
}

// RecordClassification records a classifier call.
func RecordClassification(err error) {
	if err != nil {
		SamplerClassifications.WithLabelValues("error").Inc()
		return
	}
	SamplerClassifications.WithLabelValues("ok").Inc()
}

// RecordPublish records a score event publication.
func RecordPublish(transport string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsPublished.WithLabelValues(transport, result).Inc()
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
