// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Broker Metrics
	BrokerMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_published_total",
			Help: "Total number of messages published to the broker",
		},
		[]string{"topic"},
	)

	BrokerPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_publish_errors_total",
			Help: "Total number of failed publish attempts",
		},
		[]string{"topic"},
	)

	BrokerMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_messages_consumed_total",
			Help: "Total number of messages consumed from the broker",
		},
		[]string{"topic"},
	)

	BrokerReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broker_reconnects_total",
			Help: "Total number of broker reconnection attempts",
		},
	)

	BrokerConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broker_connection_state",
			Help: "Broker connection state (0=disconnected, 1=connected)",
		},
	)

	// Event Router Metrics
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_processed_total",
			Help: "Total number of events successfully processed",
		},
		[]string{"kind"},
	)

	EventsParseFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_parse_failed_total",
			Help: "Total number of events that failed to decode or validate",
		},
		[]string{"topic"},
	)

	EventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_deduplicated_total",
			Help: "Total number of events skipped as duplicates",
		},
	)

	EventsPoisoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_poisoned_total",
			Help: "Total number of events routed to the dead letter topic",
		},
		[]string{"kind"},
	)

	EventProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "event_processing_duration_seconds",
			Help:    "Duration of event handler execution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Replica Metrics
	ReplicaApplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_applies_total",
			Help: "Total number of replica mutations applied",
		},
		[]string{"entity", "operation"},
	)

	ReplicaApplyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replica_apply_errors_total",
			Help: "Total number of failed replica mutations",
		},
		[]string{"entity", "operation"},
	)

	ReplicaCascadeDeletes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replica_cascade_deletes_total",
			Help: "Total number of playlist links removed by cascade deletes",
		},
	)

	// Interaction Fact Metrics
	FactsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "facts_recorded_total",
			Help: "Total number of interaction facts recorded",
		},
		[]string{"fact_type"}, // "view", "rating", "playlist"
	)

	// Recommendation Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_served_total",
			Help: "Total number of recommendation requests served",
		},
		[]string{"outcome"}, // "full", "fallback", "empty"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation aggregation in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		},
	)

	SignalsUnavailable = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_signals_unavailable_total",
			Help: "Total number of signal fetches that failed or timed out",
		},
		[]string{"signal"}, // "branch_popular", "top_rated", "paired"
	)

	SignalFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_signal_fetch_duration_seconds",
			Help:    "Duration of individual signal fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"signal"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "signal", "dedup"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
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

	// HTTP Metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP request handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of HTTP requests currently being handled",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordPublish records a publish attempt and its outcome.
func RecordPublish(topic string, err error) {
	if err != nil {
		BrokerPublishErrors.WithLabelValues(topic).Inc()
		return
	}
	BrokerMessagesPublished.WithLabelValues(topic).Inc()
}

// RecordConsume records a message being consumed from a topic.
func RecordConsume(topic string) {
	BrokerMessagesConsumed.WithLabelValues(topic).Inc()
}

// RecordReconnect records a broker reconnection attempt.
func RecordReconnect() {
	BrokerReconnects.Inc()
}

// SetConnected updates the broker connection state gauge.
func SetConnected(connected bool) {
	if connected {
		BrokerConnectionState.Set(1)
	} else {
		BrokerConnectionState.Set(0)
	}
}

// RecordEventProcessed records a successfully handled event.
func RecordEventProcessed(kind string, duration time.Duration) {
	EventsProcessed.WithLabelValues(kind).Inc()
	EventProcessingDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordParseFailure records an event that could not be decoded or validated.
func RecordParseFailure(topic string) {
	EventsParseFailed.WithLabelValues(topic).Inc()
}

// RecordDeduplicated records an event skipped as a duplicate redelivery.
func RecordDeduplicated() {
	EventsDeduplicated.Inc()
}

// RecordPoisoned records an event handed to the dead letter topic.
func RecordPoisoned(kind string) {
	EventsPoisoned.WithLabelValues(kind).Inc()
}

// RecordReplicaApply records a replica mutation and its outcome.
func RecordReplicaApply(entity, operation string, err error) {
	if err != nil {
		ReplicaApplyErrors.WithLabelValues(entity, operation).Inc()
		return
	}
	ReplicaApplies.WithLabelValues(entity, operation).Inc()
}

// RecordCascadeDeletes records playlist links removed by a course delete.
func RecordCascadeDeletes(count int) {
	ReplicaCascadeDeletes.Add(float64(count))
}

// RecordFact records an interaction fact being stored.
func RecordFact(factType string) {
	FactsRecorded.WithLabelValues(factType).Inc()
}

// RecordRecommendation records a served recommendation request.
func RecordRecommendation(outcome string, duration time.Duration) {
	RecommendationsServed.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordSignalFetch records an individual signal fetch and its outcome.
func RecordSignalFetch(signal string, duration time.Duration, err error) {
	SignalFetchDuration.WithLabelValues(signal).Observe(duration.Seconds())
	if err != nil {
		SignalsUnavailable.WithLabelValues(signal).Inc()
	}
}

// RecordHTTPRequest records a handled HTTP request. The route label uses
// the matched route pattern, not the raw path, to bound label cardinality.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight HTTP request gauge.
func TrackActiveRequest(active bool) {
	if active {
		HTTPActiveRequests.Inc()
		return
	}
	HTTPActiveRequests.Dec()
}

// RecordCacheHit records a cache hit for the given cache type.
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss for the given cache type.
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}
