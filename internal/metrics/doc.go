// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the event pipeline end to end, exposing counters,
gauges, and histograms for monitoring throughput, errors, and latency.

# Overview

The package provides metrics for:
  - Broker publish/consume throughput and reconnection attempts
  - Event router processing, decode failures, deduplication, and poisoned messages
  - Replica reconciliation (applies, errors, cascade deletes)
  - Interaction fact recording
  - Recommendation aggregation (outcomes, signal availability, latency)
  - Cache hit/miss rates
  - Circuit breaker state transitions

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:9090/metrics

# Usage Example

	import (
	    "github.com/lectern-lms/lectern/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    metrics.RecordPublish("events.course", nil)
	    metrics.RecordEventProcessed("COURSE_CREATED", 2*time.Millisecond)
	    metrics.RecordRecommendation("full", 15*time.Millisecond)
	}

# Cardinality Management

Labels are restricted to small fixed vocabularies (event kinds, topic names,
signal names, outcome categories). Per-user and per-course labels are avoided.

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.
*/
package metrics
