// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lectern-lms/lectern/internal/logging"
	"github.com/lectern-lms/lectern/internal/metrics"
)

// RouterConfig holds HTTP routing settings.
type RouterConfig struct {
	// RateLimitRequests is the per-IP request budget per window.
	// Default: 300
	RateLimitRequests int

	// RateLimitWindow is the rate limiting window. Default: 1m
	RateLimitWindow time.Duration
}

// DefaultRouterConfig returns routing defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		RateLimitRequests: 300,
		RateLimitWindow:   time.Minute,
	}
}

// NewRouter assembles the chi router for the read-side API.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	if cfg.RateLimitRequests <= 0 {
		cfg = DefaultRouterConfig()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging)
	r.Use(requestMetrics)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Get("/recommendations/student/{studentID}", h.Recommendations)
		r.Get("/courses", h.Courses)
		r.Get("/courses/{courseID}", h.Course)

		r.Get("/health/live", h.HealthLive)
		r.Get("/health/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requestMetrics records request counters and latency. The route label is
// the chi pattern ("/api/v1/courses/{courseID}") so IDs never become labels.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.TrackActiveRequest(true)
		defer metrics.TrackActiveRequest(false)

		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(ww.Status()), time.Since(start))
	})
}

// requestLogging logs one line per request at debug level.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request handled")
	})
}
