// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package recommend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/lectern-lms/lectern/internal/metrics"
)

// maxSignalResponseBytes bounds upstream response bodies.
const maxSignalResponseBytes = 1 << 20

// signalResponse is the wire format of the signal services.
type signalResponse struct {
	CourseIDs []int64 `json:"course_ids"`
}

// HTTPSource fetches a signal from a peer service over HTTP. A circuit
// breaker sheds load from an upstream that keeps failing; while the breaker
// is open the signal reports unavailable immediately instead of burning the
// request's timeout budget.
type HTTPSource struct {
	name    string
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]int64]
}

// NewHTTPSource creates an HTTP-backed signal source. The caller-supplied
// timeout bounds each request; the context deadline still applies on top.
func NewHTTPSource(name, url string, timeout time.Duration) *HTTPSource {
	settings := gobreaker.Settings{
		Name:    "signal-" + name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			metrics.CircuitBreakerTransitions.WithLabelValues(cbName, from.String(), to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(float64(to))
		},
	}

	return &HTTPSource{
		name:    name,
		url:     url,
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[[]int64](settings),
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return s.name }

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, studentID int64) ([]int64, error) {
	ids, err := s.breaker.Execute(func() ([]int64, error) {
		return s.fetch(ctx, studentID)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSignalUnavailable, s.name, err)
	}
	return ids, nil
}

func (s *HTTPSource) fetch(ctx context.Context, studentID int64) ([]int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	q := req.URL.Query()
	q.Set("student_id", strconv.FormatInt(studentID, 10))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", s.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream %s returned %d", s.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSignalResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var payload signalResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload.CourseIDs, nil
}
