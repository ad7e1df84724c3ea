// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/lectern-lms/lectern/internal/replica"
)

type stubRecommender struct {
	courses []*replica.CourseReplica
	err     error
}

func (s *stubRecommender) Courses(context.Context, int64, int) ([]*replica.CourseReplica, error) {
	return s.courses, s.err
}

type stubCourses struct {
	byID map[int64]*replica.CourseReplica
}

func (s *stubCourses) GetCourse(id int64) (*replica.CourseReplica, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, replica.ErrNotFound
	}
	return c, nil
}

func (s *stubCourses) ListCourses() ([]*replica.CourseReplica, error) {
	var out []*replica.CourseReplica
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubCourses) ListCoursesByBranch(branchID int64) ([]*replica.CourseReplica, error) {
	var out []*replica.CourseReplica
	for _, c := range s.byID {
		if c.BranchID == branchID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, rec Recommender, courses CourseReader, readiness map[string]ReadinessCheck) *httptest.Server {
	t.Helper()
	h := NewHandler(rec, courses, readiness)
	srv := httptest.NewServer(NewRouter(h, DefaultRouterConfig()))
	t.Cleanup(srv.Close)
	return srv
}

func decodeResponse(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return out
}

func TestRecommendationsEndpoint(t *testing.T) {
	rec := &stubRecommender{courses: []*replica.CourseReplica{
		{ID: 7, Title: "Statistics"},
		{ID: 3, Title: "Databases"},
	}}
	srv := newTestServer(t, rec, &stubCourses{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/recommendations/student/1")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	body := decodeResponse(t, resp)
	if !body.Success {
		t.Errorf("Success = false, error = %+v", body.Error)
	}
	data := body.Data.(map[string]interface{})
	if count := data["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", count)
	}
}

func TestRecommendationsRejectsBadStudentID(t *testing.T) {
	srv := newTestServer(t, &stubRecommender{}, &stubCourses{}, nil)

	for _, path := range []string{
		"/api/v1/recommendations/student/abc",
		"/api/v1/recommendations/student/-5",
		"/api/v1/recommendations/student/0",
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		body := decodeResponse(t, resp)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET %s status = %d, want 400", path, resp.StatusCode)
		}
		if body.Error == nil || body.Error.Code != ErrCodeBadRequest {
			t.Errorf("GET %s error = %+v", path, body.Error)
		}
	}
}

func TestRecommendationsInternalError(t *testing.T) {
	rec := &stubRecommender{err: errors.New("store closed")}
	srv := newTestServer(t, rec, &stubCourses{}, nil)

	resp, err := http.Get(srv.URL + "/api/v1/recommendations/student/1")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestCourseEndpoint(t *testing.T) {
	courses := &stubCourses{byID: map[int64]*replica.CourseReplica{
		5: {ID: 5, Title: "Compilers", BranchID: 2},
	}}
	srv := newTestServer(t, &stubRecommender{}, courses, nil)

	resp, err := http.Get(srv.URL + "/api/v1/courses/5")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || !body.Success {
		t.Fatalf("status = %d, body = %+v", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/api/v1/courses/99")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body = decodeResponse(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if body.Error == nil || body.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", body.Error)
	}
}

func TestCoursesFilterByBranch(t *testing.T) {
	courses := &stubCourses{byID: map[int64]*replica.CourseReplica{
		1: {ID: 1, BranchID: 1},
		2: {ID: 2, BranchID: 2},
		3: {ID: 3, BranchID: 1},
	}}
	srv := newTestServer(t, &stubRecommender{}, courses, nil)

	resp, err := http.Get(srv.URL + "/api/v1/courses?branch_id=1")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body := decodeResponse(t, resp)
	data := body.Data.(map[string]interface{})
	if count := data["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", count)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ready := map[string]ReadinessCheck{
		"broker": func() error { return nil },
		"store":  func() error { return nil },
	}
	srv := newTestServer(t, &stubRecommender{}, &stubCourses{}, ready)

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready status = %d, want 200", resp.StatusCode)
	}
}

func TestHealthReadyReportsFailure(t *testing.T) {
	ready := map[string]ReadinessCheck{
		"broker": func() error { return errors.New("disconnected") },
	}
	srv := newTestServer(t, &stubRecommender{}, &stubCourses{}, ready)

	resp, err := http.Get(srv.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubRecommender{}, &stubCourses{}, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}
