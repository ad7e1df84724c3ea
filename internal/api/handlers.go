// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lectern-lms/lectern/internal/replica"
)

// requestTimeout bounds handler work beyond the client's own deadline.
const requestTimeout = 10 * time.Second

// Recommender produces ranked course recommendations.
// Implemented by *recommend.Aggregator.
type Recommender interface {
	Courses(ctx context.Context, studentID int64, limit int) ([]*replica.CourseReplica, error)
}

// CourseReader reads course replicas. Implemented by *replica.Store.
type CourseReader interface {
	GetCourse(id int64) (*replica.CourseReplica, error)
	ListCourses() ([]*replica.CourseReplica, error)
	ListCoursesByBranch(branchID int64) ([]*replica.CourseReplica, error)
}

// ReadinessCheck reports whether a dependency is ready to serve.
type ReadinessCheck func() error

// Handler holds the API endpoint implementations.
type Handler struct {
	recommender Recommender
	courses     CourseReader
	readiness   map[string]ReadinessCheck
}

// NewHandler creates the API handler. Readiness checks are keyed by
// dependency name and reported individually by the ready endpoint.
func NewHandler(rec Recommender, courses CourseReader, readiness map[string]ReadinessCheck) *Handler {
	return &Handler{recommender: rec, courses: courses, readiness: readiness}
}

// Recommendations handles GET /api/v1/recommendations/student/{studentID}.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil || studentID <= 0 {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid student ID", err)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	courses, err := h.recommender.Courses(ctx, studentID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to generate recommendations", err)
		return
	}
	if courses == nil {
		courses = []*replica.CourseReplica{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"student_id": studentID,
		"courses":    courses,
		"count":      len(courses),
	})
}

// Course handles GET /api/v1/courses/{courseID}.
func (h *Handler) Course(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil || courseID <= 0 {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid course ID", err)
		return
	}

	course, err := h.courses.GetCourse(courseID)
	if errors.Is(err, replica.ErrNotFound) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "course not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to load course", err)
		return
	}

	respondJSON(w, http.StatusOK, course)
}

// Courses handles GET /api/v1/courses, optionally filtered by branch_id.
func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	var (
		courses []*replica.CourseReplica
		err     error
	)

	if s := r.URL.Query().Get("branch_id"); s != "" {
		branchID, parseErr := strconv.ParseInt(s, 10, 64)
		if parseErr != nil || branchID <= 0 {
			respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid branch ID", parseErr)
			return
		}
		courses, err = h.courses.ListCoursesByBranch(branchID)
	} else {
		courses, err = h.courses.ListCourses()
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to list courses", err)
		return
	}
	if courses == nil {
		courses = []*replica.CourseReplica{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"courses": courses,
		"count":   len(courses),
	})
}

// HealthLive handles GET /api/v1/health/live. Liveness only proves the
// process responds.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready, running every registered
// dependency check.
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	checks := make(map[string]string, len(h.readiness))
	healthy := true
	for name, check := range h.readiness {
		if err := check(); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	if !healthy {
		respondError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "dependencies not ready", nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
