// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package facts is the append-only interaction log backing the
// recommendation signals. Views, ratings, and playlist actions are recorded
// as immutable facts keyed by subject, object, and timestamp; multiple facts
// for the same pair are expected and kept. Queries aggregate over the log:
// view counts, per-course rating averages with a cold-start guard, and
// playlist co-occurrence.
package facts

import "time"

// View records one COURSE_VIEWED interaction.
type View struct {
	StudentID int64     `json:"student_id"`
	CourseID  int64     `json:"course_id"`
	At        time.Time `json:"at"`
}

// Rating records one COURSE_RATED interaction. Values are 1 through 5.
type Rating struct {
	StudentID int64     `json:"student_id"`
	CourseID  int64     `json:"course_id"`
	Rating    int       `json:"rating"`
	At        time.Time `json:"at"`
}

// PlaylistAction records one PLAYLIST_INTERACTION fact: a course added to
// or removed from a playlist.
type PlaylistAction struct {
	PlaylistID int64     `json:"playlist_id"`
	StudentID  int64     `json:"student_id"`
	CourseID   int64     `json:"course_id"`
	Action     string    `json:"action"`
	At         time.Time `json:"at"`
}

// CourseRating is an aggregate over the rating facts for one course.
type CourseRating struct {
	CourseID int64
	Average  float64
	Count    int
}
