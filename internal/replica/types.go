// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package replica maintains local denormalized copies of entities owned by
// other services, kept eventually consistent by applying domain events.
// Application is idempotent and tolerates reordering: CREATE and UPDATE both
// upsert (an UPDATE for an absent entity synthesizes it from its
// self-sufficient payload), DELETE is a no-op when the entity is already
// gone, and a course DELETE cascades to playlist-course associations.
//
// Last-delivered-wins: concurrent updates to the same entity resolve to
// whichever event was applied last, not whichever was emitted last.
package replica

import "time"

// CourseReplica is the local copy of a course owned by the course service.
type CourseReplica struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	HLSURL      string    `json:"hls_url"`
	BranchID    int64     `json:"branch_id"`
	TeacherID   int64     `json:"teacher_id,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserReplica is the local copy of a user owned by the user service.
type UserReplica struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	BranchID  int64     `json:"branch_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlaylistCourse is a playlist-to-course association row. Rows referencing a
// course are removed when that course is deleted.
type PlaylistCourse struct {
	PlaylistID int64     `json:"playlist_id"`
	CourseID   int64     `json:"course_id"`
	StudentID  int64     `json:"student_id,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}
