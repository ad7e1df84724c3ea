// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package event

import "time"

// Builders for outbound events, used by owning services when their
// source-of-truth record changes. All builders stamp EmittedAt in UTC.

// CoursePayload carries the replicated course fields.
// CREATE and UPDATE deliberately share the same field set so an UPDATE
// payload is self-sufficient for synthesizing a missing replica.
type CoursePayload struct {
	CourseID    int64
	Title       string
	Description string
	HLSURL      string
	BranchID    int64
	TeacherID   int64
}

// NewCourseCreated builds a COURSE_CREATED event.
func NewCourseCreated(p CoursePayload) *Event {
	return newCourseEvent(KindCourseCreated, p)
}

// NewCourseUpdated builds a COURSE_UPDATED event.
func NewCourseUpdated(p CoursePayload) *Event {
	return newCourseEvent(KindCourseUpdated, p)
}

func newCourseEvent(kind Kind, p CoursePayload) *Event {
	return &Event{
		Kind:        kind,
		CourseID:    p.CourseID,
		Title:       p.Title,
		Description: p.Description,
		HLSURL:      p.HLSURL,
		BranchID:    p.BranchID,
		TeacherID:   p.TeacherID,
		EmittedAt:   time.Now().UTC(),
	}
}

// NewCourseDeleted builds a COURSE_DELETED event.
func NewCourseDeleted(courseID int64) *Event {
	return &Event{
		Kind:      KindCourseDeleted,
		CourseID:  courseID,
		EmittedAt: time.Now().UTC(),
	}
}

// UserPayload carries the replicated user fields.
type UserPayload struct {
	UserID   int64
	Name     string
	Email    string
	Role     string
	BranchID int64
}

// NewUserCreated builds a USER_CREATED event.
func NewUserCreated(p UserPayload) *Event {
	return newUserEvent(KindUserCreated, p)
}

// NewUserUpdated builds a USER_UPDATED event.
func NewUserUpdated(p UserPayload) *Event {
	return newUserEvent(KindUserUpdated, p)
}

func newUserEvent(kind Kind, p UserPayload) *Event {
	return &Event{
		Kind:      kind,
		UserID:    p.UserID,
		Name:      p.Name,
		Email:     p.Email,
		Role:      p.Role,
		BranchID:  p.BranchID,
		EmittedAt: time.Now().UTC(),
	}
}

// NewUserDeleted builds a USER_DELETED event.
func NewUserDeleted(userID int64) *Event {
	return &Event{
		Kind:      KindUserDeleted,
		UserID:    userID,
		EmittedAt: time.Now().UTC(),
	}
}

// NewCourseViewed builds a COURSE_VIEWED interaction event.
func NewCourseViewed(courseID, studentID int64) *Event {
	return &Event{
		Kind:      KindCourseViewed,
		CourseID:  courseID,
		StudentID: studentID,
		EmittedAt: time.Now().UTC(),
	}
}

// NewCourseRated builds a COURSE_RATED interaction event.
func NewCourseRated(courseID, studentID int64, rating int) *Event {
	return &Event{
		Kind:      KindCourseRated,
		CourseID:  courseID,
		StudentID: studentID,
		Rating:    rating,
		EmittedAt: time.Now().UTC(),
	}
}

// NewPlaylistInteraction builds a PLAYLIST_INTERACTION event for a course
// being added to or removed from a playlist.
func NewPlaylistInteraction(playlistID, studentID, courseID int64, action string) *Event {
	return &Event{
		Kind:       KindPlaylistInteraction,
		PlaylistID: playlistID,
		StudentID:  studentID,
		CourseID:   courseID,
		Action:     action,
		EmittedAt:  time.Now().UTC(),
	}
}
