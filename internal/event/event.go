// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package event defines the domain event envelope exchanged between services.
//
// Events are a closed tagged variant: the Kind field selects which payload
// fields are meaningful, and Validate enforces the per-kind field set at the
// decode boundary. Internal logic never does dynamic field lookups on raw
// payloads.
package event

import (
	"fmt"
	"time"
)

// Kind identifies the type of a domain event.
type Kind string

// Domain event kinds. The transport carries these as the "event" field.
const (
	KindUserCreated         Kind = "USER_CREATED"
	KindUserUpdated         Kind = "USER_UPDATED"
	KindUserDeleted         Kind = "USER_DELETED"
	KindCourseCreated       Kind = "COURSE_CREATED"
	KindCourseUpdated       Kind = "COURSE_UPDATED"
	KindCourseDeleted       Kind = "COURSE_DELETED"
	KindCourseViewed        Kind = "COURSE_VIEWED"
	KindCourseRated         Kind = "COURSE_RATED"
	KindPlaylistInteraction Kind = "PLAYLIST_INTERACTION"
)

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	switch k {
	case KindUserCreated, KindUserUpdated, KindUserDeleted,
		KindCourseCreated, KindCourseUpdated, KindCourseDeleted,
		KindCourseViewed, KindCourseRated, KindPlaylistInteraction:
		return true
	default:
		return false
	}
}

// Topic subjects on the DOMAIN_EVENTS stream.
const (
	TopicUserEvents   = "events.user"
	TopicCourseEvents = "events.course"
	TopicInteractions = "events.interaction"

	// TopicDeadLetter receives messages that exhausted handler retries.
	TopicDeadLetter = "events.dlq"
)

// PlaylistAction values carried by PLAYLIST_INTERACTION events.
const (
	PlaylistActionAdd    = "add"
	PlaylistActionRemove = "remove"
)

// Event is an immutable fact about a state change in one service, published
// for other services to replicate. Identity is (Kind, entity id, EmittedAt);
// the transport guarantees no globally unique delivery id, so consumers must
// be idempotent on content.
//
// Only the fields for the event's Kind are populated; Validate rejects
// envelopes whose required fields are missing.
type Event struct {
	Kind Kind `json:"event"`

	// Entity identifiers.
	CourseID   int64 `json:"course_id,omitempty"`
	UserID     int64 `json:"user_id,omitempty"`
	StudentID  int64 `json:"student_id,omitempty"`
	PlaylistID int64 `json:"playlist_id,omitempty"`

	// Course payload (COURSE_CREATED, COURSE_UPDATED).
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	HLSURL      string `json:"hls_url,omitempty"`
	BranchID    int64  `json:"branch_id,omitempty"`
	TeacherID   int64  `json:"teacher_id,omitempty"`

	// User payload (USER_CREATED, USER_UPDATED).
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`

	// Interaction payload.
	Rating int    `json:"rating,omitempty"`
	Action string `json:"action,omitempty"`

	// EmittedAt is when the owning service recorded the change (ISO-8601
	// on the wire). Required for interaction events, which become
	// timestamp-keyed facts.
	EmittedAt time.Time `json:"timestamp,omitempty"`
}

// EntityID returns the identifier of the entity this event is about.
func (e *Event) EntityID() int64 {
	switch e.Kind {
	case KindUserCreated, KindUserUpdated, KindUserDeleted:
		return e.UserID
	case KindPlaylistInteraction:
		return e.PlaylistID
	default:
		return e.CourseID
	}
}

// Topic returns the broker subject this event is published on.
func (e *Event) Topic() string {
	switch e.Kind {
	case KindUserCreated, KindUserUpdated, KindUserDeleted:
		return TopicUserEvents
	case KindCourseCreated, KindCourseUpdated, KindCourseDeleted:
		return TopicCourseEvents
	default:
		return TopicInteractions
	}
}

// Fingerprint returns the content identity of the event, used for
// idempotent handling of redeliveries.
func (e *Event) Fingerprint() string {
	return fmt.Sprintf("%s:%d:%d", e.Kind, e.EntityID(), e.EmittedAt.UnixNano())
}

// Validate checks the per-kind required field set.
func (e *Event) Validate() error {
	if !e.Kind.Valid() {
		return &DecodeError{Field: "event", Message: fmt.Sprintf("unknown kind %q", string(e.Kind))}
	}

	switch e.Kind {
	case KindUserCreated, KindUserUpdated:
		if e.UserID == 0 {
			return &DecodeError{Field: "user_id", Message: "required"}
		}
		if e.Email == "" {
			return &DecodeError{Field: "email", Message: "required"}
		}
		if e.Role == "" {
			return &DecodeError{Field: "role", Message: "required"}
		}
	case KindUserDeleted:
		if e.UserID == 0 {
			return &DecodeError{Field: "user_id", Message: "required"}
		}
	case KindCourseCreated, KindCourseUpdated:
		if e.CourseID == 0 {
			return &DecodeError{Field: "course_id", Message: "required"}
		}
		if e.Title == "" {
			return &DecodeError{Field: "title", Message: "required"}
		}
		if e.HLSURL == "" {
			return &DecodeError{Field: "hls_url", Message: "required"}
		}
		if e.BranchID == 0 {
			return &DecodeError{Field: "branch_id", Message: "required"}
		}
	case KindCourseDeleted:
		if e.CourseID == 0 {
			return &DecodeError{Field: "course_id", Message: "required"}
		}
	case KindCourseViewed:
		if e.CourseID == 0 {
			return &DecodeError{Field: "course_id", Message: "required"}
		}
		if e.StudentID == 0 {
			return &DecodeError{Field: "student_id", Message: "required"}
		}
		if e.EmittedAt.IsZero() {
			return &DecodeError{Field: "timestamp", Message: "required"}
		}
	case KindCourseRated:
		if e.CourseID == 0 {
			return &DecodeError{Field: "course_id", Message: "required"}
		}
		if e.StudentID == 0 {
			return &DecodeError{Field: "student_id", Message: "required"}
		}
		if e.Rating < 1 || e.Rating > 5 {
			return &DecodeError{Field: "rating", Message: "must be between 1 and 5"}
		}
		if e.EmittedAt.IsZero() {
			return &DecodeError{Field: "timestamp", Message: "required"}
		}
	case KindPlaylistInteraction:
		if e.PlaylistID == 0 {
			return &DecodeError{Field: "playlist_id", Message: "required"}
		}
		if e.StudentID == 0 {
			return &DecodeError{Field: "student_id", Message: "required"}
		}
		if e.Action != PlaylistActionAdd && e.Action != PlaylistActionRemove {
			return &DecodeError{Field: "action", Message: "must be add or remove"}
		}
		if e.EmittedAt.IsZero() {
			return &DecodeError{Field: "timestamp", Message: "required"}
		}
	}

	return nil
}

// DecodeError reports a malformed or incomplete event payload.
// Decode errors are terminal: a malformed payload will never become valid,
// so consumers log and discard instead of retrying.
type DecodeError struct {
	Field   string
	Message string
}

func (e *DecodeError) Error() string {
	return "event decode: " + e.Field + ": " + e.Message
}
