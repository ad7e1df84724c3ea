// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package router

import (
	"errors"
	"io"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/lectern-lms/lectern/internal/event"
	"github.com/lectern-lms/lectern/internal/logging"
)

func newMessage(t *testing.T, e *event.Event) *message.Message {
	t.Helper()
	data, err := event.Encode(e)
	if err != nil {
		t.Fatalf("encoding event: %v", err)
	}
	return message.NewMessage("test-uuid", data)
}

func TestDispatcherRoutesByKind(t *testing.T) {
	d := NewDispatcher(logging.NewTestLogger(io.Discard))

	var gotKind event.Kind
	d.On(event.KindCourseViewed, func(msg *message.Message, e *event.Event) error {
		gotKind = e.Kind
		return nil
	})
	d.On(event.KindCourseRated, func(msg *message.Message, e *event.Event) error {
		t.Error("rated handler called for a view event")
		return nil
	})

	msg := newMessage(t, event.NewCourseViewed(7, 21))
	if err := d.Handle(msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if gotKind != event.KindCourseViewed {
		t.Errorf("handler saw kind %q, want %q", gotKind, event.KindCourseViewed)
	}
}

func TestDispatcherAcksMalformedPayload(t *testing.T) {
	d := NewDispatcher(logging.NewTestLogger(io.Discard))

	called := false
	d.On(event.KindCourseCreated, func(msg *message.Message, e *event.Event) error {
		called = true
		return nil
	})

	tests := []struct {
		name    string
		payload []byte
	}{
		{"invalid json", []byte(`{"event": "COURSE_CREATED"`)},
		{"unknown kind", []byte(`{"event": "COURSE_ARCHIVED", "course_id": 1}`)},
		{"missing required fields", []byte(`{"event": "COURSE_CREATED", "course_id": 1}`)},
		{"empty payload", []byte(``)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := message.NewMessage("uuid", tt.payload)
			// nil means ack: redelivering garbage cannot help.
			if err := d.Handle(msg); err != nil {
				t.Errorf("Handle() error = %v, want nil", err)
			}
		})
	}

	if called {
		t.Error("handler was invoked for a malformed payload")
	}
}

func TestDispatcherAcksUnregisteredKind(t *testing.T) {
	d := NewDispatcher(logging.NewTestLogger(io.Discard))
	d.On(event.KindCourseCreated, func(msg *message.Message, e *event.Event) error {
		t.Error("course handler called for a user event")
		return nil
	})

	msg := newMessage(t, event.NewUserDeleted(4))
	if err := d.Handle(msg); err != nil {
		t.Errorf("Handle() error = %v, want nil for unregistered kind", err)
	}
}

func TestDispatcherPropagatesHandlerError(t *testing.T) {
	d := NewDispatcher(logging.NewTestLogger(io.Discard))

	wantErr := errors.New("replica store unavailable")
	d.On(event.KindCourseDeleted, func(msg *message.Message, e *event.Event) error {
		return wantErr
	})

	msg := newMessage(t, event.NewCourseDeleted(12))
	if err := d.Handle(msg); !errors.Is(err, wantErr) {
		t.Errorf("Handle() error = %v, want %v", err, wantErr)
	}
}

func TestDispatcherDecodesOnce(t *testing.T) {
	d := NewDispatcher(logging.NewTestLogger(io.Discard))

	// The handler receives the decoded event; it never re-parses the payload.
	d.On(event.KindCourseRated, func(msg *message.Message, e *event.Event) error {
		if e.CourseID != 3 || e.StudentID != 14 || e.Rating != 5 {
			t.Errorf("decoded event = %+v", e)
		}
		return nil
	})

	msg := newMessage(t, event.NewCourseRated(3, 14, 5))
	if err := d.Handle(msg); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
}
