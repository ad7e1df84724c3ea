// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package event

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer handles event encoding and decoding for broker messages.
// Decoding validates the per-kind field set, so everything downstream of
// the boundary works with a well-formed Event.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts an event to JSON bytes.
func (s *Serializer) Marshal(e *Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return data, nil
}

// Unmarshal converts JSON bytes to a validated event.
// A *DecodeError is returned for malformed or incomplete payloads.
func (s *Serializer) Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, &DecodeError{Field: "payload", Message: err.Error()}
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return &e, nil
}

// Encode is a convenience function that marshals an event to JSON.
func Encode(e *Event) ([]byte, error) {
	return NewSerializer().Marshal(e)
}

// Decode is a convenience function that unmarshals and validates JSON.
func Decode(data []byte) (*Event, error) {
	return NewSerializer().Unmarshal(data)
}
