// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package router

import (
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/lectern-lms/lectern/internal/event"
	"github.com/lectern-lms/lectern/internal/metrics"
)

// HandlerFunc processes a single decoded domain event.
type HandlerFunc func(msg *message.Message, e *event.Event) error

// Dispatcher decodes incoming messages once and routes them to the handler
// registered for their event kind.
//
// Ack policy: malformed payloads and unknown kinds are logged and acked,
// since redelivery can never fix them. Handler errors propagate to the
// router's retry middleware and, when retries are exhausted, to the dead
// letter topic.
type Dispatcher struct {
	serializer *event.Serializer
	handlers   map[event.Kind]HandlerFunc
	log        zerolog.Logger
}

// NewDispatcher creates an empty dispatcher.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		serializer: event.NewSerializer(),
		handlers:   make(map[event.Kind]HandlerFunc),
		log:        log,
	}
}

// On registers a handler for the given event kind, replacing any previous
// registration.
func (d *Dispatcher) On(kind event.Kind, fn HandlerFunc) *Dispatcher {
	d.handlers[kind] = fn
	return d
}

// Handle is the message.NoPublishHandlerFunc bridging the router to the
// registered event handlers.
func (d *Dispatcher) Handle(msg *message.Message) error {
	e, err := d.serializer.Unmarshal(msg.Payload)
	if err != nil {
		var decErr *event.DecodeError
		if errors.As(err, &decErr) {
			// A broken payload stays broken on redelivery. Drop it.
			topic := message.SubscribeTopicFromCtx(msg.Context())
			if topic == "" {
				topic = "unknown"
			}
			d.log.Warn().
				Str("message_uuid", msg.UUID).
				Str("topic", topic).
				Str("field", decErr.Field).
				Str("reason", decErr.Message).
				Msg("dropping undecodable event")
			metrics.RecordParseFailure(topic)
			return nil
		}
		return err
	}

	fn, ok := d.handlers[e.Kind]
	if !ok {
		// Valid event, but this process doesn't consume the kind. Ack so
		// the stream keeps moving.
		d.log.Debug().
			Str("event", string(e.Kind)).
			Int64("entity_id", e.EntityID()).
			Msg("no handler registered for event kind")
		return nil
	}

	start := time.Now()
	if err := fn(msg, e); err != nil {
		d.log.Error().
			Err(err).
			Str("event", string(e.Kind)).
			Int64("entity_id", e.EntityID()).
			Str("message_uuid", msg.UUID).
			Msg("event handler failed")
		return err
	}

	metrics.RecordEventProcessed(string(e.Kind), time.Since(start))
	return nil
}

// Kinds returns the event kinds with registered handlers.
func (d *Dispatcher) Kinds() []event.Kind {
	kinds := make([]event.Kind, 0, len(d.handlers))
	for k := range d.handlers {
		kinds = append(kinds, k)
	}
	return kinds
}
