// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package broker

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/lectern-lms/lectern/internal/event"
	"github.com/lectern-lms/lectern/internal/logging"
)

// startTestBroker runs an embedded JetStream server on a random port with
// in-process storage under t.TempDir().
func startTestBroker(t *testing.T) *EmbeddedServer {
	t.Helper()

	cfg := DefaultServerConfig()
	cfg.Port = -1 // Random available port
	cfg.StoreDir = t.TempDir()

	srv, err := NewEmbeddedServer(&cfg)
	if err != nil {
		t.Fatalf("starting embedded broker: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return srv
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker integration test in short mode")
	}

	srv := startTestBroker(t)
	logger := logging.NewWatermillAdapter(logging.NewTestLogger(io.Discard))

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer nc.Close()

	streamCfg := DefaultStreamConfig()
	mgr, err := NewStreamManager(nc, &streamCfg)
	if err != nil {
		t.Fatalf("creating stream manager: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := mgr.EnsureStream(ctx); err != nil {
		t.Fatalf("ensuring stream: %v", err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(srv.ClientURL()), logger)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	subCfg := DefaultSubscriberConfig(srv.ClientURL())
	sub, err := NewSubscriber(&subCfg, logger)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	messages, err := sub.Subscribe(ctx, event.TopicCourseEvents)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	sent := event.NewCourseCreated(event.CoursePayload{
		CourseID:  101,
		Title:     "Graph Theory",
		HLSURL:    "http://cdn/101/playlist.m3u8",
		BranchID:  2,
		TeacherID: 7,
	})
	if err := pub.PublishEvent(ctx, sent); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	select {
	case msg := <-messages:
		got, err := event.Decode(msg.Payload)
		if err != nil {
			t.Fatalf("decoding received payload: %v", err)
		}
		if got.Kind != event.KindCourseCreated || got.CourseID != 101 {
			t.Errorf("received event = %+v", got)
		}
		if msg.Metadata.Get("fingerprint") != sent.Fingerprint() {
			t.Errorf("fingerprint metadata = %q, want %q",
				msg.Metadata.Get("fingerprint"), sent.Fingerprint())
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestGetStreamInfoBeforeProvisioning(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker integration test in short mode")
	}

	srv := startTestBroker(t)

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer nc.Close()

	streamCfg := DefaultStreamConfig()
	mgr, err := NewStreamManager(nc, &streamCfg)
	if err != nil {
		t.Fatalf("creating stream manager: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := mgr.GetStreamInfo(ctx); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("GetStreamInfo() error = %v, want ErrStreamNotFound", err)
	}
}

func TestDurableConsumerResumesAfterRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker integration test in short mode")
	}

	srv := startTestBroker(t)
	logger := logging.NewWatermillAdapter(logging.NewTestLogger(io.Discard))

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer nc.Close()

	streamCfg := DefaultStreamConfig()
	mgr, err := NewStreamManager(nc, &streamCfg)
	if err != nil {
		t.Fatalf("creating stream manager: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if _, err := mgr.EnsureStream(ctx); err != nil {
		t.Fatalf("ensuring stream: %v", err)
	}

	pub, err := NewPublisher(DefaultPublisherConfig(srv.ClientURL()), logger)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	// Publish while no subscriber exists. The durable consumer must pick
	// the event up when it first attaches.
	sent := event.NewCourseViewed(55, 9)
	if err := pub.PublishEvent(ctx, sent); err != nil {
		t.Fatalf("publishing: %v", err)
	}

	subCfg := DefaultSubscriberConfig(srv.ClientURL())
	sub, err := NewSubscriber(&subCfg, logger)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	messages, err := sub.Subscribe(ctx, event.TopicInteractions)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	select {
	case msg := <-messages:
		got, err := event.Decode(msg.Payload)
		if err != nil {
			t.Fatalf("decoding received payload: %v", err)
		}
		if got.Kind != event.KindCourseViewed || got.CourseID != 55 || got.StudentID != 9 {
			t.Errorf("received event = %+v", got)
		}
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("timed out waiting for buffered message")
	}
}
