// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package broker provides durable publish/subscribe on NATS JetStream with
// automatic reconnection, circuit breaker protection, and stream lifecycle
// management. Publishers and subscribers survive broker restarts: connections
// retry indefinitely with a fixed wait between attempts, and consumption
// resumes from the durable consumer position.
package broker

import (
	"time"

	"github.com/lectern-lms/lectern/internal/config"
	"github.com/lectern-lms/lectern/internal/event"
)

// PublisherConfig holds publisher connection settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for the publisher.
// MaxReconnects of -1 retries forever; events queue in the reconnect buffer
// while the broker is down.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    5 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds durable subscriber settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName is the JetStream stream to bind to. When set, AutoProvision
	// is disabled and the subscriber binds with nats.BindStream(). Required
	// because one stream carries several topics and stream names cannot be
	// derived from individual subjects.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for the subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "lectern-consumer",
		QueueGroup:       "lectern",
		SubscribersCount: 1, // Single consumer keeps per-topic ordering
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    5 * time.Second,
		StreamName:       "DOMAIN_EVENTS",
	}
}

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/lectern/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// StreamConfig defines the domain event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the production stream configuration. One
// stream carries all domain topics plus the dead letter topic so a single
// durable consumer position covers them all.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name: "DOMAIN_EVENTS",
		Subjects: []string{
			event.TopicUserEvents,
			event.TopicCourseEvents,
			event.TopicInteractions,
			event.TopicDeadLetter,
		},
		MaxAge:          7 * 24 * time.Hour,      // 7 days
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,                      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// FromConfig derives publisher, subscriber, server, and stream settings from
// the application configuration.
func FromConfig(cfg *config.BrokerConfig) (PublisherConfig, SubscriberConfig, ServerConfig, StreamConfig) {
	pub := DefaultPublisherConfig(cfg.URL)
	pub.ReconnectWait = cfg.ReconnectWait

	sub := DefaultSubscriberConfig(cfg.URL)
	sub.ReconnectWait = cfg.ReconnectWait
	sub.DurableName = cfg.DurableName
	sub.QueueGroup = cfg.QueueGroup
	sub.StreamName = cfg.StreamName

	srv := DefaultServerConfig()
	srv.StoreDir = cfg.StoreDir
	srv.JetStreamMaxMem = cfg.MaxMemory
	srv.JetStreamMaxStore = cfg.MaxStore

	stream := DefaultStreamConfig()
	stream.Name = cfg.StreamName
	stream.MaxAge = time.Duration(cfg.RetentionDays) * 24 * time.Hour

	return pub, sub, srv, stream
}
