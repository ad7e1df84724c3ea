// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package router wires durable subscriptions to event handlers through a
// Watermill message router. Middleware gives every handler the same ack
// discipline: success acks, transient failure retries with backoff, and
// messages that exhaust retries are published to the dead letter topic and
// acked so one poison message can never wedge a topic.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"

	"github.com/lectern-lms/lectern/internal/cache"
	"github.com/lectern-lms/lectern/internal/config"
	"github.com/lectern-lms/lectern/internal/metrics"
)

// fingerprintMetadataKey is the message metadata key carrying the
// content-based event fingerprint set by the publisher.
const fingerprintMetadataKey = "fingerprint"

// dedupCapacity bounds the deduplication window by entry count as well as TTL.
const dedupCapacity = 10000

// Router wraps the Watermill Router with pre-configured middleware:
// panic recovery, content-based deduplication, poison queue routing for
// messages that fail after all retries, and bounded retry.
type Router struct {
	router    *message.Router
	config    config.RouterConfig
	logger    watermill.LoggerAdapter
	poisonPub message.Publisher
	handlers  map[string]*message.Handler
	dedup     *cache.Deduplicator
	running   bool
}

// New creates a message router with the middleware chain configured from cfg.
//
// Middleware order (outer to inner):
//  1. Recoverer: converts handler panics to errors
//  2. Deduplicator: skips redelivered events by content fingerprint
//  3. PoisonQueue: publishes exhausted messages to the dead letter topic
//  4. Retry: bounded backoff for transient failures
//
// Retry sits innermost so every attempt reaches the handler before the
// poison queue sees the error; the deduplicator stays outside Retry so a
// retry attempt is never mistaken for a redelivery.
func New(cfg config.RouterConfig, poisonPublisher message.Publisher, logger watermill.LoggerAdapter) (*Router, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	r := &Router{
		router:    wmRouter,
		config:    cfg,
		logger:    logger,
		poisonPub: poisonPublisher,
		handlers:  make(map[string]*message.Handler),
	}

	wmRouter.AddPlugin(plugin.SignalsHandler)

	wmRouter.AddMiddleware(middleware.Recoverer)

	// Deduplicate on the publisher-stamped fingerprint rather than the
	// message UUID: the UUID changes on republish, the fingerprint doesn't.
	if cfg.DeduplicationEnabled {
		r.dedup = cache.NewDeduplicator(dedupCapacity, cfg.DeduplicationTTL)
		dedup := middleware.Deduplicator{
			KeyFactory: func(msg *message.Message) (string, error) {
				if fp := msg.Metadata.Get(fingerprintMetadataKey); fp != "" {
					return fp, nil
				}
				return msg.UUID, nil
			},
			Repository: r.dedup,
		}
		wmRouter.AddMiddleware(dedup.Middleware)
	}

	if poisonPublisher != nil && cfg.PoisonTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(poisonPublisher, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		wmRouter.AddMiddleware(poisonQueue)
	}

	// Innermost: the poison queue must only see errors that already
	// exhausted their retries.
	retryMiddleware := middleware.Retry{
		MaxRetries:      cfg.RetryCount,
		InitialInterval: cfg.RetryInitialInterval,
		MaxInterval:     time.Minute,
		Multiplier:      2.0,
		Logger:          logger,
	}
	wmRouter.AddMiddleware(retryMiddleware.Middleware)

	return r, nil
}

// AddConsumerHandler registers a handler that consumes messages from a topic
// without producing output. Returning nil acks the message; returning an
// error triggers retry and eventually the poison queue.
func (r *Router) AddConsumerHandler(
	name string,
	subscribeTopic string,
	subscriber message.Subscriber,
	handler message.NoPublishHandlerFunc,
) *message.Handler {
	wrapped := func(msg *message.Message) error {
		metrics.RecordConsume(subscribeTopic)
		return handler(msg)
	}

	h := r.router.AddConsumerHandler(name, subscribeTopic, subscriber, wrapped)
	r.handlers[name] = h
	return h
}

// Run starts the router and blocks until context cancellation or Close().
func (r *Router) Run(ctx context.Context) error {
	r.running = true
	defer func() { r.running = false }()
	return r.router.Run(ctx)
}

// Running returns a channel that closes once the router is running.
func (r *Router) Running() <-chan struct{} {
	return r.router.Running()
}

// IsRunning returns whether the router is currently processing messages.
func (r *Router) IsRunning() bool {
	return r.running
}

// Close gracefully stops the router, waiting up to CloseTimeout for
// in-flight messages.
func (r *Router) Close() error {
	return r.router.Close()
}
