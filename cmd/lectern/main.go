// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

// Package main is the entry point for the Lectern event consistency service.
//
// Lectern keeps an e-learning platform's microservices consistent without
// distributed transactions: services publish domain events to a durable
// JetStream broker, and this process consumes them to maintain local
// replicas of courses and users, an append-only interaction log, and a
// recommendation read model served over HTTP.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load from defaults, config file, and
//     environment variables (koanf v2)
//  2. Store: BadgerDB holding entity replicas and interaction facts
//  3. Broker: embedded NATS server (optional) and the DOMAIN_EVENTS stream
//  4. Consumer: Watermill router dispatching events to the replica
//     reconciler and the fact log
//  5. Recommendations: signal aggregator over local stores or HTTP peers
//  6. HTTP server: recommendation, course, health, and metrics endpoints
//  7. Supervision: suture tree running the long-lived services
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the router drains in-flight
// messages, the HTTP server finishes open requests, and the embedded broker
// flushes JetStream state.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/lectern-lms/lectern/internal/api"
	"github.com/lectern-lms/lectern/internal/broker"
	"github.com/lectern-lms/lectern/internal/config"
	"github.com/lectern-lms/lectern/internal/event"
	"github.com/lectern-lms/lectern/internal/facts"
	"github.com/lectern-lms/lectern/internal/logging"
	"github.com/lectern-lms/lectern/internal/recommend"
	"github.com/lectern-lms/lectern/internal/replica"
	"github.com/lectern-lms/lectern/internal/router"
	"github.com/lectern-lms/lectern/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("broker_url", cfg.Broker.URL).
		Bool("embedded_broker", cfg.Broker.EmbeddedServer).
		Str("store_path", cfg.Store.Path).
		Msg("Starting Lectern")

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("Lectern stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("Lectern stopped")
}

//nolint:gocyclo // Sequential wiring of every component
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Store layer: replicas and facts share one Badger instance.
	store, err := replica.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	factStore := facts.NewStore(store.DB())
	reconciler := replica.NewReconciler(store, logging.With().Str("component", "reconciler").Logger())

	pubCfg, subCfg, srvCfg, streamCfg := broker.FromConfig(&cfg.Broker)

	// Optional embedded broker for single-node deployments.
	var embedded *broker.EmbeddedServer
	if cfg.Broker.EmbeddedServer {
		embedded, err = broker.NewEmbeddedServer(&srvCfg)
		if err != nil {
			return fmt.Errorf("start embedded broker: %w", err)
		}
		pubCfg.URL = embedded.ClientURL()
		subCfg.URL = embedded.ClientURL()
		logging.Info().Str("url", embedded.ClientURL()).Msg("Embedded broker started")
	}

	// Dedicated connection for stream management and health checks.
	nc, err := natsgo.Connect(pubCfg.URL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(cfg.Broker.ReconnectWait),
		natsgo.Timeout(cfg.Broker.ConnectTimeout),
	)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer nc.Close()

	streamMgr, err := broker.NewStreamManager(nc, &streamCfg)
	if err != nil {
		return fmt.Errorf("create stream manager: %w", err)
	}
	streamCtx, cancel := context.WithTimeout(ctx, cfg.Broker.ConnectTimeout)
	defer cancel()
	if _, err := streamMgr.EnsureStream(streamCtx); err != nil {
		return fmt.Errorf("ensure stream %s: %w", streamCfg.Name, err)
	}
	logging.Info().Str("stream", streamCfg.Name).Msg("Domain event stream ready")

	wmLogger := logging.NewWatermillAdapter(logging.Logger())

	publisher, err := broker.NewPublisher(pubCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}()

	subscriber, err := broker.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
	}()

	consumerRouter, err := router.New(cfg.Router, publisher.WatermillPublisher(), wmLogger)
	if err != nil {
		return fmt.Errorf("create consumer router: %w", err)
	}

	wireHandlers(consumerRouter, subscriber, reconciler, factStore)

	aggregator := newAggregator(cfg.Recommend, factStore, store)

	readiness := map[string]api.ReadinessCheck{
		"broker": func() error {
			if !nc.IsConnected() {
				return errors.New("broker disconnected")
			}
			return nil
		},
		"consumer": func() error {
			if !consumerRouter.IsRunning() {
				return errors.New("event router not running")
			}
			return nil
		},
	}
	handler := api.NewHandler(aggregator, store, readiness)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, api.DefaultRouterConfig()),
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if embedded != nil {
		tree.AddBrokerService(supervisor.NewEmbeddedBrokerService(embedded))
	}
	tree.AddConsumerService(supervisor.NewRouterService(consumerRouter))
	tree.AddConsumerService(supervisor.NewStoreGCService(store, cfg.Store.GCInterval))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer))

	logging.Info().Str("addr", httpServer.Addr).Msg("Supervision tree starting")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

// wireHandlers registers the durable consumers: entity lifecycle events feed
// the replica reconciler, interaction events feed the fact log, and playlist
// interactions feed both (they change playlist membership and are also a
// recommendation signal).
func wireHandlers(r *router.Router, sub *broker.Subscriber, rec *replica.Reconciler, f *facts.Store) {
	dispatcher := router.NewDispatcher(logging.With().Str("component", "dispatcher").Logger())

	applyReplica := func(_ *message.Message, e *event.Event) error { return rec.Apply(e) }
	recordFact := func(_ *message.Message, e *event.Event) error { return f.Record(e) }

	dispatcher.
		On(event.KindUserCreated, applyReplica).
		On(event.KindUserUpdated, applyReplica).
		On(event.KindUserDeleted, applyReplica).
		On(event.KindCourseCreated, applyReplica).
		On(event.KindCourseUpdated, applyReplica).
		On(event.KindCourseDeleted, applyReplica).
		On(event.KindCourseViewed, recordFact).
		On(event.KindCourseRated, recordFact).
		On(event.KindPlaylistInteraction, func(_ *message.Message, e *event.Event) error {
			if err := rec.Apply(e); err != nil {
				return err
			}
			return f.Record(e)
		})

	wmSub := sub.WatermillSubscriber()
	r.AddConsumerHandler("user-events", event.TopicUserEvents, wmSub, dispatcher.Handle)
	r.AddConsumerHandler("course-events", event.TopicCourseEvents, wmSub, dispatcher.Handle)
	r.AddConsumerHandler("interaction-events", event.TopicInteractions, wmSub, dispatcher.Handle)
}

// newAggregator builds the signal sources, preferring HTTP peers when
// configured and the local stores otherwise.
func newAggregator(cfg config.RecommendConfig, f *facts.Store, store *replica.Store) *recommend.Aggregator {
	var paired recommend.Source = recommend.NewPairedSource(f)
	if cfg.PairedURL != "" {
		paired = recommend.NewHTTPSource(recommend.SignalPaired, cfg.PairedURL, cfg.UpstreamTimeout)
	}

	var branch recommend.Source = recommend.NewBranchPopularSource(f, store)
	if cfg.BranchPopularURL != "" {
		branch = recommend.NewHTTPSource(recommend.SignalBranchPopular, cfg.BranchPopularURL, cfg.UpstreamTimeout)
	}

	var top recommend.Source = recommend.NewTopRatedSource(f, cfg.MinRatings)
	if cfg.TopRatedURL != "" {
		top = recommend.NewHTTPSource(recommend.SignalTopRated, cfg.TopRatedURL, cfg.UpstreamTimeout)
	}

	return recommend.NewAggregator(cfg, paired, branch, top, f, store, logging.Logger())
}
