// Lectern - Course Event Replication and Recommendations
// Copyright 2026 Lectern Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/lectern-lms/lectern

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lectern-lms/lectern/internal/broker"
	"github.com/lectern-lms/lectern/internal/logging"
	"github.com/lectern-lms/lectern/internal/replica"
	"github.com/lectern-lms/lectern/internal/router"
)

// RouterService runs the consuming event router under supervision. The
// router blocks in Serve until the context is canceled; a handler panic or
// transport failure surfaces as an error and suture restarts the service.
type RouterService struct {
	router *router.Router
}

// NewRouterService wraps a fully wired router.
func NewRouterService(r *router.Router) *RouterService {
	return &RouterService{router: r}
}

// Serve implements suture.Service.
func (s *RouterService) Serve(ctx context.Context) error {
	logging.Info().Msg("starting event router service")
	err := s.router.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event router: %w", err)
	}
	logging.Info().Msg("event router service stopped")
	return err
}

// EmbeddedBrokerService supervises a started embedded NATS server. It
// watches the server's health and shuts it down on cancellation; if the
// server dies out from under us the service errors so the tree restarts
// the process's broker layer.
type EmbeddedBrokerService struct {
	server *broker.EmbeddedServer

	// HealthInterval is how often the server is checked. Default: 5s.
	HealthInterval time.Duration
}

// NewEmbeddedBrokerService wraps a running embedded server.
func NewEmbeddedBrokerService(srv *broker.EmbeddedServer) *EmbeddedBrokerService {
	return &EmbeddedBrokerService{server: srv, HealthInterval: 5 * time.Second}
}

// Serve implements suture.Service.
func (s *EmbeddedBrokerService) Serve(ctx context.Context) error {
	logging.Info().Str("url", s.server.ClientURL()).Msg("supervising embedded broker")

	ticker := time.NewTicker(s.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				logging.Warn().Err(err).Msg("embedded broker shutdown")
			}
			return ctx.Err()
		case <-ticker.C:
			if !s.server.IsRunning() {
				return errors.New("embedded broker stopped unexpectedly")
			}
		}
	}
}

// StoreGCService runs BadgerDB value-log garbage collection on an interval.
type StoreGCService struct {
	store    *replica.Store
	interval time.Duration
}

// NewStoreGCService creates the GC service. A non-positive interval uses
// ten minutes.
func NewStoreGCService(store *replica.Store, interval time.Duration) *StoreGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StoreGCService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *StoreGCService) Serve(ctx context.Context) error {
	logging.Info().Dur("interval", s.interval).Msg("starting store GC service")
	s.store.RunGC(ctx, s.interval)
	return ctx.Err()
}

// HTTPServerService runs an http.Server under supervision with graceful
// shutdown on cancellation.
type HTTPServerService struct {
	server *http.Server

	// ShutdownTimeout bounds graceful shutdown. Default: 10s.
	ShutdownTimeout time.Duration
}

// NewHTTPServerService wraps a configured http.Server.
func NewHTTPServerService(srv *http.Server) *HTTPServerService {
	return &HTTPServerService{server: srv, ShutdownTimeout: 10 * time.Second}
}

// Serve implements suture.Service.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("HTTP server shutdown")
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return err
	}
}
