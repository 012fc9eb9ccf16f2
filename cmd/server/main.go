// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/moodscore/internal/api"
	"github.com/tomtom215/moodscore/internal/config"
	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/notify"
	"github.com/tomtom215/moodscore/internal/scoring"
	"github.com/tomtom215/moodscore/internal/supervisor"
	"github.com/tomtom215/moodscore/internal/supervisor/services"
	ws "github.com/tomtom215/moodscore/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// writeTimeoutMargin is added on top of the long-poll wait so a full wait
// still has time to write its response.
const writeTimeoutMargin = 15 * time.Second

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", version).Msg("Starting Moodscore with supervisor tree")

	storeComps, err := InitStore(&cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open score store")
	}
	defer storeComps.Close()

	notifier := notify.New(cfg.Notify.Debounce)

	events, err := InitEvents(&cfg.NATS)
	if err != nil {
		notifier.Close()
		storeComps.Close()
		logging.Fatal().Err(err).Msg("Failed to initialize score events")
	}

	scores := scoring.NewAggregator(storeComps.Store, notifier, events.Forwarder)

	monitorComps, err := InitMonitor(cfg, scores, storeComps.Store)
	if err != nil {
		events.Close()
		notifier.Close()
		storeComps.Close()
		logging.Fatal().Err(err).Msg("Failed to initialize monitoring")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()

	handler := api.NewHandler(api.Dependencies{
		Monitor:  monitorComps.Orchestrator,
		Emotion:  monitorComps.Sampler,
		Playback: monitorComps.Playback,
		Scores:   scores,
		Store:    storeComps.Store,
		Updates:  notifier,
		Hub:      wsHub,
	}, api.HandlerConfig{
		WaitTimeout:    cfg.Notify.WaitTimeout,
		StopTimeout:    cfg.Server.ShutdownTimeout,
		AllowedOrigins: cfg.Security.CORSOrigins,
		Version:        version,
	})

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	mwCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	mwCfg.RateLimitDisabled = cfg.Security.RateLimitDisabled
	mwCfg.AdminToken = cfg.Security.AdminToken
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg))

	logSecurityWarnings(&cfg.Security)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      writeTimeout(&cfg.Server, cfg.Notify.WaitTimeout),
		IdleTimeout:       60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Data layer
	if storeComps.Maintenance != nil {
		tree.AddDataService(storeComps.Maintenance)
		logging.Info().Msg("Store maintenance added to supervisor tree")
	}

	// Messaging layer
	events.AddToSupervisor(tree, cfg.Server.ShutdownTimeout)
	tree.AddMessagingService(wsHub)
	tree.AddMessagingService(ws.NewRelay(wsHub, notifier))
	logging.Info().Msg("Event forwarder, WebSocket hub and relay added to supervisor tree")

	// Monitoring layer
	if cfg.Monitor.AutoStart {
		tree.AddMonitoringService(services.NewMonitorService(monitorComps.Orchestrator, cfg.Server.ShutdownTimeout))
		logging.Info().Msg("Monitor autostart added to supervisor tree")
	}

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	// The loop may have been started over the API; stop it before the
	// store goes away.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	if err := monitorComps.Orchestrator.Stop(stopCtx); err != nil {
		logging.Warn().Err(err).Msg("Monitor did not stop cleanly")
	}
	stopCancel()

	notifier.Close()
	events.Close()

	logging.Info().Msg("Application stopped gracefully")
}

// writeTimeout returns the configured write timeout, raised when needed so
// a long-poll that waits the full notify timeout can still answer.
func writeTimeout(srv *config.ServerConfig, waitTimeout time.Duration) time.Duration {
	minimum := waitTimeout + writeTimeoutMargin
	if srv.WriteTimeout <= 0 || srv.WriteTimeout >= minimum {
		return srv.WriteTimeout
	}
	logging.Warn().
		Dur("configured", srv.WriteTimeout).
		Dur("effective", minimum).
		Msg("HTTP write timeout is shorter than the long-poll wait, raising it")
	return minimum
}

func logSecurityWarnings(sec *config.SecurityConfig) {
	if sec.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range sec.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
			break
		}
	}
	if sec.AdminToken == "" {
		logging.Info().Msg("ADMIN_TOKEN not set; score reset endpoint is disabled")
	}
}
