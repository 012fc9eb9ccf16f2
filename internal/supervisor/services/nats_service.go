// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package services

import (
	"context"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
)

// EmbeddedServer is the embedded NATS server lifecycle.
type EmbeddedServer interface {
	ClientURL() string
	IsRunning() bool
	Shutdown(ctx context.Context) error
}

// NATSServerService keeps the embedded NATS server alive for the lifetime
// of the tree and shuts it down last in the messaging layer.
type NATSServerService struct {
	server          EmbeddedServer
	shutdownTimeout time.Duration
}

// NewNATSServerService wraps an already started server.
func NewNATSServerService(server EmbeddedServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	return &NATSServerService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service.
func (s *NATSServerService) Serve(ctx context.Context) error {
	logging.Info().Str("url", s.server.ClientURL()).Msg("Embedded NATS server supervised")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("Embedded NATS server shutdown incomplete")
	}
	return ctx.Err()
}

func (s *NATSServerService) String() string {
	return "nats-server"
}
