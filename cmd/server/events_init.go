// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/moodscore/internal/config"
	"github.com/tomtom215/moodscore/internal/eventprocessor"
	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/supervisor"
	"github.com/tomtom215/moodscore/internal/supervisor/services"
)

// EventComponents holds the score event pipeline.
type EventComponents struct {
	Publisher *eventprocessor.Publisher
	Forwarder *eventprocessor.Forwarder
	// Server is set only when the embedded NATS server is enabled.
	Server *eventprocessor.EmbeddedServer
}

// InitEvents builds the publisher and forwarder. With NATS disabled events
// go to an in-process channel.
func InitEvents(cfg *config.NATSConfig) (*EventComponents, error) {
	comps := &EventComponents{}
	logger := eventprocessor.NewLogger()

	if !cfg.Enabled {
		comps.Publisher = eventprocessor.NewChannelPublisher(logger)
		logging.Info().Msg("NATS disabled, score events stay in-process")
	} else {
		url := cfg.URL
		if cfg.Embedded {
			srv, err := eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfig{Host: cfg.Host, Port: cfg.Port})
			if err != nil {
				return nil, fmt.Errorf("start embedded NATS: %w", err)
			}
			comps.Server = srv
			url = srv.ClientURL()
			logging.Info().Str("url", url).Msg("Embedded NATS server started")
		}

		pubCfg := eventprocessor.DefaultPublisherConfig(url)
		pubCfg.MaxReconnects = cfg.MaxReconnects
		if cfg.ReconnectWait > 0 {
			pubCfg.ReconnectWait = cfg.ReconnectWait
		}
		pubCfg.ReconnectBuffer = cfg.ReconnectBufMB * 1024 * 1024

		pub, err := eventprocessor.NewNATSPublisher(pubCfg, logger)
		if err != nil {
			comps.shutdownServer()
			return nil, fmt.Errorf("create NATS publisher: %w", err)
		}
		comps.Publisher = pub
		logging.Info().Str("url", url).Str("subject", cfg.Subject).Msg("Publishing score events to NATS")
	}

	fwdCfg := eventprocessor.DefaultForwarderConfig()
	if cfg.Subject != "" {
		fwdCfg.Subject = cfg.Subject
	}
	fwd, err := eventprocessor.NewForwarder(comps.Publisher, fwdCfg)
	if err != nil {
		comps.Close()
		return nil, err
	}
	comps.Forwarder = fwd
	return comps, nil
}

// AddToSupervisor registers the event services with the messaging layer.
// The embedded server goes first so it is stopped after the forwarder.
func (c *EventComponents) AddToSupervisor(tree *supervisor.SupervisorTree, shutdownTimeout time.Duration) {
	if c == nil {
		return
	}
	if c.Server != nil {
		tree.AddMessagingService(services.NewNATSServerService(c.Server, shutdownTimeout))
	}
	if c.Forwarder != nil {
		tree.AddMessagingService(c.Forwarder)
	}
}

// Close closes the publisher and, if the supervisor never ran, the
// embedded server.
func (c *EventComponents) Close() {
	if c == nil {
		return
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event publisher")
		}
	}
	c.shutdownServer()
}

func (c *EventComponents) shutdownServer() {
	if c.Server == nil || !c.Server.IsRunning() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
	}
}
