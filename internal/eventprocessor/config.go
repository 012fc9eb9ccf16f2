// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package eventprocessor

import (
	"fmt"
	"time"
)

// Transport names, also used as metric labels.
const (
	TransportChannel = "gochannel"
	TransportNATS    = "nats"
)

// DefaultSubject is where score events are published.
const DefaultSubject = "moodscore.scores.changed"

// PublisherConfig configures a NATS publisher.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns reconnect defaults for a local server.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}
}

// Validate checks the publisher configuration.
func (c PublisherConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: NATS URL is required", ErrInvalidConfig)
	}
	if c.ReconnectBuffer < 0 {
		return fmt.Errorf("%w: reconnect buffer must be >= 0", ErrInvalidConfig)
	}
	return nil
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host string
	// Port -1 picks a random free port.
	Port int
}

// ForwarderConfig configures the Forwarder.
type ForwarderConfig struct {
	Subject string
	// BufferSize bounds queued events; further events are dropped.
	BufferSize int
	// PublishTimeout bounds a single publish.
	PublishTimeout time.Duration
}

// DefaultForwarderConfig returns production defaults.
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		Subject:        DefaultSubject,
		BufferSize:     1024,
		PublishTimeout: 5 * time.Second,
	}
}
