// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package eventprocessor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

// EventPublisher is the part of Publisher the forwarder uses.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, event *ScoreEvent) error
	Transport() string
}

// ForwarderStats is a snapshot of forwarder counters.
type ForwarderStats struct {
	Queued    int    `json:"queued"`
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Forwarder decouples the scoring path from publication. ScoreChanged
// enqueues without blocking; Serve drains the queue.
type Forwarder struct {
	publisher EventPublisher
	config    ForwarderConfig
	queue     chan models.ScoreChange

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewForwarder creates a Forwarder.
func NewForwarder(publisher EventPublisher, cfg ForwarderConfig) (*Forwarder, error) {
	if publisher == nil {
		return nil, ErrNilPublisher
	}
	defaults := DefaultForwarderConfig()
	if cfg.Subject == "" {
		cfg.Subject = defaults.Subject
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaults.BufferSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}
	return &Forwarder{
		publisher: publisher,
		config:    cfg,
		queue:     make(chan models.ScoreChange, cfg.BufferSize),
	}, nil
}

// ScoreChanged implements scoring.ChangeSink.
func (f *Forwarder) ScoreChanged(change models.ScoreChange) {
	select {
	case f.queue <- change:
	default:
		f.dropped.Add(1)
		metrics.EventsPublished.WithLabelValues(f.publisher.Transport(), "dropped").Inc()
		logging.Warn().Str("track_id", change.TrackID).Msg("event queue full, dropping score event")
	}
}

// Serve implements suture.Service. Events still queued at shutdown are
// discarded.
func (f *Forwarder) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-f.queue:
			f.forward(ctx, change)
		}
	}
}

func (f *Forwarder) String() string {
	return "event-forwarder"
}

func (f *Forwarder) forward(ctx context.Context, change models.ScoreChange) {
	pubCtx, cancel := context.WithTimeout(ctx, f.config.PublishTimeout)
	defer cancel()

	event := NewScoreEvent(change)
	event.PublishedAt = time.Now().UTC()
	if err := f.publisher.PublishEvent(pubCtx, f.config.Subject, event); err != nil {
		f.failed.Add(1)
		logging.Warn().Err(err).
			Str("transport", f.publisher.Transport()).
			Str("track_id", change.TrackID).
			Msg("failed to publish score event")
		return
	}
	f.published.Add(1)
}

// Stats returns the current counters.
func (f *Forwarder) Stats() ForwarderStats {
	return ForwarderStats{
		Queued:    len(f.queue),
		Published: f.published.Load(),
		Failed:    f.failed.Load(),
		Dropped:   f.dropped.Load(),
	}
}
