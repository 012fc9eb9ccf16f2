// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package playback

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

// Observation is the outcome of one poll.
type Observation struct {
	// Track is nil when nothing is playing or the poll failed.
	Track      *models.CurrentTrack
	Transition Transition
	// Previous is the track ID before this observation, set on changes.
	Previous string
	Elapsed  time.Duration
	Err      error
}

// Poller queries the playback client and runs the skip detector over the
// results. Poll must only be called from one goroutine; LastObservation is
// safe from any.
type Poller struct {
	client   TrackSource
	detector *SkipDetector
	now      func() time.Time

	mu   sync.RWMutex
	last Observation
}

// NewPoller creates a Poller with an Unseen detector.
func NewPoller(client TrackSource, skipThreshold time.Duration) *Poller {
	return &Poller{
		client:   client,
		detector: NewSkipDetector(skipThreshold),
		now:      time.Now,
	}
}

// Poll observes the current track once. A failed query is treated as
// nothing observed: the error is logged and returned in the Observation but
// the detector does not move.
func (p *Poller) Poll(ctx context.Context) Observation {
	track, err := p.client.CurrentlyPlaying(ctx)
	if err != nil {
		metrics.PlaybackPolls.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("component", "playback").Msg("Playback query failed, treating as no track")
		obs := Observation{Transition: NoObservation, Err: err}
		p.record(obs)
		return obs
	}
	if track == nil || track.ID == "" {
		metrics.PlaybackPolls.WithLabelValues("empty").Inc()
		obs := Observation{Transition: NoObservation}
		p.record(obs)
		return obs
	}
	metrics.PlaybackPolls.WithLabelValues("ok").Inc()

	at := track.ObservedAt
	if at.IsZero() {
		at = p.now()
	}
	before := p.detector.State()
	obs := Observation{Track: track}
	obs.Transition = p.detector.Observe(track.ID, at)

	if obs.Transition.IsChange() {
		obs.Previous = before.LastTrackID
		obs.Elapsed = at.Sub(before.LastObservedAt)
		metrics.RecordTransition(obs.Transition == Skip)
		logging.Ctx(ctx).Debug().
			Str("from", obs.Previous).
			Str("to", track.ID).
			Dur("elapsed", obs.Elapsed).
			Dur("threshold", p.detector.Threshold()).
			Str("transition", obs.Transition.String()).
			Msg("Track changed")
	}

	p.record(obs)
	return obs
}

// Reset forgets the last observed track.
func (p *Poller) Reset() {
	p.detector.Reset()
	p.record(Observation{})
}

// LastObservation returns the most recent poll result.
func (p *Poller) LastObservation() Observation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Client returns the underlying playback client.
func (p *Poller) Client() TrackSource {
	return p.client
}

func (p *Poller) record(obs Observation) {
	p.mu.Lock()
	p.last = obs
	p.mu.Unlock()
}
