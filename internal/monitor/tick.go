// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package monitor

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/playback"
)

// Tick outcomes, used as metric labels.
const (
	outcomeApplied = "applied"
	outcomeIdle    = "idle"
	outcomeError   = "error"
	outcomePanic   = "panic"
)

// tick runs one correlation cycle. Every failure is contained here.
func (o *Orchestrator) tick(parent context.Context) {
	ctx := logging.ContextWithNewCorrelationID(parent)
	start := o.now()
	outcome := outcomeIdle

	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			o.recordError(fmt.Errorf("tick panic: %v", r))
			logging.Ctx(ctx).Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Recovered panic in correlation tick")
		}
		if outcome == outcomeError || outcome == outcomePanic {
			o.failed.Add(1)
		}
		o.ticks.Add(1)
		o.statusMu.Lock()
		o.lastTickAt = start
		o.statusMu.Unlock()
		metrics.RecordTick(outcome, o.now().Sub(start))
	}()

	obs := o.deps.Poller.Poll(ctx)
	if obs.Err != nil {
		outcome = outcomeError
		o.recordError(obs.Err)
		return
	}
	if obs.Track == nil {
		return
	}

	o.statusMu.Lock()
	o.lastTrackID = obs.Track.ID
	o.statusMu.Unlock()

	applied, failed := 0, 0
	count := func(ok, attempted bool) {
		switch {
		case !attempted:
		case ok:
			applied++
		default:
			failed++
		}
	}

	// Emotion and skip deltas are independent; both may land on the same
	// track in one tick.
	count(o.applyEmotion(ctx, obs.Track.ID))
	if obs.Transition == playback.Skip {
		o.skips.Add(1)
		// The penalty goes to the track now playing, not the one that was
		// skipped away from.
		count(o.apply(ctx, obs.Track.ID, models.Skipped, models.SourceSkip), true)
	}

	switch {
	case failed > 0:
		outcome = outcomeError
	case applied > 0:
		outcome = outcomeApplied
	}
}

// applyEmotion applies the sampler's current reading to trackID. It
// reports whether a delta was attempted and whether it succeeded. A reading
// left behind by a capture loop that has exited is never applied.
func (o *Orchestrator) applyEmotion(ctx context.Context, trackID string) (ok, attempted bool) {
	if !o.deps.Sampler.Active() {
		return false, false
	}
	c, has := o.deps.Sampler.CurrentCategory()
	if !has || !c.IsEmotion() {
		return false, false
	}

	o.statusMu.Lock()
	o.lastCat = c
	o.statusMu.Unlock()

	if c.Delta() == 0 && !o.cfg.TrackNeutral {
		return false, false
	}
	return o.apply(ctx, trackID, c, models.SourceEmotion), true
}

func (o *Orchestrator) apply(ctx context.Context, trackID string, c models.Category, source string) bool {
	change, err := o.deps.Scores.ApplyDelta(ctx, trackID, c, source)
	if err != nil {
		o.recordError(err)
		logging.Ctx(ctx).Warn().Err(err).
			Str("track_id", trackID).
			Str("category", string(c)).
			Msg("Failed to apply score delta, sample dropped")
		return false
	}
	logging.Ctx(ctx).Debug().
		Str("track_id", trackID).
		Str("category", string(c)).
		Int64("total_score", change.TotalScore).
		Str("source", source).
		Msg("Score delta applied")
	return true
}
