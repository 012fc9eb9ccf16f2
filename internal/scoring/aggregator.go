// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package scoring folds emotion readings and skips into persisted per-track
// score records.
//
// The Aggregator looks a record up, then either creates/increments it with a
// single atomic store call or, for legacy records, migrates and applies in one
// transaction. A migration that loses a race to another caller is retried
// against the now-current record, so concurrent callers never lose a delta.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

// maxApplyAttempts bounds lookup/apply rounds when a concurrent migration
// changes the record shape underneath us.
const maxApplyAttempts = 3

// ChangeSink receives every successful delta application.
type ChangeSink interface {
	ScoreChanged(change models.ScoreChange)
}

// ChangeSinkFunc adapts a function to ChangeSink.
type ChangeSinkFunc func(models.ScoreChange)

// ScoreChanged implements ChangeSink.
func (f ChangeSinkFunc) ScoreChanged(change models.ScoreChange) { f(change) }

// Aggregator applies category deltas to a Store.
type Aggregator struct {
	store Store
	sinks []ChangeSink
	now   func() time.Time
}

// NewAggregator creates an Aggregator. Sinks are called synchronously after
// each successful application and must not block.
func NewAggregator(store Store, sinks ...ChangeSink) *Aggregator {
	return &Aggregator{store: store, sinks: sinks, now: time.Now}
}

// Store returns the underlying store.
func (a *Aggregator) Store() Store { return a.store }

// ApplyDelta records one occurrence of c for trackID. source tags the change
// (models.SourceEmotion, SourceSkip, SourceManual).
func (a *Aggregator) ApplyDelta(ctx context.Context, trackID string, c models.Category, source string) (*models.ScoreChange, error) {
	trackID = strings.TrimSpace(trackID)
	if trackID == "" {
		return nil, ErrInvalidTrackID
	}
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, c)
	}
	delta := c.Delta()

	var lastErr error
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		change, err := a.applyOnce(ctx, trackID, c, delta)
		if err == nil {
			change.Source = source
			metrics.RecordDeltaApplied(string(c), source, change.Created, change.Migrated)
			a.publish(*change)
			return change, nil
		}
		if !errors.Is(err, ErrLegacyRecord) && !errors.Is(err, ErrNotLegacy) {
			metrics.ScoreApplyFailures.WithLabelValues(source).Inc()
			return nil, err
		}
		lastErr = err
		logging.Debug().Str("track_id", trackID).Int("attempt", attempt+1).Err(err).
			Msg("Record shape changed during apply, retrying")
	}
	metrics.ScoreApplyFailures.WithLabelValues(source).Inc()
	return nil, fmt.Errorf("apply %s to %s: gave up after %d attempts: %w", c, trackID, maxApplyAttempts, lastErr)
}

func (a *Aggregator) applyOnce(ctx context.Context, trackID string, c models.Category, delta int64) (*models.ScoreChange, error) {
	stored, err := a.store.Get(ctx, trackID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get %s: %w", trackID, err)
	}

	change := &models.ScoreChange{
		EventID:   uuid.NewString(),
		TrackID:   trackID,
		Category:  c,
		Delta:     delta,
		Timestamp: a.now(),
	}

	if legacy, ok := stored.(*models.LegacyRecord); ok {
		rec, err := a.store.MigrateAndApply(ctx, legacy, c, delta)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("track_id", trackID).Int64("legacy_score", legacy.Score).
			Str("legacy_emotion", legacy.Emotion).Msg("Migrated legacy score record")
		change.TotalScore = rec.TotalScore
		change.Migrated = true
		return change, nil
	}

	rec, created, err := a.store.AtomicUpsertIncrement(ctx, trackID, c, delta)
	if err != nil {
		return nil, err
	}
	change.TotalScore = rec.TotalScore
	change.Created = created
	return change, nil
}

func (a *Aggregator) publish(change models.ScoreChange) {
	for _, sink := range a.sinks {
		sink.ScoreChanged(change)
	}
}

// Get returns the current-shape record for trackID. Legacy records are
// returned in migrated form without being rewritten.
func (a *Aggregator) Get(ctx context.Context, trackID string) (*models.TrackScoreRecord, error) {
	stored, err := a.store.Get(ctx, trackID)
	if err != nil {
		return nil, err
	}
	switch rec := stored.(type) {
	case *models.TrackScoreRecord:
		return rec, nil
	case *models.LegacyRecord:
		return models.Migrate(rec, a.now()), nil
	default:
		return nil, fmt.Errorf("unexpected record type %T", stored)
	}
}

// List returns records ordered by total score, highest first.
func (a *Aggregator) List(ctx context.Context, limit int) ([]*models.TrackScoreRecord, error) {
	return a.store.List(ctx, limit)
}

// Reset drops every record.
func (a *Aggregator) Reset(ctx context.Context) error {
	if err := a.store.DropAll(ctx); err != nil {
		return err
	}
	logging.Warn().Msg("All score records dropped")
	return nil
}
