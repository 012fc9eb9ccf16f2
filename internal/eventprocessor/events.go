// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package eventprocessor

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/moodscore/internal/models"
)

// SchemaVersion is bumped on incompatible payload changes.
const SchemaVersion = 1

// ScoreEvent is the published form of a models.ScoreChange.
type ScoreEvent struct {
	SchemaVersion int `json:"schema_version"`
	models.ScoreChange
	PublishedAt time.Time `json:"published_at"`
}

// NewScoreEvent wraps change, assigning an event ID if it has none.
func NewScoreEvent(change models.ScoreChange) *ScoreEvent {
	if change.EventID == "" {
		change.EventID = uuid.NewString()
	}
	return &ScoreEvent{SchemaVersion: SchemaVersion, ScoreChange: change}
}

// Validate checks the fields subscribers rely on.
func (e *ScoreEvent) Validate() error {
	switch {
	case e.EventID == "":
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	case e.TrackID == "":
		return fmt.Errorf("%w: track_id is required", ErrInvalidEvent)
	case !e.Category.Valid():
		return fmt.Errorf("%w: category %q", ErrInvalidEvent, e.Category)
	case e.Delta != e.Category.Delta():
		return fmt.Errorf("%w: delta %d does not match category %s", ErrInvalidEvent, e.Delta, e.Category)
	}
	return nil
}
