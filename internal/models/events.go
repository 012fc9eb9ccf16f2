// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package models

import "time"

// Sources of a score change.
const (
	SourceEmotion = "emotion"
	SourceSkip    = "skip"
	SourceManual  = "manual"
)

// ScoreChange describes one successful delta application.
type ScoreChange struct {
	EventID    string    `json:"event_id"`
	TrackID    string    `json:"track_id"`
	Category   Category  `json:"category"`
	Delta      int64     `json:"delta"`
	TotalScore int64     `json:"total_score"`
	Created    bool      `json:"created,omitempty"`
	Migrated   bool      `json:"migrated,omitempty"`
	Source     string    `json:"source,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
