// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package models

import "time"

// CurrentTrack is one observation of what the playback service is playing.
type CurrentTrack struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Artists    []string  `json:"artists,omitempty"`
	Album      string    `json:"album,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	ProgressMs int64     `json:"progress_ms,omitempty"`
	IsPlaying  bool      `json:"is_playing"`
	ObservedAt time.Time `json:"observed_at"`
}

// TrackSummary is a catalog search hit.
type TrackSummary struct {
	ID         string   `json:"id"`
	URI        string   `json:"uri"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists,omitempty"`
	Album      string   `json:"album,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`
}
