// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package models

import "time"

// EmotionCounts maps every category to a non-negative occurrence counter.
type EmotionCounts map[Category]int64

// NewEmotionCounts returns counts with all eight categories present and zero.
func NewEmotionCounts() EmotionCounts {
	counts := make(EmotionCounts, len(AllCategories))
	for _, c := range AllCategories {
		counts[c] = 0
	}
	return counts
}

// StoredRecord is what a ScoreStore returns for a track: either a
// *TrackScoreRecord (current shape) or a *LegacyRecord (pre-counter shape).
// Use a type switch to tell them apart.
type StoredRecord interface {
	storedRecord()
	ID() string
}

// TrackScoreRecord is the persisted aggregate for one track.
type TrackScoreRecord struct {
	TrackID       string        `json:"track_id"`
	TotalScore    int64         `json:"total_score"`
	EmotionCounts EmotionCounts `json:"emotion_counts"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (*TrackScoreRecord) storedRecord() {}

// ID returns the track identifier.
func (r *TrackScoreRecord) ID() string { return r.TrackID }

// LegacyRecord is the older document shape: one running score plus the
// emotion seen when the record was created.
type LegacyRecord struct {
	TrackID string `json:"track_id"`
	Score   int64  `json:"score"`
	Emotion string `json:"emotion"`
}

func (*LegacyRecord) storedRecord() {}

// ID returns the track identifier.
func (r *LegacyRecord) ID() string { return r.TrackID }

// NewRecord creates the record for the first delta ever applied to trackID:
// all counters zero except c, which is one, and the total set to c's delta.
func NewRecord(trackID string, c Category, now time.Time) *TrackScoreRecord {
	rec := &TrackScoreRecord{
		TrackID:       trackID,
		EmotionCounts: NewEmotionCounts(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	rec.Apply(c, now)
	return rec
}

// Apply folds one occurrence of c into the record.
func (r *TrackScoreRecord) Apply(c Category, now time.Time) {
	if r.EmotionCounts == nil {
		r.EmotionCounts = NewEmotionCounts()
	}
	r.EmotionCounts[c]++
	r.TotalScore += c.Delta()
	r.UpdatedAt = now
}

// Count returns the counter for c.
func (r *TrackScoreRecord) Count(c Category) int64 {
	return r.EmotionCounts[c]
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *TrackScoreRecord) Clone() *TrackScoreRecord {
	out := *r
	out.EmotionCounts = make(EmotionCounts, len(r.EmotionCounts))
	for k, v := range r.EmotionCounts {
		out.EmotionCounts[k] = v
	}
	return &out
}

// Migrate converts a legacy record into the current shape. The running total
// carries over and every counter starts at zero; the legacy emotion is not
// counted because the old shape never recorded occurrences.
func Migrate(legacy *LegacyRecord, now time.Time) *TrackScoreRecord {
	return &TrackScoreRecord{
		TrackID:       legacy.TrackID,
		TotalScore:    legacy.Score,
		EmotionCounts: NewEmotionCounts(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
