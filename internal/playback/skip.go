// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package playback

import "time"

// Transition classifies one playback observation against the previous one.
type Transition int

const (
	// NoObservation means nothing was playing (or the poll failed). The
	// detector state is untouched.
	NoObservation Transition = iota
	// FirstTrack is the first track ever observed (Unseen to Tracking).
	FirstTrack
	// SameTrack means the observed track equals the last one.
	SameTrack
	// NaturalTransition is a track change after at least the threshold.
	NaturalTransition
	// Skip is a track change sooner than the threshold.
	Skip
)

func (t Transition) String() string {
	switch t {
	case NoObservation:
		return "none"
	case FirstTrack:
		return "first"
	case SameTrack:
		return "same"
	case NaturalTransition:
		return "natural"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// IsChange reports whether the track differs from the previous observation.
func (t Transition) IsChange() bool {
	return t == NaturalTransition || t == Skip
}

// DetectorState is the skip detector's memory. The zero value is Unseen.
type DetectorState struct {
	LastTrackID    string
	LastObservedAt time.Time
}

// Tracking reports whether a track has been observed.
func (s DetectorState) Tracking() bool {
	return s.LastTrackID != ""
}

// ClassifySkip is the skip heuristic. An empty trackID means nothing was
// observed. The returned state is the new detector state; its timestamp
// only moves when the track changes, so time spent on one track keeps
// counting toward the threshold.
func ClassifySkip(state DetectorState, trackID string, observedAt time.Time, threshold time.Duration) (Transition, DetectorState) {
	switch {
	case trackID == "":
		return NoObservation, state
	case !state.Tracking():
		return FirstTrack, DetectorState{LastTrackID: trackID, LastObservedAt: observedAt}
	case trackID == state.LastTrackID:
		return SameTrack, state
	}

	next := DetectorState{LastTrackID: trackID, LastObservedAt: observedAt}
	if observedAt.Sub(state.LastObservedAt) < threshold {
		return Skip, next
	}
	return NaturalTransition, next
}

// SkipDetector applies ClassifySkip to successive observations. It is owned
// by a single goroutine and does no locking.
type SkipDetector struct {
	threshold time.Duration
	state     DetectorState
}

// NewSkipDetector creates an Unseen detector.
func NewSkipDetector(threshold time.Duration) *SkipDetector {
	return &SkipDetector{threshold: threshold}
}

// Observe classifies trackID seen at observedAt and advances the state.
func (d *SkipDetector) Observe(trackID string, observedAt time.Time) Transition {
	var t Transition
	t, d.state = ClassifySkip(d.state, trackID, observedAt, d.threshold)
	return t
}

// State returns the current state.
func (d *SkipDetector) State() DetectorState {
	return d.state
}

// Reset returns the detector to Unseen.
func (d *SkipDetector) Reset() {
	d.state = DetectorState{}
}

// Threshold returns the skip threshold.
func (d *SkipDetector) Threshold() time.Duration {
	return d.threshold
}
