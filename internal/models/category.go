// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package models

import (
	"errors"
	"fmt"
	"strings"
)

// Category is one of the eight closed labels a score delta is recorded under.
type Category string

const (
	Happy    Category = "happy"
	Sad      Category = "sad"
	Angry    Category = "angry"
	Surprise Category = "surprise"
	Fear     Category = "fear"
	Disgust  Category = "disgust"
	Neutral  Category = "neutral"
	// Skipped is synthetic: it is never produced by the classifier, only by
	// the skip detector.
	Skipped Category = "skipped"
)

// AllCategories lists every category in storage column order.
var AllCategories = []Category{Happy, Sad, Angry, Surprise, Fear, Disgust, Neutral, Skipped}

// ErrUnknownCategory is returned by ParseCategory for labels outside the set.
var ErrUnknownCategory = errors.New("unknown category")

// ParseCategory normalizes s and returns the matching category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
	}
	return c, nil
}

// Valid reports whether c is one of the eight categories.
func (c Category) Valid() bool {
	switch c {
	case Happy, Sad, Angry, Surprise, Fear, Disgust, Neutral, Skipped:
		return true
	}
	return false
}

// IsEmotion reports whether c can come from the classifier.
func (c Category) IsEmotion() bool {
	return c.Valid() && c != Skipped
}

// Delta returns the score contribution of one occurrence of c.
//
//	happy                        +1
//	sad, angry, fear, disgust    -1
//	skipped                      -1
//	neutral, surprise             0
//
// Unknown categories contribute 0.
func (c Category) Delta() int64 {
	switch c {
	case Happy:
		return 1
	case Sad, Angry, Fear, Disgust:
		return -1
	case Skipped:
		return -1
	default:
		return 0
	}
}

// CounterField is the per-category counter name used by document and SQL
// stores ("emotion_happy", "emotion_skipped", ...).
func (c Category) CounterField() string {
	return "emotion_" + string(c)
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}
