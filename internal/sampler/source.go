// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/moodscore/internal/models"
)

// ErrDeviceUnavailable is returned when the camera cannot be opened or stops
// producing frames.
var ErrDeviceUnavailable = errors.New("camera device unavailable")

// Frame is one captured image.
type Frame struct {
	Data        []byte
	ContentType string
	CapturedAt  time.Time
}

// FrameSource opens camera devices.
type FrameSource interface {
	Open(ctx context.Context, cameraIndex int) (Device, error)
}

// Device is an open camera handle. ReadFrame returns io.EOF once the stream
// has ended. Release must be called exactly once.
type Device interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Release() error
}

// Classifier maps a frame to one of the emotion categories.
type Classifier interface {
	Classify(ctx context.Context, frame Frame) (models.Category, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, frame Frame) (models.Category, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, frame Frame) (models.Category, error) {
	return f(ctx, frame)
}
