// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package playback

import (
	"context"
	"errors"

	"github.com/tomtom215/moodscore/internal/models"
)

var (
	// ErrUnauthorized is returned when the service rejects the credentials.
	ErrUnauthorized = errors.New("playback service rejected credentials")

	// ErrRateLimited is returned when retries are exhausted on 429 responses.
	ErrRateLimited = errors.New("playback service rate limited")

	// ErrNoActiveDevice is returned by transport controls when nothing can
	// play.
	ErrNoActiveDevice = errors.New("no active playback device")
)

// TrackSource reports the track on the active device. CurrentlyPlaying
// returns nil, nil when nothing is playing.
type TrackSource interface {
	CurrentlyPlaying(ctx context.Context) (*models.CurrentTrack, error)
}

// Client is the music service as seen by the correlation engine and the API.
type Client interface {
	TrackSource
	Transport
	Catalog

	// CheckAuth verifies that the configured credentials still yield an
	// access token.
	CheckAuth(ctx context.Context) error
}

// Transport controls playback on the active device.
type Transport interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// Catalog finds tracks and starts specific ones on the active device.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]models.TrackSummary, error)
	PlayTracks(ctx context.Context, uris []string) error
}
