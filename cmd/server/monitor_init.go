// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package main

import (
	"fmt"

	"github.com/tomtom215/moodscore/internal/config"
	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/monitor"
	"github.com/tomtom215/moodscore/internal/playback"
	"github.com/tomtom215/moodscore/internal/sampler"
	"github.com/tomtom215/moodscore/internal/scoring"
	"github.com/tomtom215/moodscore/internal/vision"
)

// MonitorComponents is everything the correlation loop needs.
type MonitorComponents struct {
	Sampler *sampler.Sampler
	// Playback is nil when Spotify credentials are not configured.
	Playback     playback.Client
	Orchestrator *monitor.Orchestrator
}

// InitMonitor wires the camera, classifier, playback client and
// orchestrator. Missing Spotify credentials are not an error here; the
// orchestrator refuses to start instead.
func InitMonitor(cfg *config.Config, scores *scoring.Aggregator, store scoring.Store) (*MonitorComponents, error) {
	frames := vision.NewFrameClient(cfg.Vision.FrameURL, cfg.Vision.Timeout)
	classifier := vision.NewClassifierClient(cfg.Vision.ClassifierURL, cfg.Vision.Timeout)
	smp := sampler.New(frames, classifier, sampler.Config{
		CameraIndex:    cfg.Vision.CameraIndex,
		SampleInterval: cfg.Sampler.SampleInterval,
		CaptureRate:    cfg.Sampler.CaptureRate,
		StopTimeout:    cfg.Sampler.StopTimeout,
	})

	comps := &MonitorComponents{Sampler: smp}
	deps := monitor.Deps{Sampler: smp, Scores: scores, Store: store}

	if sp := cfg.Playback.Spotify; sp.HasCredentials() {
		client, err := playback.NewSpotifyClient(playback.SpotifyConfig{
			ClientID:     sp.ClientID,
			ClientSecret: sp.ClientSecret,
			RefreshToken: sp.RefreshToken,
			APIURL:       sp.APIURL,
			TokenURL:     sp.TokenURL,
			Timeout:      cfg.Playback.Timeout,
			MaxRetries:   cfg.Playback.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("create Spotify client: %w", err)
		}
		comps.Playback = client
		deps.Poller = playback.NewPoller(client, cfg.Playback.SkipThreshold)
		logging.Info().
			Str("client_id", logging.Redact(sp.ClientID)).
			Dur("skip_threshold", cfg.Playback.SkipThreshold).
			Msg("Spotify playback client configured")
	} else {
		logging.Warn().Msg("Spotify credentials not configured; monitoring cannot start until they are set")
	}

	comps.Orchestrator = monitor.New(monitor.Config{
		TickInterval: cfg.Monitor.TickInterval,
		TickJitter:   cfg.Monitor.TickJitter,
		TrackNeutral: cfg.Monitor.TrackNeutral,
	}, deps)
	return comps, nil
}
