// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/monitor"
	"github.com/tomtom215/moodscore/internal/notify"
	"github.com/tomtom215/moodscore/internal/playback"
	"github.com/tomtom215/moodscore/internal/sampler"
	ws "github.com/tomtom215/moodscore/internal/websocket"
)

// Monitor is the orchestrator as seen by the API.
type Monitor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status() monitor.Status
}

// EmotionReader exposes the sampler's slot and status.
type EmotionReader interface {
	CurrentCategory() (models.Category, bool)
	Status() sampler.Status
}

// Scores is the aggregator as seen by the API.
type Scores interface {
	ApplyDelta(ctx context.Context, trackID string, c models.Category, source string) (*models.ScoreChange, error)
	Get(ctx context.Context, trackID string) (*models.TrackScoreRecord, error)
	List(ctx context.Context, limit int) ([]*models.TrackScoreRecord, error)
	Reset(ctx context.Context) error
}

// Pinger checks store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Updates is the change notifier as seen by the API.
type Updates interface {
	Wait(ctx context.Context, timeout time.Duration) (notify.Event, bool)
	Signal(kind notify.Kind, trackID string)
}

// Dependencies wires the handler. Playback may be nil when no credentials
// are configured; Hub may be nil to disable the WebSocket route.
type Dependencies struct {
	Monitor  Monitor
	Emotion  EmotionReader
	Playback playback.Client
	Scores   Scores
	Store    Pinger
	Updates  Updates
	Hub      *ws.Hub
}

// HandlerConfig holds the HTTP-facing knobs.
type HandlerConfig struct {
	// WaitTimeout caps the long-poll timeout a client may ask for.
	WaitTimeout time.Duration
	// StopTimeout bounds how long POST /monitor/stop waits for the loop.
	StopTimeout time.Duration
	// AllowedOrigins for WebSocket upgrades. "*" allows any.
	AllowedOrigins []string
	Version        string
}

// Handler serves every API route.
type Handler struct {
	deps      Dependencies
	config    HandlerConfig
	upgrader  websocket.Upgrader
	startTime time.Time
}

// NewHandler creates the handler, filling config defaults.
func NewHandler(deps Dependencies, cfg HandlerConfig) *Handler {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 30 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	h := &Handler{
		deps:      deps,
		config:    cfg,
		startTime: time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
	return h
}

// checkWebSocketOrigin rejects browser upgrades from origins outside the
// CORS allow-list. Non-browser clients that send no Origin are allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// broadcastMonitorState pushes the orchestrator state to WebSocket clients.
func (h *Handler) broadcastMonitorState(st monitor.Status) {
	if h.deps.Hub == nil {
		return
	}
	h.deps.Hub.Broadcast(ws.MessageTypeMonitorState, st)
}
