// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/moodscore/internal/monitor"
)

const healthPingTimeout = 2 * time.Second

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status             string        `json:"status"`
	Version            string        `json:"version"`
	StoreConnected     bool          `json:"store_connected"`
	MonitorState       monitor.State `json:"monitor_state"`
	SamplerActive      bool          `json:"sampler_active"`
	PlaybackConfigured bool          `json:"playback_configured"`
	Uptime             float64       `json:"uptime_seconds"`
}

func (h *Handler) storeConnected(ctx context.Context) bool {
	if h.deps.Store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	return h.deps.Store.Ping(ctx) == nil
}

// Health reports store reachability and monitor state. It always answers
// 200; "degraded" means the store did not answer its ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	connected := h.storeConnected(r.Context())

	health := HealthStatus{
		Status:             "healthy",
		Version:            h.config.Version,
		StoreConnected:     connected,
		PlaybackConfigured: h.deps.Playback != nil,
		Uptime:             time.Since(h.startTime).Seconds(),
	}
	if !connected {
		health.Status = "degraded"
	}
	if h.deps.Monitor != nil {
		health.MonitorState = h.deps.Monitor.Status().State
	}
	if h.deps.Emotion != nil {
		health.SamplerActive = h.deps.Emotion.Status().Active
	}

	respondSuccess(w, http.StatusOK, health, start)
}

// HealthLive answers 200 while the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady answers 503 until the store is reachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.storeConnected(r.Context()) {
		respondError(w, http.StatusServiceUnavailable, ErrCodeStoreUnreachable, "Score store is unreachable", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]bool{"ready": true}, time.Now())
}
