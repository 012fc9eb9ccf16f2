// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
)

// MonitorStart starts the correlation loop. Startup failures (missing
// credentials, unreachable store) answer 503 with the reason; a camera
// failure does not fail the request, it shows as sampler_active=false.
func (h *Handler) MonitorStart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.deps.Monitor.Start(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Monitor start rejected")
		respondDomainError(w, err)
		return
	}
	st := h.deps.Monitor.Status()
	h.broadcastMonitorState(st)
	respondSuccess(w, http.StatusOK, st, start)
}

// MonitorStop requests the loop to stop and waits up to StopTimeout. When
// a tick is still in flight at the deadline the answer is 202 with state
// stop_requested; the loop finishes that tick and then stops.
func (h *Handler) MonitorStop(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), h.config.StopTimeout)
	defer cancel()

	status := http.StatusOK
	if err := h.deps.Monitor.Stop(ctx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			respondDomainError(w, err)
			return
		}
		status = http.StatusAccepted
	}
	st := h.deps.Monitor.Status()
	h.broadcastMonitorState(st)
	respondSuccess(w, status, st, start)
}

// MonitorStatus returns the orchestrator snapshot.
func (h *Handler) MonitorStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.deps.Monitor.Status(), time.Now())
}

// WebcamStatus returns the sampler snapshot.
func (h *Handler) WebcamStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.deps.Emotion.Status(), time.Now())
}

// EmotionReading is the body of GET /emotion/current.
type EmotionReading struct {
	Category   models.Category `json:"category,omitempty"`
	HasReading bool            `json:"has_reading"`
	Active     bool            `json:"active"`
	ReadingAt  *time.Time      `json:"reading_at,omitempty"`
}

// EmotionCurrent returns the latest classified emotion, if any.
func (h *Handler) EmotionCurrent(w http.ResponseWriter, r *http.Request) {
	c, ok := h.deps.Emotion.CurrentCategory()
	st := h.deps.Emotion.Status()
	reading := EmotionReading{HasReading: ok, Active: st.Active}
	if ok {
		reading.Category = c
		reading.ReadingAt = st.ReadingAt
	}
	respondSuccess(w, http.StatusOK, reading, time.Now())
}
