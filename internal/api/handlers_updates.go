// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/validation"
	ws "github.com/tomtom215/moodscore/internal/websocket"
)

const registerTimeout = 5 * time.Second

// Updates long-polls the change notifier. It answers 200 with the wake-up
// event, or 204 when nothing changed before the timeout. The timeout
// parameter is capped at the configured wait timeout.
func (h *Handler) Updates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Updates == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Change notifications are disabled", nil)
		return
	}

	timeout, err := getDurationParam(r, "timeout", h.config.WaitTimeout)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	req := UpdatesRequest{Timeout: timeout}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}
	if req.Timeout == 0 || req.Timeout > h.config.WaitTimeout {
		req.Timeout = h.config.WaitTimeout
	}

	event, ok := h.deps.Updates.Wait(r.Context(), req.Timeout)
	if !ok {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondSuccess(w, http.StatusOK, event, start)
}

// WebSocket upgrades the connection and registers it with the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket push is disabled", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.deps.Hub, conn)
	select {
	case h.deps.Hub.Register <- client:
	case <-time.After(registerTimeout):
		logging.Warn().Msg("WebSocket hub not accepting clients, closing connection")
		_ = conn.Close()
		return
	}
	client.Start()
}
