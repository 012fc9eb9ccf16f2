// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/notify"
	"github.com/tomtom215/moodscore/internal/validation"
)

// ScoreList is the body of GET /scores.
type ScoreList struct {
	Scores []*models.TrackScoreRecord `json:"scores"`
	Count  int                        `json:"count"`
	Limit  int                        `json:"limit,omitempty"`
}

// ListScores returns records by total score, highest first.
func (h *Handler) ListScores(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, err := getIntParam(r, "limit", 0)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	req := ScoresRequest{Limit: limit}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	records, err := h.deps.Scores.List(r.Context(), req.Limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if records == nil {
		records = []*models.TrackScoreRecord{}
	}
	respondSuccess(w, http.StatusOK, ScoreList{Scores: records, Count: len(records), Limit: req.Limit}, start)
}

// GetScore returns one record; legacy records come back migrated.
func (h *Handler) GetScore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec, err := h.deps.Scores.Get(r.Context(), chi.URLParam(r, "trackID"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, rec, start)
}

// ApplyEvent records a manual delta for a track.
func (h *Handler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req ApplyEventRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	req.TrackID = chi.URLParam(r, "trackID")
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}

	change, err := h.deps.Scores.ApplyDelta(r.Context(), req.TrackID, category, models.SourceManual)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("track_id", change.TrackID).
		Str("category", string(change.Category)).
		Int64("total_score", change.TotalScore).
		Msg("Manual score event applied")
	respondSuccess(w, http.StatusCreated, change, start)
}

// ResetScores drops every record and wakes listeners with a reset event.
func (h *Handler) ResetScores(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := h.deps.Scores.Reset(r.Context()); err != nil {
		respondDomainError(w, err)
		return
	}
	if h.deps.Updates != nil {
		h.deps.Updates.Signal(notify.KindReset, "")
	}
	logging.Ctx(r.Context()).Warn().Str("remote_addr", r.RemoteAddr).Msg("Score records reset over the API")
	respondSuccess(w, http.StatusOK, map[string]bool{"reset": true}, start)
}
