// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/playback"
	"github.com/tomtom215/moodscore/internal/validation"
)

// defaultMoodTracks is how many tracks POST /playback/mood queues when the
// request does not say.
const defaultMoodTracks = 5

// Mood sources reported by POST /playback/mood.
const (
	moodFromRequest = "request"
	moodFromEmotion = "emotion"
)

// NowPlaying is the body of GET /playback/current.
type NowPlaying struct {
	Playing bool                 `json:"playing"`
	Track   *models.CurrentTrack `json:"track,omitempty"`
}

// PlaybackCurrent returns the currently playing track.
func (h *Handler) PlaybackCurrent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Playback == nil {
		respondDomainError(w, ErrPlaybackNotConfigured)
		return
	}
	track, err := h.deps.Playback.CurrentlyPlaying(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, NowPlaying{Playing: track != nil && track.IsPlaying, Track: track}, start)
}

// PlaybackControl handles POST /playback/{action}.
func (h *Handler) PlaybackControl(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Playback == nil {
		respondDomainError(w, ErrPlaybackNotConfigured)
		return
	}

	action := chi.URLParam(r, "action")
	var do func(context.Context) error
	switch action {
	case "play":
		do = h.deps.Playback.Play
	case "pause":
		do = h.deps.Playback.Pause
	case "next":
		do = h.deps.Playback.Next
	case "previous":
		do = h.deps.Playback.Previous
	default:
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Unknown playback action", nil)
		return
	}

	if err := do(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("action", action).Msg("Playback control failed")
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"action": action}, start)
}

// MoodPlayback is the body of POST /playback/mood.
type MoodPlayback struct {
	Query      string                `json:"query"`
	Mood       string                `json:"mood,omitempty"`
	MoodSource string                `json:"mood_source,omitempty"`
	Keyword    string                `json:"keyword,omitempty"`
	Tracks     []models.TrackSummary `json:"tracks"`
}

// PlayForMood searches the catalog for "<mood> <keyword>" and starts the
// hits on the active device.
func (h *Handler) PlayForMood(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Playback == nil {
		respondDomainError(w, ErrPlaybackNotConfigured)
		return
	}

	var req MoodPlayRequest
	if err := decodeJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}
	if req.Count == 0 {
		req.Count = defaultMoodTracks
	}

	out := MoodPlayback{
		Mood:    strings.TrimSpace(req.Mood),
		Keyword: strings.TrimSpace(req.Keyword),
	}
	switch {
	case out.Mood != "":
		out.MoodSource = moodFromRequest
	case h.deps.Emotion != nil:
		// Only a live sampler's reading stands in for the listener's mood.
		if st := h.deps.Emotion.Status(); st.Active && st.HasReading {
			out.Mood = string(st.Category)
			out.MoodSource = moodFromEmotion
		}
	}
	out.Query = strings.TrimSpace(out.Mood + " " + out.Keyword)
	if out.Query == "" {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "No mood or keyword given and no emotion reading available", nil)
		return
	}

	tracks, err := h.deps.Playback.SearchTracks(r.Context(), out.Query, req.Count)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("query", sanitizeLogValue(out.Query)).Msg("Track search failed")
		respondDomainError(w, err)
		return
	}
	if len(tracks) == 0 {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "No tracks found", nil)
		return
	}

	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}
	if err := h.deps.Playback.PlayTracks(r.Context(), uris); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Int("tracks", len(uris)).Msg("Starting mood playback failed")
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("query", sanitizeLogValue(out.Query)).
		Str("mood_source", out.MoodSource).
		Int("tracks", len(tracks)).
		Msg("Started playback for mood")
	out.Tracks = tracks
	respondSuccess(w, http.StatusOK, out, start)
}

// AuthStatus is the body of GET /auth/status.
type AuthStatus struct {
	Configured    bool   `json:"configured"`
	Authenticated bool   `json:"authenticated"`
	Reason        string `json:"reason,omitempty"`
}

// PlaybackAuthStatus reports whether the playback credentials still work.
// It always answers 200; the outcome is in the body.
func (h *Handler) PlaybackAuthStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.deps.Playback == nil {
		respondSuccess(w, http.StatusOK, AuthStatus{Reason: "credentials not configured"}, start)
		return
	}

	st := AuthStatus{Configured: true}
	err := h.deps.Playback.CheckAuth(r.Context())
	switch {
	case err == nil:
		st.Authenticated = true
	case errors.Is(err, playback.ErrUnauthorized):
		st.Reason = "credentials rejected"
	default:
		st.Reason = "playback service unreachable"
	}
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Playback authentication check failed")
	}
	respondSuccess(w, http.StatusOK, st, start)
}
