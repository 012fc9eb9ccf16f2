// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/moodscore/internal/breaker"
	"github.com/tomtom215/moodscore/internal/monitor"
	"github.com/tomtom215/moodscore/internal/playback"
	"github.com/tomtom215/moodscore/internal/scoring"
)

// Error codes returned in the envelope.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeTooManyRequests     = "TOO_MANY_REQUESTS"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeMissingCredentials  = "MISSING_CREDENTIALS"
	ErrCodeStoreUnreachable    = "STORE_UNREACHABLE"
	ErrCodeNoActiveDevice      = "NO_ACTIVE_DEVICE"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
	ErrCodeTimeout             = "TIMEOUT"
)

// ErrPlaybackNotConfigured is returned by playback routes when no client
// could be built from the configured credentials.
var ErrPlaybackNotConfigured = errors.New("playback client is not configured")

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Ordered: the first match wins.
var errorMappings = []errorMapping{
	{scoring.ErrNotFound, http.StatusNotFound, ErrCodeNotFound, "Score record not found"},
	{scoring.ErrInvalidTrackID, http.StatusBadRequest, ErrCodeBadRequest, "Invalid track id"},
	{scoring.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Score store unavailable"},
	{monitor.ErrMissingCredentials, http.StatusServiceUnavailable, ErrCodeMissingCredentials, "Playback credentials are not configured"},
	{monitor.ErrStoreUnreachable, http.StatusServiceUnavailable, ErrCodeStoreUnreachable, "Score store is unreachable"},
	{ErrPlaybackNotConfigured, http.StatusServiceUnavailable, ErrCodeMissingCredentials, "Playback credentials are not configured"},
	{playback.ErrNoActiveDevice, http.StatusConflict, ErrCodeNoActiveDevice, "No active playback device"},
	{playback.ErrRateLimited, http.StatusTooManyRequests, ErrCodeTooManyRequests, "Playback service rate limited"},
	{playback.ErrUnauthorized, http.StatusBadGateway, ErrCodeExternalServiceFail, "Playback service rejected credentials"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout, "Request timed out"},
}

// respondDomainError maps err onto a status and code. Unknown errors are
// 500 and logged; the message never echoes internal detail.
func respondDomainError(w http.ResponseWriter, err error) {
	if breaker.IsRejected(err) {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Upstream temporarily unavailable", nil)
		return
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			var logged error
			if m.status >= http.StatusInternalServerError {
				logged = err
			}
			respondError(w, m.status, m.code, m.message, logged)
			return
		}
	}
	respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "Internal server error", err)
}
