// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tomtom215/moodscore/internal/logging"
)

// RequestIDHeader is read from the client and echoed back.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID keeps an upstream X-Request-ID or generates one, echoes it in
// the response and stores it with a fresh correlation ID in the context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		ctx = logging.ContextWithNewCorrelationID(ctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
