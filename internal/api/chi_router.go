// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/moodscore/internal/middleware"
)

// Router binds the handler to its routes.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. A nil middleware factory uses the defaults.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi builds the HTTP handler tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCustom(RateLimitHealth))
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)

		// Long-lived requests stay out of the access log's slow warning.
		r.With(router.chiMiddleware.RateLimit()).Get("/updates", router.handler.Updates)
		r.With(router.chiMiddleware.RateLimitCustom(RateLimitWebSocket)).Get("/ws", router.handler.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AccessLog(middleware.DefaultSlowThreshold))
			r.Use(router.chiMiddleware.RateLimit())

			r.Get("/monitor/status", router.handler.MonitorStatus)
			r.Get("/webcam/status", router.handler.WebcamStatus)
			r.Get("/emotion/current", router.handler.EmotionCurrent)
			r.Get("/playback/current", router.handler.PlaybackCurrent)
			r.Get("/auth/status", router.handler.PlaybackAuthStatus)

			r.With(middleware.Compression).Get("/scores", router.handler.ListScores)
			r.Get("/scores/{trackID}", router.handler.GetScore)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.AccessLog(middleware.DefaultSlowThreshold))
			r.Use(router.chiMiddleware.RateLimitCustom(RateLimitWrite))

			r.Post("/monitor/start", router.handler.MonitorStart)
			r.Post("/monitor/stop", router.handler.MonitorStop)
			r.Post("/playback/mood", router.handler.PlayForMood)
			r.Post("/playback/{action}", router.handler.PlaybackControl)
			r.Post("/scores/{trackID}/events", router.handler.ApplyEvent)
			r.With(router.chiMiddleware.RequireAdminToken()).Delete("/scores", router.handler.ResetScores)
		})
	})

	return r
}
