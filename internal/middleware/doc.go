// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package middleware provides chi-compatible HTTP middleware shared by the API
router:

  - RequestID: X-Request-ID propagation plus request and correlation IDs in
    the logging context
  - AccessLog: one zerolog line per request, WARN above the slow threshold
  - PrometheusMetrics: request counts and latency labelled by route pattern
  - Compression: gzip for clients that accept it

All wrappers use chi's WrapResponseWriter so WebSocket upgrades (Hijack)
and long-poll flushes keep working underneath them.
*/
package middleware
