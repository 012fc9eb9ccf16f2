// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package api is the HTTP surface of Moodscore.

Routes are served by a chi router (see Router.SetupChi):

	GET    /api/v1/health                    store ping and monitor state
	POST   /api/v1/monitor/start             start the correlation loop
	POST   /api/v1/monitor/stop              stop it (idempotent)
	GET    /api/v1/monitor/status            loop counters and state
	GET    /api/v1/webcam/status             sampler status
	GET    /api/v1/emotion/current           latest emotion reading
	GET    /api/v1/playback/current          currently playing track
	POST   /api/v1/playback/{action}         play, pause, next, previous
	POST   /api/v1/playback/mood             search "<mood> <keyword>" and play the hits
	GET    /api/v1/auth/status               playback credential check
	GET    /api/v1/scores                    leaderboard, ?limit=
	GET    /api/v1/scores/{trackID}          one record
	POST   /api/v1/scores/{trackID}/events   manual delta, body {"category":"happy"}
	DELETE /api/v1/scores                    drop every record (admin token)
	GET    /api/v1/updates                   long-poll for the next change, ?timeout=
	GET    /api/v1/ws                        WebSocket push of score changes
	GET    /metrics                          Prometheus

Every JSON response uses the models.APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
	{"status":"error","error":{"code":"NOT_FOUND","message":"..."},"metadata":{...}}

/api/v1/updates answers 204 No Content when nothing changed before the
timeout, so clients can loop on it without parsing an empty envelope.
*/
package api
