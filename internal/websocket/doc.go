// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package websocket pushes score updates to browser clients.

A Hub owns the set of connected clients and fans out broadcasts; each Client
runs a read pump (client pings, close detection) and a write pump (queued
messages, keepalive pings). A Relay waits on the change notifier and turns
each wake-up into a broadcast:

	{"type":"score_changed","data":{"timestamp":"...","kind":"score_changed","track_id":"T2","coalesced":1,"sequence":42}}

Clients that fall behind by more than their send buffer are disconnected
rather than slowing the hub. Reconnecting clients should re-read
/api/v1/scores; missed wake-ups are not replayed.

Hub, Relay and the HTTP upgrade handler are wired by cmd/server; the hub and
relay run under the supervisor tree.
*/
package websocket
