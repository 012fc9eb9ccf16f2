// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package main is the entry point for the Moodscore server.

Moodscore watches a webcam and a Spotify player at the same time. Every
tick it pairs the listener's current facial emotion with the track that is
playing and folds the reading into that track's score; skipping a track
early counts against the track that replaced it. Scores are served over a
small JSON API and pushed to UIs through long-poll and WebSocket.

# Application Architecture

	RootSupervisor ("moodscore")
	├── DataSupervisor ("data-layer")
	│   └── Badger value-log GC (store.driver=badger)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── Embedded NATS server (nats.embedded=true)
	│   ├── Event forwarder (score changes to Watermill)
	│   ├── WebSocket hub
	│   └── Notifier relay (wake-ups to the hub)
	├── MonitoringSupervisor ("monitoring-layer")
	│   └── Monitor autostart (monitor.auto_start=true)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog with JSON/console output
 3. Score store: Badger (default), DuckDB or in-memory
 4. Change notifier and score event pipeline
 5. Score aggregator with the notifier and forwarder as change sinks
 6. Sampler, vision clients, Spotify client and orchestrator
 7. HTTP API, then the supervisor tree

# Configuration

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	HTTP_PORT=8080
	LOG_LEVEL=info                 # trace, debug, info, warn, error
	LOG_FORMAT=json                # json or console

	SPOTIFY_CLIENT_ID=<id>
	SPOTIFY_CLIENT_SECRET=<secret>
	SPOTIFY_REFRESH_TOKEN=<token>

	VISION_FRAME_URL=http://127.0.0.1:8090/cameras/{index}/snapshot
	VISION_CLASSIFIER_URL=http://127.0.0.1:8091/v1/classify
	CAMERA_INDEX=0

	STORE_DRIVER=badger            # badger, duckdb or memory
	STORE_PATH=/data/moodscore

	MONITOR_AUTO_START=false
	MONITOR_TICK_INTERVAL=5s
	SKIP_THRESHOLD=10s

	NATS_ENABLED=false
	NATS_EMBEDDED=false

	ADMIN_TOKEN=<token>            # enables DELETE /api/v1/scores

# Signal Handling

On SIGINT or SIGTERM the supervisor tree is canceled: the HTTP server
drains, the forwarder and hub stop, then the monitor is stopped, the
notifier releases waiting long-polls and the store is closed.
*/
package main
