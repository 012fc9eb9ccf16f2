// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package eventprocessor publishes score change events through Watermill.
//
// Every successful delta application becomes a ScoreEvent on one subject
// (default "moodscore.scores.changed"). Two transports are supported:
//
//   - In-process GoChannel (default): other components in the same process
//     can subscribe; nothing leaves the process.
//   - NATS core publish, optionally against an embedded nats-server so a
//     single binary can still expose events to external consumers.
//
// # Data Flow
//
//	Aggregator.ApplyDelta
//	        │ ScoreChanged (non-blocking enqueue)
//	        ▼
//	┌──────────────┐   Serve loop    ┌────────────┐
//	│  Forwarder   │ ──────────────► │ Publisher  │ ──► GoChannel | NATS
//	│ (bounded buf)│                 │ (breaker)  │
//	└──────────────┘                 └────────────┘
//
// The forwarder never blocks the scoring path. When its buffer is full the
// event is dropped and counted; subscribers that need every change should
// re-read the store. Delivery is at-most-once.
//
// # Message Format
//
// Payload is the JSON ScoreEvent. Metadata carries "track_id", "category"
// and "source"; the Watermill UUID is the event ID and, on NATS, is also
// sent as Nats-Msg-Id.
package eventprocessor
