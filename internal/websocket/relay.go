// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package websocket

import (
	"context"
	"time"

	"github.com/tomtom215/moodscore/internal/notify"
)

// Waiter is the part of notify.Notifier the relay needs.
type Waiter interface {
	Wait(ctx context.Context, timeout time.Duration) (notify.Event, bool)
}

// Relay forwards every notifier wake-up to the hub's clients.
type Relay struct {
	hub    *Hub
	source Waiter
	// poll bounds each Wait so the loop rechecks ctx.
	poll time.Duration
}

// NewRelay creates a Relay.
func NewRelay(hub *Hub, source Waiter) *Relay {
	return &Relay{hub: hub, source: source, poll: 30 * time.Second}
}

// Serve implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	for {
		ev, ok := r.source.Wait(ctx, r.poll)
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ok {
			continue
		}
		r.hub.Broadcast(messageTypeFor(ev.Kind), ev)
	}
}

func (r *Relay) String() string {
	return "websocket-relay"
}

func messageTypeFor(kind notify.Kind) string {
	if kind == notify.KindReset {
		return MessageTypeScoresReset
	}
	return MessageTypeScoreChanged
}
