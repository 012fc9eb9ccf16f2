// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/moodscore/internal/notify"
)

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

func TestRelay_ForwardsWakeups(t *testing.T) {
	hub := startHub(t)
	c := createTestClient(hub, 8)
	hub.Register <- c
	waitForClients(t, hub, 1)

	n := notify.New(0)
	relay := NewRelay(hub, n)
	relay.poll = 20 * time.Millisecond

	ctx, cancel := contextWithCancel()
	errCh := make(chan error, 1)
	go func() { errCh <- relay.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for n.Waiters() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("relay never waited on the notifier")
		}
		time.Sleep(time.Millisecond)
	}

	n.Signal(notify.KindScoreChanged, "T1")
	select {
	case msg := <-c.send:
		ev, ok := msg.Data.(notify.Event)
		if msg.Type != MessageTypeScoreChanged || !ok || ev.TrackID != "T1" {
			t.Errorf("got %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("wake-up was not forwarded")
	}

	for n.Waiters() == 0 {
		time.Sleep(time.Millisecond)
	}
	n.Signal(notify.KindReset, "")
	select {
	case msg := <-c.send:
		if msg.Type != MessageTypeScoresReset {
			t.Errorf("type = %q, want scores_reset", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reset was not forwarded")
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
	if relay.String() != "websocket-relay" {
		t.Errorf("String = %q", relay.String())
	}
}
