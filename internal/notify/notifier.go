// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package notify wakes long-lived listeners when scores change.
//
// A Notifier is not an event log. Each wake-up is delivered to the listeners
// that were waiting when it fired; a listener that starts waiting afterwards
// sees only the next one. Signals arriving within the debounce window are
// coalesced into a single wake-up carrying the latest event, except that a
// reset anywhere in the window makes the whole wake-up a reset.
package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

// Kind labels a wake-up.
type Kind string

const (
	KindScoreChanged Kind = "score_changed"
	KindReset        Kind = "scores_reset"
)

// Event is what a listener receives.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	// TrackID of the most recent change in the window, if any.
	TrackID string `json:"track_id,omitempty"`
	// Coalesced is the number of signals folded into this wake-up.
	Coalesced int    `json:"coalesced"`
	Sequence  uint64 `json:"sequence"`
}

// generation is closed exactly once; event is written before the close.
type generation struct {
	done  chan struct{}
	event Event
}

// Notifier implements the change notifier. The zero value is not usable;
// use New.
type Notifier struct {
	debounce time.Duration
	now      func() time.Time

	mu      sync.Mutex
	current *generation
	pending *Event
	timer   *time.Timer
	seq     uint64
	closed  bool

	waiters atomic.Int64
}

// New returns a Notifier that coalesces signals within debounce. A zero
// debounce wakes listeners on every signal.
func New(debounce time.Duration) *Notifier {
	if debounce < 0 {
		debounce = 0
	}
	return &Notifier{
		debounce: debounce,
		now:      time.Now,
		current:  &generation{done: make(chan struct{})},
	}
}

// Signal marks that an update happened.
func (n *Notifier) Signal(kind Kind, trackID string) {
	metrics.NotifierSignals.Inc()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}

	if n.pending == nil {
		n.pending = &Event{}
	}
	if n.pending.Kind != KindReset {
		n.pending.Kind = kind
	}
	if trackID != "" {
		n.pending.TrackID = trackID
	}
	n.pending.Coalesced++

	if n.debounce == 0 {
		n.fireLocked()
		return
	}
	if n.timer == nil {
		n.timer = time.AfterFunc(n.debounce, n.fire)
	}
}

// ScoreChanged lets a Notifier be registered as a scoring.ChangeSink.
func (n *Notifier) ScoreChanged(change models.ScoreChange) {
	n.Signal(KindScoreChanged, change.TrackID)
}

func (n *Notifier) fire() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.timer = nil
	if n.closed || n.pending == nil {
		return
	}
	n.fireLocked()
}

func (n *Notifier) fireLocked() {
	n.seq++
	ev := *n.pending
	ev.Timestamp = n.now()
	ev.Sequence = n.seq
	n.pending = nil

	gen := n.current
	gen.event = ev
	n.current = &generation{done: make(chan struct{})}
	close(gen.done)

	metrics.NotifierWakeups.Inc()
}

// Wait blocks until the next wake-up, timeout or ctx cancellation. It
// reports false when no wake-up arrived. A timeout <= 0 waits on ctx alone.
func (n *Notifier) Wait(ctx context.Context, timeout time.Duration) (Event, bool) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return Event{}, false
	}
	gen := n.current
	n.mu.Unlock()

	n.waiters.Add(1)
	defer n.waiters.Add(-1)

	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	select {
	case <-gen.done:
		if gen.event.Sequence == 0 {
			// Closed by Close rather than a wake-up.
			return Event{}, false
		}
		return gen.event, true
	case <-expired:
		return Event{}, false
	case <-ctx.Done():
		return Event{}, false
	}
}

// Sequence returns the number of wake-ups delivered so far.
func (n *Notifier) Sequence() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq
}

// Waiters returns the number of listeners currently blocked in Wait.
func (n *Notifier) Waiters() int {
	return int(n.waiters.Load())
}

// Close releases all waiters without an event. Later signals are ignored.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.pending = nil
	close(n.current.done)
}
