// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

type waitResult struct {
	event Event
	ok    bool
}

// startWaiters launches k listeners and returns once all are blocked.
func startWaiters(t *testing.T, n *Notifier, k int, timeout time.Duration) <-chan waitResult {
	t.Helper()
	base := n.Waiters()
	results := make(chan waitResult, k)
	for i := 0; i < k; i++ {
		go func() {
			ev, ok := n.Wait(context.Background(), timeout)
			results <- waitResult{ev, ok}
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for n.Waiters() < base+k {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d waiters started", n.Waiters()-base, k)
		}
		time.Sleep(time.Millisecond)
	}
	return results
}

func TestNotifier_WakesAllWaiters(t *testing.T) {
	n := New(0)
	results := startWaiters(t, n, 3, 5*time.Second)

	n.Signal(KindScoreChanged, "T1")

	for i := 0; i < 3; i++ {
		r := <-results
		if !r.ok {
			t.Fatalf("waiter %d timed out", i)
		}
		if r.event.Kind != KindScoreChanged || r.event.TrackID != "T1" || r.event.Sequence != 1 {
			t.Errorf("waiter %d got %+v", i, r.event)
		}
		if r.event.Timestamp.IsZero() {
			t.Errorf("waiter %d got zero timestamp", i)
		}
	}
}

func TestNotifier_SignalsAreNotQueued(t *testing.T) {
	n := New(0)
	n.Signal(KindScoreChanged, "T1")
	n.Signal(KindScoreChanged, "T2")

	if ev, ok := n.Wait(context.Background(), 30*time.Millisecond); ok {
		t.Fatalf("late listener received %+v, want timeout", ev)
	}
	if got := n.Sequence(); got != 2 {
		t.Errorf("Sequence = %d, want 2", got)
	}
}

func TestNotifier_DebounceCoalesces(t *testing.T) {
	n := New(50 * time.Millisecond)
	wakeupsBefore := testutil.ToFloat64(metrics.NotifierWakeups)
	signalsBefore := testutil.ToFloat64(metrics.NotifierSignals)

	results := startWaiters(t, n, 1, 5*time.Second)
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		n.Signal(KindScoreChanged, id)
	}

	r := <-results
	if !r.ok {
		t.Fatal("waiter timed out")
	}
	if r.event.Coalesced != 5 || r.event.TrackID != "E" || r.event.Sequence != 1 {
		t.Errorf("event = %+v, want 5 coalesced ending at E", r.event)
	}

	if got := testutil.ToFloat64(metrics.NotifierSignals) - signalsBefore; got != 5 {
		t.Errorf("signals metric delta = %v, want 5", got)
	}
	if got := testutil.ToFloat64(metrics.NotifierWakeups) - wakeupsBefore; got != 1 {
		t.Errorf("wakeups metric delta = %v, want 1", got)
	}

	// The window is spent; nothing else is pending.
	if ev, ok := n.Wait(context.Background(), 100*time.Millisecond); ok {
		t.Errorf("unexpected second wake-up %+v", ev)
	}
}

func TestNotifier_ResetWinsWithinWindow(t *testing.T) {
	tests := []struct {
		name    string
		signals []Kind
	}{
		{"reset then change", []Kind{KindReset, KindScoreChanged}},
		{"change then reset", []Kind{KindScoreChanged, KindReset}},
		{"reset between changes", []Kind{KindScoreChanged, KindReset, KindScoreChanged}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := New(30 * time.Millisecond)
			defer n.Close()

			results := startWaiters(t, n, 1, 5*time.Second)
			for _, kind := range tt.signals {
				trackID := ""
				if kind == KindScoreChanged {
					trackID = "T1"
				}
				n.Signal(kind, trackID)
			}

			r := <-results
			if !r.ok {
				t.Fatal("waiter timed out")
			}
			if r.event.Kind != KindReset || r.event.Coalesced != len(tt.signals) {
				t.Errorf("event = %+v, want a reset covering %d signals", r.event, len(tt.signals))
			}

			// The next window starts clean.
			results = startWaiters(t, n, 1, 5*time.Second)
			n.Signal(KindScoreChanged, "T2")
			if r := <-results; !r.ok || r.event.Kind != KindScoreChanged || r.event.TrackID != "T2" {
				t.Errorf("next window = %+v ok=%v", r.event, r.ok)
			}
		})
	}
}

func TestNotifier_SeparateWindowsWakeSeparately(t *testing.T) {
	n := New(10 * time.Millisecond)

	for i, id := range []string{"A", "B"} {
		results := startWaiters(t, n, 1, 5*time.Second)
		n.Signal(KindScoreChanged, id)
		r := <-results
		if !r.ok || r.event.TrackID != id || r.event.Sequence != uint64(i+1) {
			t.Fatalf("window %d: %+v ok=%v", i, r.event, r.ok)
		}
	}
}

func TestNotifier_WaitHonorsContext(t *testing.T) {
	n := New(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := n.Wait(ctx, 0)
		done <- ok
	}()
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("Wait reported a wake-up after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestNotifier_CloseReleasesWaiters(t *testing.T) {
	n := New(time.Hour)
	results := startWaiters(t, n, 2, 0)

	n.Signal(KindScoreChanged, "pending")
	n.Close()
	n.Close()

	for i := 0; i < 2; i++ {
		select {
		case r := <-results:
			if r.ok {
				t.Errorf("waiter %d got %+v after Close", i, r.event)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Close did not release waiters")
		}
	}

	n.Signal(KindScoreChanged, "ignored")
	if _, ok := n.Wait(context.Background(), time.Second); ok {
		t.Error("Wait on closed notifier reported a wake-up")
	}
}

func TestNotifier_ScoreChangedSink(t *testing.T) {
	n := New(0)
	results := startWaiters(t, n, 1, 5*time.Second)

	n.ScoreChanged(models.ScoreChange{TrackID: "T9", Category: models.Happy})

	r := <-results
	if !r.ok || r.event.Kind != KindScoreChanged || r.event.TrackID != "T9" {
		t.Errorf("got %+v ok=%v", r.event, r.ok)
	}
}

func TestNotifier_ConcurrentSignals(t *testing.T) {
	n := New(5 * time.Millisecond)
	stop := make(chan struct{})
	var listeners sync.WaitGroup
	for i := 0; i < 4; i++ {
		listeners.Add(1)
		go func() {
			defer listeners.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				n.Wait(context.Background(), 10*time.Millisecond)
			}
		}()
	}

	var signalers sync.WaitGroup
	for i := 0; i < 8; i++ {
		signalers.Add(1)
		go func() {
			defer signalers.Done()
			for j := 0; j < 50; j++ {
				n.Signal(KindScoreChanged, "T")
			}
		}()
	}
	signalers.Wait()
	time.Sleep(20 * time.Millisecond)
	close(stop)
	listeners.Wait()

	if n.Sequence() == 0 {
		t.Error("no wake-ups fired")
	}
}
