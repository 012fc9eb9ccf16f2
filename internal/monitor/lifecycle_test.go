// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/playback"
	"github.com/tomtom215/moodscore/internal/sampler"
	"github.com/tomtom215/moodscore/internal/scoring"
)

func fastConfig() Config {
	return Config{TickInterval: 5 * time.Millisecond, TrackNeutral: true}
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for o.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %s, want %s", o.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitForTicks(t *testing.T, o *Orchestrator, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for o.Status().Ticks < n {
		if time.Now().After(deadline) {
			t.Fatalf("ticks = %d, want >= %d", o.Status().Ticks, n)
		}
		time.Sleep(time.Millisecond)
	}
}

func stopNow(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStart_MissingCredentials(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0))
	h.orch.deps.Poller = nil

	if err := h.orch.Start(context.Background()); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("err = %v, want ErrMissingCredentials", err)
	}
	if h.orch.State() != Stopped {
		t.Errorf("state = %s, want stopped", h.orch.State())
	}
	if h.sampler.starts.Load() != 0 {
		t.Error("sampler started despite startup failure")
	}
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return scoring.ErrStoreUnavailable }

func TestStart_StoreUnreachable(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0))
	h.orch.deps.Store = downStore{}

	err := h.orch.Start(context.Background())
	if !errors.Is(err, ErrStoreUnreachable) || !errors.Is(err, scoring.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnreachable wrapping ErrStoreUnavailable", err)
	}
	if st := h.orch.Status(); st.State != Stopped || st.LastError == "" {
		t.Errorf("status = %+v", st)
	}
}

func TestStart_CameraFailureKeepsSkipDetection(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0), playing("T2", time.Second))
	h.sampler.startErr = sampler.ErrDeviceUnavailable

	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stopNow(t, h.orch)

	if st := h.orch.Status(); st.State != Running || st.SamplerActive {
		t.Errorf("status = %+v, want running without sampler", st)
	}
	waitForTicks(t, h.orch, 2)
	assertCounts(t, h.record(t, "T2"), -1, map[models.Category]int64{models.Skipped: 1})
}

func TestStart_Idempotent(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.orch.Start(ctx); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
	}
	if h.orch.State() != Running {
		t.Fatalf("state = %s", h.orch.State())
	}
	if n := h.sampler.starts.Load(); n != 1 {
		t.Errorf("sampler started %d times, want 1", n)
	}
	stopNow(t, h.orch)
}

func TestStart_ConcurrentCallersStartOneLoop(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0))
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.orch.Start(context.Background())
		}()
	}
	wg.Wait()
	defer stopNow(t, h.orch)

	if n := h.sampler.starts.Load(); n != 1 {
		t.Errorf("sampler started %d times, want 1", n)
	}
}

func TestStop_Idempotent(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0))

	// Stopping a never-started orchestrator is fine.
	stopNow(t, h.orch)

	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForTicks(t, h.orch, 1)

	stopNow(t, h.orch)
	stopNow(t, h.orch)
	if h.orch.State() != Stopped {
		t.Errorf("state = %s, want stopped", h.orch.State())
	}
	if h.sampler.stops.Load() != 1 || h.sampler.Active() {
		t.Errorf("sampler stops = %d active = %v", h.sampler.stops.Load(), h.sampler.Active())
	}

	ticks := h.orch.Status().Ticks
	time.Sleep(30 * time.Millisecond)
	if got := h.orch.Status().Ticks; got != ticks {
		t.Errorf("ticks advanced after stop: %d -> %d", ticks, got)
	}
}

func TestRestartAfterStop(t *testing.T) {
	h := newHarness(t, fastConfig(), playing("T1", 0))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.orch.Start(ctx); err != nil {
			t.Fatalf("Start #%d: %v", i, err)
		}
		waitForState(t, h.orch, Running)
		stopNow(t, h.orch)
	}
	if h.sampler.starts.Load() != 2 || h.sampler.stops.Load() != 2 {
		t.Errorf("starts = %d stops = %d", h.sampler.starts.Load(), h.sampler.stops.Load())
	}
}

// blockingPoller parks inside Poll until released, standing in for a hung
// playback call.
type blockingPoller struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	polls   atomic.Int32
}

func (p *blockingPoller) Poll(context.Context) playback.Observation {
	p.polls.Add(1)
	p.once.Do(func() { close(p.entered) })
	<-p.release
	return playback.Observation{}
}

func (p *blockingPoller) Reset() {}

// Stop cannot interrupt a tick already in flight; its latency is bounded by
// the slowest call inside that tick.
func TestStop_BoundedByInFlightTick(t *testing.T) {
	h := newHarness(t, fastConfig(), nil)
	poller := &blockingPoller{entered: make(chan struct{}), release: make(chan struct{})}
	h.orch.deps.Poller = poller

	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-poller.entered

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := h.orch.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop err = %v, want DeadlineExceeded while tick is blocked", err)
	}
	if h.orch.State() != StopRequested {
		t.Fatalf("state = %s, want stop_requested", h.orch.State())
	}

	close(poller.release)
	waitForState(t, h.orch, Stopped)
	if n := poller.polls.Load(); n != 1 {
		t.Errorf("polls = %d, want no tick after the stop request", n)
	}

	// A fresh Start after the drained stop works normally.
	h.orch.deps.Poller = playback.NewPoller(h.client, 10*time.Second)
	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	stopNow(t, h.orch)
}

func TestSleep_AddsJitter(t *testing.T) {
	cfg := fastConfig()
	cfg.TickJitter = 40 * time.Millisecond
	h := newHarness(t, cfg, nil)

	var asked atomic.Int64
	h.orch.jitter = func(max time.Duration) time.Duration {
		asked.Store(int64(max))
		return 0
	}

	stop := make(chan struct{})
	if !h.orch.sleep(stop) {
		t.Fatal("sleep reported stop")
	}
	if time.Duration(asked.Load()) != cfg.TickJitter {
		t.Errorf("jitter bound = %v, want %v", time.Duration(asked.Load()), cfg.TickJitter)
	}

	close(stop)
	if h.orch.sleep(stop) {
		t.Error("sleep ignored stop")
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{
		Stopped: "stopped", Starting: "starting", Running: "running",
		StopRequested: "stop_requested", State(42): "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d = %q, want %q", s, s.String(), want)
		}
	}
}
