// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package monitor runs the correlation loop that ties emotion readings and
// skip detection to track scores.
//
// One Orchestrator owns one sampler, one poller and the loop goroutine.
// Start and Stop are idempotent and serialized; the stop signal is observed
// at the top of every tick and during the sleep between ticks, never in the
// middle of one, so stop latency is bounded by the slowest call inside the
// tick in flight.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/playback"
)

var (
	// ErrMissingCredentials means no playback client could be built.
	ErrMissingCredentials = errors.New("playback credentials are not configured")
	// ErrStoreUnreachable means the score store failed its startup ping.
	ErrStoreUnreachable = errors.New("score store is unreachable")
)

// EmotionSource is the sampler as seen by the loop.
type EmotionSource interface {
	Start(ctx context.Context) error
	Stop()
	Active() bool
	CurrentCategory() (models.Category, bool)
}

// TrackPoller is the playback poller as seen by the loop.
type TrackPoller interface {
	Poll(ctx context.Context) playback.Observation
	Reset()
}

// DeltaApplier records score deltas.
type DeltaApplier interface {
	ApplyDelta(ctx context.Context, trackID string, c models.Category, source string) (*models.ScoreChange, error)
}

// Pinger checks store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config tunes the loop.
type Config struct {
	TickInterval time.Duration
	// TickJitter adds uniform [0, TickJitter) to each sleep.
	TickJitter time.Duration
	// TrackNeutral applies zero-delta readings so their counters grow.
	TrackNeutral bool
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{TickInterval: 5 * time.Second, TrackNeutral: true}
}

// Deps are the orchestrator's collaborators. Poller is nil when playback
// credentials are missing; Start then fails with ErrMissingCredentials.
type Deps struct {
	Sampler EmotionSource
	Poller  TrackPoller
	Scores  DeltaApplier
	Store   Pinger
}

// Status is a snapshot for the API.
type Status struct {
	State         State           `json:"state"`
	SamplerActive bool            `json:"sampler_active"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	LastTickAt    *time.Time      `json:"last_tick_at,omitempty"`
	LastTrackID   string          `json:"last_track_id,omitempty"`
	LastCategory  models.Category `json:"last_category,omitempty"`
	Ticks         uint64          `json:"ticks"`
	FailedTicks   uint64          `json:"failed_ticks"`
	Skips         uint64          `json:"skips"`
	LastError     string          `json:"last_error,omitempty"`
}

// Orchestrator implements the monitoring lifecycle.
type Orchestrator struct {
	cfg  Config
	deps Deps

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	state     atomic.Int32
	stop      chan struct{}
	done      chan struct{}

	ticks  atomic.Uint64
	failed atomic.Uint64
	skips  atomic.Uint64

	statusMu    sync.Mutex
	startedAt   time.Time
	lastTickAt  time.Time
	lastTrackID string
	lastCat     models.Category
	lastErr     string

	now    func() time.Time
	jitter func(time.Duration) time.Duration
}

// New creates a stopped Orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		now:  time.Now,
		jitter: func(max time.Duration) time.Duration {
			return rand.N(max)
		},
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	metrics.MonitorState.Set(float64(s))
}

// Start begins monitoring. It is a no-op while Running. Startup failures
// (missing credentials, unreachable store) leave the orchestrator Stopped
// and are returned; a camera failure is logged and monitoring continues
// with skip detection only.
//
// ctx bounds startup only; the loop keeps running after ctx ends.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	switch o.State() {
	case Running, Starting:
		return nil
	case StopRequested:
		// A timed-out Stop left the previous loop finishing its tick.
		select {
		case <-o.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	o.setState(Starting)
	if err := o.checkStartup(ctx); err != nil {
		o.setState(Stopped)
		o.recordError(err)
		logging.Error().Err(err).Msg("Monitoring failed to start")
		return err
	}

	base := context.WithoutCancel(ctx)
	if err := o.deps.Sampler.Start(base); err != nil {
		o.recordError(err)
		logging.Error().Err(err).Msg("Emotion sampler unavailable, monitoring continues without emotion deltas")
	}

	o.deps.Poller.Reset()
	o.stop = make(chan struct{})
	o.done = make(chan struct{})

	o.statusMu.Lock()
	o.startedAt = o.now()
	o.statusMu.Unlock()

	o.setState(Running)
	go o.run(base, o.stop, o.done)

	logging.Info().
		Dur("tick_interval", o.cfg.TickInterval).
		Dur("tick_jitter", o.cfg.TickJitter).
		Bool("sampler_active", o.deps.Sampler.Active()).
		Msg("Monitoring started")
	return nil
}

func (o *Orchestrator) checkStartup(ctx context.Context) error {
	if o.deps.Poller == nil {
		return ErrMissingCredentials
	}
	if o.deps.Store == nil {
		return ErrStoreUnreachable
	}
	if err := o.deps.Store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnreachable, err)
	}
	return nil
}

// Stop requests the loop to exit and waits for it, bounded by ctx. It is
// idempotent. When ctx ends first the state stays StopRequested and the
// loop finalizes to Stopped once its in-flight tick returns.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.lifecycle.Lock()
	defer o.lifecycle.Unlock()

	switch o.State() {
	case Stopped:
		return nil
	case Running:
		o.setState(StopRequested)
		close(o.stop)
		logging.Info().Msg("Monitoring stop requested")
	}

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns a snapshot.
func (o *Orchestrator) Status() Status {
	st := Status{
		State:         o.State(),
		SamplerActive: o.deps.Sampler != nil && o.deps.Sampler.Active(),
		Ticks:         o.ticks.Load(),
		FailedTicks:   o.failed.Load(),
		Skips:         o.skips.Load(),
	}
	o.statusMu.Lock()
	defer o.statusMu.Unlock()
	if !o.startedAt.IsZero() {
		at := o.startedAt
		st.StartedAt = &at
	}
	if !o.lastTickAt.IsZero() {
		at := o.lastTickAt
		st.LastTickAt = &at
	}
	st.LastTrackID = o.lastTrackID
	st.LastCategory = o.lastCat
	st.LastError = o.lastErr
	return st
}

func (o *Orchestrator) recordError(err error) {
	o.statusMu.Lock()
	o.lastErr = err.Error()
	o.statusMu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		o.deps.Sampler.Stop()
		o.setState(Stopped)
		logging.Info().Uint64("ticks", o.ticks.Load()).Msg("Monitoring stopped")
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		o.tick(ctx)

		if !o.sleep(stop) {
			return
		}
	}
}

// sleep waits one interval plus jitter. It reports false if stop fired.
func (o *Orchestrator) sleep(stop <-chan struct{}) bool {
	d := o.cfg.TickInterval
	if o.cfg.TickJitter > 0 {
		d += o.jitter(o.cfg.TickJitter)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stop:
		return false
	case <-timer.C:
		return true
	}
}
