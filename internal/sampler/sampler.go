// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package sampler keeps a rolling emotion reading from a camera.

The Sampler runs its own capture loop, throttled to the configured capture
rate. Whenever SampleInterval has passed since the last successful
classification it hands the current frame to the Classifier and stores the
result in a mutex-guarded slot. A failed classification leaves the previous
reading in place.

The camera handle is opened by Start and released by the capture loop on
every exit path.
*/
package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

// maxConsecutiveReadErrors is how many failed reads in a row end the loop.
const maxConsecutiveReadErrors = 50

// Config controls capture and classification cadence.
type Config struct {
	CameraIndex    int
	SampleInterval time.Duration
	CaptureRate    float64
	StopTimeout    time.Duration
}

// DefaultConfig returns the standard cadence: classify once a second,
// capture at 30 Hz.
func DefaultConfig() Config {
	return Config{
		SampleInterval: time.Second,
		CaptureRate:    30,
		StopTimeout:    2 * time.Second,
	}
}

// Status is a snapshot of the sampler for status endpoints.
type Status struct {
	Active         bool            `json:"active"`
	CameraIndex    int             `json:"camera_index"`
	Category       models.Category `json:"category,omitempty"`
	HasReading     bool            `json:"has_reading"`
	ReadingAt      *time.Time      `json:"reading_at,omitempty"`
	FramesCaptured int64           `json:"frames_captured"`
	LastError      string          `json:"last_error,omitempty"`
}

// Sampler owns the capture loop and the emotion slot.
type Sampler struct {
	source     FrameSource
	classifier Classifier
	cfg        Config
	now        func() time.Time

	// lifecycle
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	active atomic.Bool

	// emotion slot; held only while copying
	slotMu    sync.Mutex
	latest    models.Category
	hasLatest bool
	latestAt  time.Time
	lastErr   string

	frames atomic.Int64
}

// New creates a stopped Sampler.
func New(source FrameSource, classifier Classifier, cfg Config) *Sampler {
	def := DefaultConfig()
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = def.SampleInterval
	}
	if cfg.CaptureRate <= 0 {
		cfg.CaptureRate = def.CaptureRate
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = def.StopTimeout
	}
	return &Sampler{
		source:     source,
		classifier: classifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Start opens the camera and launches the capture loop. It is a no-op while
// the sampler is active. Any reading from a previous session is discarded.
// A camera that cannot be opened leaves the sampler inactive and returns
// ErrDeviceUnavailable.
func (s *Sampler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Load() {
		return nil
	}

	// A loop left over from a Stop that timed out still holds the device.
	if s.done != nil {
		select {
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Each session starts without a reading.
	s.clearCategory()

	dev, err := s.source.Open(ctx, s.cfg.CameraIndex)
	if err != nil {
		s.setError(err)
		metrics.SamplerActive.Set(0)
		logging.Error().Err(err).Int("camera_index", s.cfg.CameraIndex).Msg("Failed to open camera, sampler inactive")
		return fmt.Errorf("%w: camera %d: %w", ErrDeviceUnavailable, s.cfg.CameraIndex, err)
	}

	if s.cancel != nil {
		s.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.active.Store(true)
	s.setError(nil)
	metrics.SamplerActive.Set(1)

	logging.Info().
		Int("camera_index", s.cfg.CameraIndex).
		Dur("sample_interval", s.cfg.SampleInterval).
		Float64("capture_rate", s.cfg.CaptureRate).
		Msg("Emotion sampler started")

	go s.run(loopCtx, dev, s.done)
	return nil
}

// Stop clears the active flag and waits up to StopTimeout for the capture
// loop to exit. It is safe to call when already stopped.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.active.Store(false)
	s.cancel()
	s.cancel = nil
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		logging.Info().Msg("Emotion sampler stopped")
	case <-time.After(s.cfg.StopTimeout):
		logging.Warn().Dur("timeout", s.cfg.StopTimeout).Msg("Emotion sampler did not stop in time, capture loop will exit after its current read")
	}
}

// Active reports whether the capture loop is running.
func (s *Sampler) Active() bool {
	return s.active.Load()
}

// CurrentCategory returns the latest successful reading. ok is false until
// the first classification succeeds.
func (s *Sampler) CurrentCategory() (c models.Category, ok bool) {
	s.slotMu.Lock()
	defer s.slotMu.Unlock()
	return s.latest, s.hasLatest
}

// Status returns a snapshot for status endpoints.
func (s *Sampler) Status() Status {
	st := Status{
		Active:         s.active.Load(),
		CameraIndex:    s.cfg.CameraIndex,
		FramesCaptured: s.frames.Load(),
	}
	s.slotMu.Lock()
	st.Category = s.latest
	st.HasReading = s.hasLatest
	if s.hasLatest {
		at := s.latestAt
		st.ReadingAt = &at
	}
	st.LastError = s.lastErr
	s.slotMu.Unlock()
	return st
}

func (s *Sampler) setCategory(c models.Category, at time.Time) {
	s.slotMu.Lock()
	s.latest = c
	s.hasLatest = true
	s.latestAt = at
	s.slotMu.Unlock()
}

func (s *Sampler) clearCategory() {
	s.slotMu.Lock()
	s.latest = ""
	s.hasLatest = false
	s.latestAt = time.Time{}
	s.slotMu.Unlock()
}

func (s *Sampler) setError(err error) {
	s.slotMu.Lock()
	if err == nil {
		s.lastErr = ""
	} else {
		s.lastErr = err.Error()
	}
	s.slotMu.Unlock()
}

func (s *Sampler) run(ctx context.Context, dev Device, done chan struct{}) {
	defer close(done)
	defer func() {
		s.active.Store(false)
		metrics.SamplerActive.Set(0)
	}()
	defer func() {
		if err := dev.Release(); err != nil {
			logging.Warn().Err(err).Msg("Failed to release camera")
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			s.setError(fmt.Errorf("capture loop panic: %v", r))
			logging.Error().Interface("panic", r).Msg("Emotion sampler panicked")
		}
	}()

	limiter := rate.NewLimiter(rate.Limit(s.cfg.CaptureRate), 1)
	var lastClassified time.Time
	readErrors := 0

	for s.active.Load() {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		frame, err := dev.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				s.setError(fmt.Errorf("%w: end of stream", ErrDeviceUnavailable))
				logging.Error().Msg("Camera stream ended, sampler inactive")
				return
			}
			readErrors++
			if readErrors >= maxConsecutiveReadErrors {
				s.setError(fmt.Errorf("%w: %w", ErrDeviceUnavailable, err))
				logging.Error().Err(err).Int("consecutive_errors", readErrors).Msg("Camera read failing, sampler inactive")
				return
			}
			logging.Debug().Err(err).Msg("Frame read failed")
			continue
		}
		readErrors = 0
		s.frames.Add(1)
		metrics.SamplerFramesCaptured.Inc()

		now := s.now()
		if !lastClassified.IsZero() && now.Sub(lastClassified) < s.cfg.SampleInterval {
			continue
		}

		c, err := s.classifier.Classify(ctx, frame)
		metrics.RecordClassification(err)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn().Err(err).Str("component", "sampler").Msg("Classification failed, keeping previous reading")
			continue
		}
		if !c.IsEmotion() {
			logging.Warn().Str("category", string(c)).Msg("Classifier returned a non-emotion category")
			continue
		}
		lastClassified = now
		s.setCategory(c, now)
	}
}
