// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/monitor"
	"github.com/tomtom215/moodscore/internal/notify"
	"github.com/tomtom215/moodscore/internal/playback"
	"github.com/tomtom215/moodscore/internal/sampler"
	"github.com/tomtom215/moodscore/internal/scoring"
	ws "github.com/tomtom215/moodscore/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// fakeMonitor records calls and returns scripted errors.
type fakeMonitor struct {
	mu       sync.Mutex
	state    monitor.State
	startErr error
	// blockStop makes Stop wait for ctx, like a tick that overruns.
	blockStop bool
	starts    int
	stops     int
}

func (m *fakeMonitor) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.state = monitor.Running
	return nil
}

func (m *fakeMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stops++
	block := m.blockStop
	if block {
		m.state = monitor.StopRequested
	} else {
		m.state = monitor.Stopped
	}
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (m *fakeMonitor) Status() monitor.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return monitor.Status{State: m.state, Ticks: 7}
}

type fakeEmotion struct {
	category models.Category
	has      bool
	active   bool
}

func (e *fakeEmotion) CurrentCategory() (models.Category, bool) { return e.category, e.has }

func (e *fakeEmotion) Status() sampler.Status {
	st := sampler.Status{Active: e.active, Category: e.category, HasReading: e.has}
	if e.has {
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		st.ReadingAt = &at
	}
	return st
}

// fakePlayer implements playback.Client.
type fakePlayer struct {
	mu      sync.Mutex
	track   *models.CurrentTrack
	err     error
	actions []string

	hits      []models.TrackSummary
	searchErr error
	queries   []string
	limits    []int
	played    [][]string
	authErr   error
}

func (p *fakePlayer) CurrentlyPlaying(context.Context) (*models.CurrentTrack, error) {
	return p.track, p.err
}

func (p *fakePlayer) record(action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, action)
	return p.err
}

func (p *fakePlayer) Play(context.Context) error     { return p.record("play") }
func (p *fakePlayer) Pause(context.Context) error    { return p.record("pause") }
func (p *fakePlayer) Next(context.Context) error     { return p.record("next") }
func (p *fakePlayer) Previous(context.Context) error { return p.record("previous") }

func (p *fakePlayer) SearchTracks(_ context.Context, query string, limit int) ([]models.TrackSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	p.limits = append(p.limits, limit)
	return p.hits, p.searchErr
}

func (p *fakePlayer) PlayTracks(_ context.Context, uris []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.played = append(p.played, uris)
	return p.err
}

func (p *fakePlayer) CheckAuth(context.Context) error { return p.authErr }

var _ playback.Client = (*fakePlayer)(nil)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testEnv struct {
	handler  http.Handler
	monitor  *fakeMonitor
	emotion  *fakeEmotion
	player   *fakePlayer
	store    *scoring.MemoryStore
	scores   *scoring.Aggregator
	notifier *notify.Notifier
	hub      *ws.Hub
}

type envOption func(*Dependencies, *HandlerConfig, *ChiMiddlewareConfig)

func withAdminToken(token string) envOption {
	return func(_ *Dependencies, _ *HandlerConfig, mw *ChiMiddlewareConfig) { mw.AdminToken = token }
}

func withRateLimit(n int) envOption {
	return func(_ *Dependencies, _ *HandlerConfig, mw *ChiMiddlewareConfig) {
		mw.RateLimitDisabled = false
		mw.RateLimitRequests = n
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	env := &testEnv{
		monitor:  &fakeMonitor{},
		emotion:  &fakeEmotion{},
		player:   &fakePlayer{},
		store:    scoring.NewMemoryStore(),
		notifier: notify.New(0),
		hub:      ws.NewHub(),
	}
	env.scores = scoring.NewAggregator(env.store, env.notifier)
	t.Cleanup(env.notifier.Close)

	deps := Dependencies{
		Monitor:  env.monitor,
		Emotion:  env.emotion,
		Playback: env.player,
		Scores:   env.scores,
		Store:    env.store,
		Updates:  env.notifier,
		Hub:      env.hub,
	}
	cfg := HandlerConfig{WaitTimeout: 2 * time.Second, StopTimeout: time.Second, AllowedOrigins: []string{"http://ui.local"}}
	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = []string{"http://ui.local"}
	mwCfg.RateLimitDisabled = true
	for _, opt := range opts {
		opt(&deps, &cfg, mwCfg)
	}

	env.handler = NewRouter(NewHandler(deps, cfg), NewChiMiddleware(mwCfg)).SetupChi()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// envelope decodes the response body; data is left raw for the caller.
type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Error    *models.APIError `json:"error"`
	Metadata models.Metadata  `json:"metadata"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v (data %s)", err, env.Data)
		}
	}
	return env
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	env := decode(t, rec, nil)
	if env.Status != "error" || env.Error == nil {
		t.Fatalf("expected error envelope, got %s", rec.Body.String())
	}
	if env.Error.Code != code {
		t.Errorf("error code = %q, want %q", env.Error.Code, code)
	}
}

func withDeps(fn func(*Dependencies)) envOption {
	return func(d *Dependencies, _ *HandlerConfig, _ *ChiMiddlewareConfig) { fn(d) }
}
