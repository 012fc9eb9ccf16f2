// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	ws "github.com/tomtom215/moodscore/internal/websocket"
)

func TestRouter_UnknownRouteIsJSON(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/nope", ""), http.StatusNotFound, ErrCodeNotFound)

	rec := env.do(t, http.MethodPut, "/api/v1/scores", "")
	expectError(t, rec, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED")
}

func TestRouter_Metrics(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/v1/scores", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `api_requests_total{endpoint="/api/v1/scores"`) {
		t.Error("route-pattern request counter missing from /metrics")
	}
}

func TestRouter_RateLimit(t *testing.T) {
	env := newTestEnv(t, withRateLimit(2))
	for i := 0; i < 2; i++ {
		if rec := env.do(t, http.MethodGet, "/api/v1/monitor/status", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	expectError(t, env.do(t, http.MethodGet, "/api/v1/monitor/status", ""), http.StatusTooManyRequests, ErrCodeTooManyRequests)

	// Health has its own budget.
	if rec := env.do(t, http.MethodGet, "/api/v1/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"http://ui.local", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			rec := env.do(t, http.MethodOptions, "/api/v1/scores", "",
				"Origin", tt.origin,
				"Access-Control-Request-Method", http.MethodGet)
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allowed && got != tt.origin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.origin)
			}
			if !tt.allowed && got != "" {
				t.Errorf("Access-Control-Allow-Origin = %q for a foreign origin", got)
			}
		})
	}
}

func TestRouter_ScoresCompressed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/scores", "", "Accept-Encoding", "gzip")
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Errorf("Content-Encoding = %q", rec.Header().Get("Content-Encoding"))
	}
}

func dialWS(t *testing.T, srv *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestWebSocket_ReceivesBroadcast(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = env.hub.RunWithContext(ctx) }()

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	conn, _, err := dialWS(t, srv, "http://ui.local")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.GetClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Starting the monitor pushes its state to every client.
	if rec := env.do(t, http.MethodPost, "/api/v1/monitor/start", ""); rec.Code != http.StatusOK {
		t.Fatalf("start status = %d", rec.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != ws.MessageTypeMonitorState {
		t.Errorf("type = %q", msg.Type)
	}
	if !strings.Contains(string(msg.Data), `"state":"running"`) {
		t.Errorf("data = %s", msg.Data)
	}
}

func TestWebSocket_Origins(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = env.hub.RunWithContext(ctx) }()

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed origin", "http://ui.local", true},
		{"no origin header", "", true},
		{"foreign origin", "http://evil.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, resp, err := dialWS(t, srv, tt.origin)
			if tt.ok {
				if err != nil {
					t.Fatalf("dial: %v", err)
				}
				conn.Close()
				return
			}
			if err == nil {
				conn.Close()
				t.Fatal("foreign origin was upgraded")
			}
			if resp == nil || resp.StatusCode != http.StatusForbidden {
				t.Errorf("response = %+v, want 403", resp)
			}
		})
	}
}
