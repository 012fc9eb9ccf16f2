// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/moodscore/internal/eventprocessor"
)

func TestNATSServerService_ShutsDownOnCancel(t *testing.T) {
	server, err := eventprocessor.NewEmbeddedServer(eventprocessor.ServerConfig{Host: "127.0.0.1", Port: -1})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	svc := NewNATSServerService(server, 2*time.Second)
	if svc.String() != "nats-server" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	if !server.IsRunning() {
		t.Fatal("server not running")
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}
	if server.IsRunning() {
		t.Error("server still running after shutdown")
	}
}
