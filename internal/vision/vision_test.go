// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package vision

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/sampler"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestFrameClient_OpenAndRead(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cameras/2/snapshot" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	client := NewFrameClient(srv.URL+"/cameras/{index}/snapshot", time.Second)
	dev, err := client.Open(context.Background(), 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	frame, err := dev.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if string(frame.Data) != "PNGDATA" || frame.ContentType != "image/png" {
		t.Errorf("frame = %q (%s)", frame.Data, frame.ContentType)
	}
	if hits.Load() != 2 {
		t.Errorf("expected probe plus one read, got %d requests", hits.Load())
	}

	if err := dev.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := dev.ReadFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("read after release: %v", err)
	}
}

func TestFrameClient_OpenFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }, ErrNoFrame},
		{"empty body", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }, ErrNoFrame},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "camera busy", http.StatusInternalServerError)
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewFrameClient(srv.URL, time.Second).Open(context.Background(), 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameClient_NoURL(t *testing.T) {
	if _, err := NewFrameClient("", time.Second).Open(context.Background(), 0); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestClassifierClient(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    models.Category
		wantErr error
	}{
		{"happy", http.StatusOK, `{"dominant_emotion":"happy","scores":{"happy":0.9}}`, models.Happy, nil},
		{"upper case", http.StatusOK, `{"dominant_emotion":" Disgust "}`, models.Disgust, nil},
		{"no face flag", http.StatusOK, `{"dominant_emotion":"neutral","face_detected":false}`, "", ErrNoFace},
		{"no face status", http.StatusUnprocessableEntity, `{}`, "", ErrNoFace},
		{"unknown label", http.StatusOK, `{"dominant_emotion":"contempt"}`, "", models.ErrUnknownCategory},
		{"skipped is not an emotion", http.StatusOK, `{"dominant_emotion":"skipped"}`, "", models.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s", r.Method)
				}
				if ct := r.Header.Get("Content-Type"); ct != "image/jpeg" {
					t.Errorf("content type = %s", ct)
				}
				body, _ := io.ReadAll(r.Body)
				if string(body) != "JPEG" {
					t.Errorf("body = %q", body)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClassifierClient(srv.URL, time.Second)
			got, err := c.Classify(context.Background(), sampler.Frame{Data: []byte("JPEG")})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifierClient_EmptyFrame(t *testing.T) {
	c := NewClassifierClient("http://127.0.0.1:1", time.Second)
	if _, err := c.Classify(context.Background(), sampler.Frame{}); !errors.Is(err, ErrNoFrame) {
		t.Errorf("got %v", err)
	}
}

func TestClassifierClient_NoFaceDoesNotOpenBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClassifierClient(srv.URL, time.Second)
	for i := 0; i < 20; i++ {
		_, _ = c.Classify(context.Background(), sampler.Frame{Data: []byte("x")})
	}
	if c.cb.State() != "closed" {
		t.Errorf("breaker state = %s", c.cb.State())
	}
}
