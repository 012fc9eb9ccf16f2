// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package docstore

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/scoring"
	"github.com/tomtom215/moodscore/internal/scoring/storetest"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) scoring.Store { return openTestStore(t) })
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(Options{}); err == nil {
		t.Fatal("expected error without path")
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scores")
	ctx := context.Background()

	s, err := Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, _, err := s.AtomicUpsertIncrement(ctx, "T", models.Happy, 1); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(Options{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	stored, err := s.Get(ctx, "T")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	rec := stored.(*models.TrackScoreRecord)
	if rec.TotalScore != 2 || rec.Count(models.Happy) != 2 {
		t.Errorf("after reopen total=%d happy=%d", rec.TotalScore, rec.Count(models.Happy))
	}
}

func TestStore_DecodesRawLegacyDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Shape written by older deployments: no counters, no timestamps.
	raw := []byte(`{"track_id":"old","score":7,"emotion":"sad"}`)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(trackKey("old"), raw)
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	stored, err := s.Get(ctx, "old")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	legacy, ok := stored.(*models.LegacyRecord)
	if !ok {
		t.Fatalf("expected legacy record, got %T", stored)
	}
	if legacy.Score != 7 || legacy.Emotion != "sad" {
		t.Errorf("legacy = %+v", legacy)
	}

	agg := scoring.NewAggregator(s)
	change, err := agg.ApplyDelta(ctx, "old", models.Happy, models.SourceEmotion)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !change.Migrated || change.TotalScore != 8 {
		t.Errorf("change = %+v", change)
	}
}

func TestStore_CurrentDocumentWithPartialCounters(t *testing.T) {
	s := openTestStore(t)
	raw := []byte(`{"track_id":"p","total_score":2,"emotion_counts":{"happy":2}}`)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(trackKey("p"), raw)
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	stored, err := s.Get(context.Background(), "p")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	rec := stored.(*models.TrackScoreRecord)
	if len(rec.EmotionCounts) != len(models.AllCategories) {
		t.Errorf("expected all categories present, got %v", rec.EmotionCounts)
	}
	if rec.Count(models.Happy) != 2 || rec.Count(models.Sad) != 0 {
		t.Errorf("counts = %v", rec.EmotionCounts)
	}
}

func TestStore_ClosedOperations(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	ctx := context.Background()
	if _, err := s.Get(ctx, "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after close: %v", err)
	}
	if _, _, err := s.AtomicUpsertIncrement(ctx, "x", models.Happy, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("upsert after close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, scoring.ErrStoreUnavailable) {
		t.Errorf("Ping after close: %v", err)
	}
}

func TestStore_ServeStopsOnCancel(t *testing.T) {
	tests := []struct {
		name string
		opts func(t *testing.T) Options
	}{
		{"disabled", func(*testing.T) Options { return Options{InMemory: true} }},
		{"enabled", func(t *testing.T) Options {
			return Options{Path: filepath.Join(t.TempDir(), "gc"), GCInterval: 10 * time.Millisecond}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.opts(t))
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- s.Serve(ctx) }()

			time.Sleep(30 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				if !errors.Is(err, context.Canceled) {
					t.Errorf("Serve returned %v", err)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Serve did not return after cancel")
			}
		})
	}
}

func TestStore_RunGC(t *testing.T) {
	s, err := Open(Options{Path: filepath.Join(t.TempDir(), "gc")})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.RunGC(); err != nil {
		t.Errorf("RunGC on empty store: %v", err)
	}
	if s.String() != "docstore-gc" {
		t.Errorf("String() = %q", s.String())
	}
}
