// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/scoring"
	"github.com/tomtom215/moodscore/internal/scoring/storetest"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// testDBSemaphore serializes DuckDB instances across tests; concurrent CGO
// connections from many tests can stall under CI load.
var testDBSemaphore = make(chan struct{}, 1)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := New(Options{Path: ":memory:", MaxMemory: "256MB", Threads: 2})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return db
}

func TestDBConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) scoring.Store { return setupTestDB(t) })
}

func TestNew_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "scores.duckdb")
	db, err := New(Options{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.duckdb")
	ctx := context.Background()

	db, err := New(Options{Path: path, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := db.AtomicUpsertIncrement(ctx, "T", models.Disgust, -1); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(Options{Path: path, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	stored, err := db.Get(ctx, "T")
	if err != nil {
		t.Fatal(err)
	}
	rec := stored.(*models.TrackScoreRecord)
	if rec.TotalScore != -1 || rec.Count(models.Disgust) != 1 {
		t.Errorf("after reopen: %+v", rec)
	}
}

func TestDB_RejectsUnknownCategory(t *testing.T) {
	db := setupTestDB(t)
	_, _, err := db.AtomicUpsertIncrement(context.Background(), "T", models.Category("bored"), 0)
	if !errors.Is(err, models.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestDB_LegacyRowViaSQL(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Legacy rows written directly, as an older deployment would have.
	if _, err := db.Conn().ExecContext(ctx,
		"INSERT INTO track_scores (track_id, score, emotion) VALUES ('old', -3, 'angry')"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	agg := scoring.NewAggregator(db)
	change, err := agg.ApplyDelta(ctx, "old", models.Skipped, models.SourceSkip)
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if !change.Migrated || change.TotalScore != -4 {
		t.Errorf("change = %+v", change)
	}

	rec, err := agg.Get(ctx, "old")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Count(models.Skipped) != 1 || rec.Count(models.Angry) != 0 {
		t.Errorf("counts = %v", rec.EmotionCounts)
	}

	var legacyScore *int64
	if err := db.Conn().QueryRowContext(ctx, "SELECT score FROM track_scores WHERE track_id = 'old'").Scan(&legacyScore); err != nil {
		t.Fatal(err)
	}
	if legacyScore != nil {
		t.Errorf("legacy score column should be cleared, got %d", *legacyScore)
	}
}

func TestTrackLock_Striped(t *testing.T) {
	db := &DB{}

	if db.trackLock("T1") != db.trackLock("T1") {
		t.Fatal("same track must map to the same lock")
	}

	stripes := make(map[*sync.Mutex]struct{})
	for i := 0; i < 10000; i++ {
		mu := db.trackLock(fmt.Sprintf("track-%d", i))
		stripes[mu] = struct{}{}
	}
	if len(stripes) > trackLockStripes {
		t.Errorf("lock table grew to %d entries, want at most %d", len(stripes), trackLockStripes)
	}
	for mu := range stripes {
		inTable := false
		for i := range db.trackLocks {
			if mu == &db.trackLocks[i] {
				inTable = true
				break
			}
		}
		if !inTable {
			t.Fatal("lock not taken from the stripe table")
		}
	}
}

func TestDB_ConcurrentDeltasAcrossTracks(t *testing.T) {
	db := setupTestDB(t)
	agg := scoring.NewAggregator(db)
	ctx := context.Background()

	const tracks, perTrack = 12, 4
	var wg sync.WaitGroup
	errs := make(chan error, tracks*perTrack)
	for i := 0; i < tracks; i++ {
		for j := 0; j < perTrack; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := agg.ApplyDelta(ctx, id, models.Happy, models.SourceManual); err != nil {
					errs <- err
				}
			}(fmt.Sprintf("T%d", i))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ApplyDelta: %v", err)
	}

	for i := 0; i < tracks; i++ {
		rec, err := agg.Get(ctx, fmt.Sprintf("T%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if rec.TotalScore != perTrack || rec.Count(models.Happy) != perTrack {
			t.Errorf("%s = %+v", rec.TrackID, rec)
		}
	}
}

func TestIsTransactionConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("TransactionContext Error: Transaction conflict: cannot update"), true},
		{errors.New("Conflict on update!"), true},
		{errors.New("Constraint Error: duplicate key"), false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(tt.err); got != tt.want {
			t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
