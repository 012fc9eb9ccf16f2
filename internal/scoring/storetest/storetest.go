// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package storetest holds the behavioral checks every scoring.Store
// implementation must pass. Each driver's tests call Run with a factory that
// returns a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/scoring"
)

// Factory returns an empty store. Cleanup should be registered with t.Cleanup.
type Factory func(t *testing.T) scoring.Store

// Run executes the shared store checks.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("UpsertCreates", func(t *testing.T) { testUpsertCreates(t, newStore(t)) })
	t.Run("UpsertIncrements", func(t *testing.T) { testUpsertIncrements(t, newStore(t)) })
	t.Run("ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, newStore(t)) })
	t.Run("ListOrdersByScore", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("DropAll", func(t *testing.T) { testDropAll(t, newStore(t)) })

	t.Run("Legacy", func(t *testing.T) {
		store := newStore(t)
		if _, ok := store.(scoring.LegacyWriter); !ok {
			t.Skip("store cannot hold legacy records")
		}
		testLegacy(t, store)
	})
}

func testGetMissing(t *testing.T, store scoring.Store) {
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, scoring.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testUpsertCreates(t *testing.T, store scoring.Store) {
	ctx := context.Background()
	rec, created, err := store.AtomicUpsertIncrement(ctx, "T1", models.Skipped, -1)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Error("expected created=true for first upsert")
	}
	assertRecord(t, rec, -1, map[models.Category]int64{models.Skipped: 1})

	stored, err := store.Get(ctx, "T1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	cur, ok := stored.(*models.TrackScoreRecord)
	if !ok {
		t.Fatalf("expected current record, got %T", stored)
	}
	assertRecord(t, cur, -1, map[models.Category]int64{models.Skipped: 1})
}

func testUpsertIncrements(t *testing.T, store scoring.Store) {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := store.AtomicUpsertIncrement(ctx, "T3", models.Happy, 1); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	rec, created, err := store.AtomicUpsertIncrement(ctx, "T3", models.Neutral, 0)
	if err != nil {
		t.Fatalf("upsert neutral: %v", err)
	}
	if created {
		t.Error("expected created=false for existing record")
	}
	assertRecord(t, rec, 3, map[models.Category]int64{models.Happy: 3, models.Neutral: 1})
}

func testConcurrentIncrements(t *testing.T, store scoring.Store) {
	ctx := context.Background()
	const workers, perWorker = 8, 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// Half the workers share a track, half get their own.
				track := "shared"
				if w%2 == 1 {
					track = "solo-" + string(rune('a'+w))
				}
				if _, _, err := store.AtomicUpsertIncrement(ctx, track, models.Sad, -1); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent upsert: %v", err)
	}

	stored, err := store.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("get shared: %v", err)
	}
	shared := stored.(*models.TrackScoreRecord)
	want := int64(workers / 2 * perWorker)
	assertRecord(t, shared, -want, map[models.Category]int64{models.Sad: want})

	stored, err = store.Get(ctx, "solo-b")
	if err != nil {
		t.Fatalf("get solo: %v", err)
	}
	assertRecord(t, stored.(*models.TrackScoreRecord), -perWorker, map[models.Category]int64{models.Sad: perWorker})
}

func testList(t *testing.T, store scoring.Store) {
	ctx := context.Background()
	apply := func(track string, c models.Category, n int) {
		for i := 0; i < n; i++ {
			if _, _, err := store.AtomicUpsertIncrement(ctx, track, c, c.Delta()); err != nil {
				t.Fatalf("upsert %s: %v", track, err)
			}
		}
	}
	apply("low", models.Angry, 2)
	apply("high", models.Happy, 5)
	apply("mid", models.Happy, 1)

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	order := []string{all[0].TrackID, all[1].TrackID, all[2].TrackID}
	if order[0] != "high" || order[1] != "mid" || order[2] != "low" {
		t.Errorf("order = %v, want [high mid low]", order)
	}

	top, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(top) != 1 || top[0].TrackID != "high" {
		t.Errorf("limit 1 returned %v", top)
	}
}

func testDropAll(t *testing.T, store scoring.Store) {
	ctx := context.Background()
	if _, _, err := store.AtomicUpsertIncrement(ctx, "gone", models.Fear, -1); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.DropAll(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := store.Get(ctx, "gone"); !errors.Is(err, scoring.ErrNotFound) {
		t.Errorf("expected ErrNotFound after DropAll, got %v", err)
	}
	// The store stays usable.
	if _, created, err := store.AtomicUpsertIncrement(ctx, "gone", models.Happy, 1); err != nil || !created {
		t.Errorf("upsert after drop: created=%v err=%v", created, err)
	}
}

func testLegacy(t *testing.T, store scoring.Store) {
	ctx := context.Background()
	writer := store.(scoring.LegacyWriter)
	legacy := &models.LegacyRecord{TrackID: "L1", Score: 4, Emotion: "happy"}
	if err := writer.PutLegacy(ctx, legacy); err != nil {
		t.Fatalf("put legacy: %v", err)
	}

	stored, err := store.Get(ctx, "L1")
	if err != nil {
		t.Fatalf("get legacy: %v", err)
	}
	got, ok := stored.(*models.LegacyRecord)
	if !ok {
		t.Fatalf("expected *LegacyRecord, got %T", stored)
	}
	if got.Score != 4 || got.Emotion != "happy" {
		t.Errorf("legacy round trip = %+v", got)
	}

	if _, _, err := store.AtomicUpsertIncrement(ctx, "L1", models.Happy, 1); !errors.Is(err, scoring.ErrLegacyRecord) {
		t.Fatalf("expected ErrLegacyRecord from upsert, got %v", err)
	}

	listed, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].TotalScore != 4 {
		t.Errorf("legacy should list with its score, got %+v", listed)
	}

	rec, err := store.MigrateAndApply(ctx, got, models.Happy, 1)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	assertRecord(t, rec, 5, map[models.Category]int64{models.Happy: 1})

	// A second migration attempt against the stale legacy view must fail.
	if _, err := store.MigrateAndApply(ctx, got, models.Happy, 1); !errors.Is(err, scoring.ErrNotLegacy) {
		t.Errorf("expected ErrNotLegacy, got %v", err)
	}

	stored, err = store.Get(ctx, "L1")
	if err != nil {
		t.Fatalf("get migrated: %v", err)
	}
	cur, ok := stored.(*models.TrackScoreRecord)
	if !ok {
		t.Fatalf("expected migrated record, got %T", stored)
	}
	assertRecord(t, cur, 5, map[models.Category]int64{models.Happy: 1})
}

func assertRecord(t *testing.T, rec *models.TrackScoreRecord, total int64, counts map[models.Category]int64) {
	t.Helper()
	if rec == nil {
		t.Fatal("nil record")
	}
	if rec.TotalScore != total {
		t.Errorf("%s: TotalScore = %d, want %d", rec.TrackID, rec.TotalScore, total)
	}
	for _, c := range models.AllCategories {
		if got := rec.Count(c); got != counts[c] {
			t.Errorf("%s: count[%s] = %d, want %d", rec.TrackID, c, got, counts[c])
		}
	}
}
