// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package scoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
)

// MemoryStore is a process-local Store. Records are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]models.StoredRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.StoredRecord),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, trackID string) (models.StoredRecord, error) {
	defer observe("get", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	switch rec := s.records[trackID].(type) {
	case *models.TrackScoreRecord:
		return rec.Clone(), nil
	case *models.LegacyRecord:
		cp := *rec
		return &cp, nil
	default:
		return nil, ErrNotFound
	}
}

// AtomicUpsertIncrement implements Store.
func (s *MemoryStore) AtomicUpsertIncrement(_ context.Context, trackID string, c models.Category, delta int64) (*models.TrackScoreRecord, bool, error) {
	defer observe("upsert", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch rec := s.records[trackID].(type) {
	case *models.TrackScoreRecord:
		rec.EmotionCounts[c]++
		rec.TotalScore += delta
		rec.UpdatedAt = now
		return rec.Clone(), false, nil
	case *models.LegacyRecord:
		return nil, false, ErrLegacyRecord
	default:
		fresh := &models.TrackScoreRecord{
			TrackID:       trackID,
			TotalScore:    delta,
			EmotionCounts: models.NewEmotionCounts(),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		fresh.EmotionCounts[c] = 1
		s.records[trackID] = fresh
		return fresh.Clone(), true, nil
	}
}

// MigrateAndApply implements Store.
func (s *MemoryStore) MigrateAndApply(_ context.Context, legacy *models.LegacyRecord, c models.Category, delta int64) (*models.TrackScoreRecord, error) {
	defer observe("migrate", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[legacy.TrackID].(*models.LegacyRecord)
	if !ok || *stored != *legacy {
		return nil, ErrNotLegacy
	}

	now := s.now()
	rec := models.Migrate(stored, now)
	rec.EmotionCounts[c]++
	rec.TotalScore += delta
	s.records[legacy.TrackID] = rec
	return rec.Clone(), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*models.TrackScoreRecord, error) {
	defer observe("list", time.Now())
	s.mu.Lock()
	out := make([]*models.TrackScoreRecord, 0, len(s.records))
	now := s.now()
	for _, stored := range s.records {
		switch rec := stored.(type) {
		case *models.TrackScoreRecord:
			out = append(out, rec.Clone())
		case *models.LegacyRecord:
			out = append(out, models.Migrate(rec, now))
		}
	}
	s.mu.Unlock()

	SortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DropAll implements Store.
func (s *MemoryStore) DropAll(_ context.Context) error {
	defer observe("drop_all", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]models.StoredRecord)
	return nil
}

// PutLegacy implements LegacyWriter.
func (s *MemoryStore) PutLegacy(_ context.Context, rec *models.LegacyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.TrackID] = &cp
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// SortByScore orders records by total score descending, then by track ID so
// ties are stable.
func SortByScore(records []*models.TrackScoreRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].TotalScore != records[j].TotalScore {
			return records[i].TotalScore > records[j].TotalScore
		}
		return records[i].TrackID < records[j].TrackID
	})
}

func observe(op string, start time.Time) {
	metrics.RecordStoreOp("memory", op, time.Since(start), nil)
}
