// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package docstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/scoring"
)

const (
	prefixTrack = "track:"

	// maxConflictRetries bounds transaction replays on badger.ErrConflict.
	maxConflictRetries = 64

	driverName = "badger"
)

// ErrClosed is returned for operations on a closed store.
var ErrClosed = errors.New("docstore closed")

// Options configures the Badger store.
type Options struct {
	Path       string
	InMemory   bool
	SyncWrites bool

	// GCInterval is how often Serve runs value log GC. Zero disables it.
	GCInterval time.Duration
	// GCRatio is the discard ratio passed to RunValueLogGC.
	GCRatio float64
}

// Store is a scoring.Store backed by BadgerDB.
type Store struct {
	db   *badger.DB
	opts Options
	now  func() time.Time

	mu     sync.RWMutex
	closed bool
}

var (
	_ scoring.Store        = (*Store)(nil)
	_ scoring.LegacyWriter = (*Store)(nil)
)

// document is the on-disk shape. Pointer fields tell the two record shapes
// apart: TotalScore is set for current records, Score for legacy ones.
type document struct {
	TrackID       string               `json:"track_id"`
	Score         *int64               `json:"score,omitempty"`
	Emotion       *string              `json:"emotion,omitempty"`
	TotalScore    *int64               `json:"total_score,omitempty"`
	EmotionCounts models.EmotionCounts `json:"emotion_counts,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Open opens (or creates) the store.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" && !opts.InMemory {
		return nil, errors.New("docstore: path is required unless in-memory")
	}
	if opts.GCRatio <= 0 || opts.GCRatio >= 1 {
		opts.GCRatio = 0.5
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.SyncWrites = opts.SyncWrites
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Bool("in_memory", opts.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("Score docstore opened")

	return &Store{db: db, opts: opts, now: time.Now}, nil
}

func trackKey(trackID string) []byte {
	return []byte(prefixTrack + trackID)
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// update runs fn in a read-write transaction, replaying it on conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; ; attempt++ {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt >= maxConflictRetries {
			return fmt.Errorf("transaction conflict after %d attempts: %w", attempt+1, err)
		}
		// Short randomized pause so colliding writers spread out.
		wait := time.Duration(rand.IntN(500)+100) * time.Microsecond
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func readDoc(txn *badger.Txn, trackID string) (*document, error) {
	item, err := txn.Get(trackKey(trackID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, scoring.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var doc document
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", trackID, err)
	}
	if doc.TrackID == "" {
		doc.TrackID = trackID
	}
	return &doc, nil
}

func writeDoc(txn *badger.Txn, doc *document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc.TrackID, err)
	}
	return txn.Set(trackKey(doc.TrackID), data)
}

// toRecord converts a decoded document into its tagged variant.
func (d *document) toRecord() (models.StoredRecord, error) {
	switch {
	case d.TotalScore != nil:
		counts := models.NewEmotionCounts()
		for c, n := range d.EmotionCounts {
			counts[c] = n
		}
		return &models.TrackScoreRecord{
			TrackID:       d.TrackID,
			TotalScore:    *d.TotalScore,
			EmotionCounts: counts,
			CreatedAt:     d.CreatedAt,
			UpdatedAt:     d.UpdatedAt,
		}, nil
	case d.Score != nil:
		legacy := &models.LegacyRecord{TrackID: d.TrackID, Score: *d.Score}
		if d.Emotion != nil {
			legacy.Emotion = *d.Emotion
		}
		return legacy, nil
	default:
		return nil, fmt.Errorf("document %s has neither total_score nor score", d.TrackID)
	}
}

func fromRecord(rec *models.TrackScoreRecord) *document {
	total := rec.TotalScore
	return &document{
		TrackID:       rec.TrackID,
		TotalScore:    &total,
		EmotionCounts: rec.EmotionCounts,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

// Get implements scoring.Store.
func (s *Store) Get(_ context.Context, trackID string) (rec models.StoredRecord, err error) {
	defer observe("get", time.Now(), &err)
	if err = s.checkOpen(); err != nil {
		return nil, err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		doc, err := readDoc(txn, trackID)
		if err != nil {
			return err
		}
		rec, err = doc.toRecord()
		return err
	})
	return rec, err
}

// AtomicUpsertIncrement implements scoring.Store.
func (s *Store) AtomicUpsertIncrement(ctx context.Context, trackID string, c models.Category, delta int64) (rec *models.TrackScoreRecord, created bool, err error) {
	defer observe("upsert", time.Now(), &err)
	if err = s.checkOpen(); err != nil {
		return nil, false, err
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		now := s.now().UTC()
		doc, err := readDoc(txn, trackID)
		switch {
		case errors.Is(err, scoring.ErrNotFound):
			rec = &models.TrackScoreRecord{
				TrackID:       trackID,
				TotalScore:    delta,
				EmotionCounts: models.NewEmotionCounts(),
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			rec.EmotionCounts[c] = 1
			created = true
		case err != nil:
			return err
		case doc.TotalScore == nil:
			return scoring.ErrLegacyRecord
		default:
			stored, err := doc.toRecord()
			if err != nil {
				return err
			}
			rec = stored.(*models.TrackScoreRecord)
			rec.EmotionCounts[c]++
			rec.TotalScore += delta
			rec.UpdatedAt = now
			created = false
		}
		return writeDoc(txn, fromRecord(rec))
	})
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// MigrateAndApply implements scoring.Store.
func (s *Store) MigrateAndApply(ctx context.Context, legacy *models.LegacyRecord, c models.Category, delta int64) (rec *models.TrackScoreRecord, err error) {
	defer observe("migrate", time.Now(), &err)
	if err = s.checkOpen(); err != nil {
		return nil, err
	}

	err = s.update(ctx, func(txn *badger.Txn) error {
		doc, err := readDoc(txn, legacy.TrackID)
		if errors.Is(err, scoring.ErrNotFound) {
			return scoring.ErrNotLegacy
		}
		if err != nil {
			return err
		}
		stored, err := doc.toRecord()
		if err != nil {
			return err
		}
		current, ok := stored.(*models.LegacyRecord)
		if !ok || *current != *legacy {
			return scoring.ErrNotLegacy
		}

		rec = models.Migrate(current, s.now().UTC())
		rec.EmotionCounts[c]++
		rec.TotalScore += delta
		return writeDoc(txn, fromRecord(rec))
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List implements scoring.Store.
func (s *Store) List(ctx context.Context, limit int) (out []*models.TrackScoreRecord, err error) {
	defer observe("list", time.Now(), &err)
	if err = s.checkOpen(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixTrack)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var doc document
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("Skipping undecodable score document")
				continue
			}
			if doc.TrackID == "" {
				doc.TrackID = string(item.Key()[len(prefixTrack):])
			}
			stored, err := doc.toRecord()
			if err != nil {
				logging.Warn().Err(err).Msg("Skipping malformed score document")
				continue
			}
			switch r := stored.(type) {
			case *models.TrackScoreRecord:
				out = append(out, r)
			case *models.LegacyRecord:
				out = append(out, models.Migrate(r, now))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate score documents: %w", err)
	}

	scoring.SortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DropAll implements scoring.Store.
func (s *Store) DropAll(_ context.Context) (err error) {
	defer observe("drop_all", time.Now(), &err)
	if err = s.checkOpen(); err != nil {
		return err
	}
	return s.db.DropPrefix([]byte(prefixTrack))
}

// PutLegacy implements scoring.LegacyWriter.
func (s *Store) PutLegacy(ctx context.Context, rec *models.LegacyRecord) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	score, emotion := rec.Score, rec.Emotion
	return s.update(ctx, func(txn *badger.Txn) error {
		return writeDoc(txn, &document{TrackID: rec.TrackID, Score: &score, Emotion: &emotion})
	})
}

// Ping implements scoring.Store.
func (s *Store) Ping(_ context.Context) error {
	if err := s.checkOpen(); err != nil {
		return fmt.Errorf("%w: %w", scoring.ErrStoreUnavailable, err)
	}
	if s.db.IsClosed() {
		return fmt.Errorf("%w: badger closed", scoring.ErrStoreUnavailable)
	}
	return nil
}

// Close implements scoring.Store. It is safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("Score docstore closed")
	return nil
}

func observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
		if errors.Is(err, scoring.ErrNotFound) || errors.Is(err, scoring.ErrLegacyRecord) || errors.Is(err, scoring.ErrNotLegacy) {
			err = nil
		}
	}
	metrics.RecordStoreOp(driverName, op, time.Since(start), err)
}
