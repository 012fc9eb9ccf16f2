// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/scoring"
)

const maxConflictRetries = 5

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord decodes one selectColumns row into its tagged variant.
func scanRecord(row rowScanner) (models.StoredRecord, error) {
	var (
		trackID    string
		score      sql.NullInt64
		emotion    sql.NullString
		total      sql.NullInt64
		created    sql.NullTime
		updated    sql.NullTime
		counterVal = make([]int64, len(counterColumns))
	)
	dest := make([]any, 0, 6+len(counterColumns))
	dest = append(dest, &trackID, &score, &emotion, &total)
	for i := range counterVal {
		dest = append(dest, &counterVal[i])
	}
	dest = append(dest, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if !total.Valid {
		return &models.LegacyRecord{TrackID: trackID, Score: score.Int64, Emotion: emotion.String}, nil
	}

	rec := &models.TrackScoreRecord{
		TrackID:       trackID,
		TotalScore:    total.Int64,
		EmotionCounts: models.NewEmotionCounts(),
		CreatedAt:     created.Time,
		UpdatedAt:     updated.Time,
	}
	for i, c := range models.AllCategories {
		rec.EmotionCounts[c] = counterVal[i]
	}
	return rec, nil
}

// withRetry runs fn in a transaction, replaying it on DuckDB conflicts.
func (db *DB) withRetry(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}

		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin: %w", scoring.ErrStoreUnavailable, err)
		}
		err = fn(tx)
		if err == nil {
			err = tx.Commit()
		}
		if err == nil {
			return nil
		}
		rollbackQuietly(tx)
		if !isTransactionConflict(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("transaction conflict after %d attempts: %w", maxConflictRetries, lastErr)
}

func getTx(ctx context.Context, tx *sql.Tx, trackID string) (models.StoredRecord, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM track_scores WHERE track_id = ?", trackID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scoring.ErrNotFound
	}
	return rec, err
}

// Get implements scoring.Store.
func (db *DB) Get(ctx context.Context, trackID string) (rec models.StoredRecord, err error) {
	defer observe("get", time.Now(), &err)
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM track_scores WHERE track_id = ?", trackID)
	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, scoring.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", trackID, err)
	}
	return rec, nil
}

// AtomicUpsertIncrement implements scoring.Store.
func (db *DB) AtomicUpsertIncrement(ctx context.Context, trackID string, c models.Category, delta int64) (rec *models.TrackScoreRecord, created bool, err error) {
	defer observe("upsert", time.Now(), &err)
	if !c.Valid() {
		return nil, false, fmt.Errorf("%w: %q", models.ErrUnknownCategory, c)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	mu := db.acquireTrackLock(trackID)
	defer mu.Unlock()

	col := c.CounterField()
	upsert := fmt.Sprintf(`INSERT INTO track_scores (track_id, total_score, %[1]s, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			%[1]s = %[1]s + 1,
			total_score = total_score + EXCLUDED.total_score,
			updated_at = EXCLUDED.updated_at`, col)

	err = db.withRetry(ctx, func(tx *sql.Tx) error {
		existing, err := getTx(ctx, tx, trackID)
		switch {
		case errors.Is(err, scoring.ErrNotFound):
			created = true
		case err != nil:
			return err
		default:
			if _, legacy := existing.(*models.LegacyRecord); legacy {
				return scoring.ErrLegacyRecord
			}
			created = false
		}

		now := db.now().UTC()
		if _, err := tx.ExecContext(ctx, upsert, trackID, delta, now, now); err != nil {
			return fmt.Errorf("upsert %s: %w", trackID, err)
		}

		stored, err := getTx(ctx, tx, trackID)
		if err != nil {
			return err
		}
		rec = stored.(*models.TrackScoreRecord)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return rec, created, nil
}

// MigrateAndApply implements scoring.Store.
func (db *DB) MigrateAndApply(ctx context.Context, legacy *models.LegacyRecord, c models.Category, delta int64) (rec *models.TrackScoreRecord, err error) {
	defer observe("migrate", time.Now(), &err)
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, c)
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	mu := db.acquireTrackLock(legacy.TrackID)
	defer mu.Unlock()

	// The row is matched on its shape alone. Legacy rows may hold NULL in
	// either legacy column, and a NULL score migrates as zero.
	sets := make([]string, 0, len(counterColumns))
	for _, col := range counterColumns {
		val := 0
		if col == c.CounterField() {
			val = 1
		}
		sets = append(sets, fmt.Sprintf("%s = %d", col, val))
	}
	migrate := `UPDATE track_scores SET
			total_score = COALESCE(score, 0) + ?,
			score = NULL,
			emotion = NULL,
			` + strings.Join(sets, ",\n\t\t\t") + `,
			created_at = ?,
			updated_at = ?
		WHERE track_id = ? AND total_score IS NULL`

	err = db.withRetry(ctx, func(tx *sql.Tx) error {
		now := db.now().UTC()
		res, err := tx.ExecContext(ctx, migrate, delta, now, now, legacy.TrackID)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", legacy.TrackID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return scoring.ErrNotLegacy
		}

		stored, err := getTx(ctx, tx, legacy.TrackID)
		if err != nil {
			return err
		}
		current, ok := stored.(*models.TrackScoreRecord)
		if !ok {
			return fmt.Errorf("migrate %s: row still legacy after update", legacy.TrackID)
		}
		rec = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// List implements scoring.Store.
func (db *DB) List(ctx context.Context, limit int) (out []*models.TrackScoreRecord, err error) {
	defer observe("list", time.Now(), &err)
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := "SELECT " + selectColumns + " FROM track_scores ORDER BY COALESCE(total_score, score) DESC, track_id ASC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	now := db.now().UTC()
	for rows.Next() {
		stored, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan score row: %w", err)
		}
		switch r := stored.(type) {
		case *models.TrackScoreRecord:
			out = append(out, r)
		case *models.LegacyRecord:
			out = append(out, models.Migrate(r, now))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score rows: %w", err)
	}
	return out, nil
}

// DropAll implements scoring.Store.
func (db *DB) DropAll(ctx context.Context) (err error) {
	defer observe("drop_all", time.Now(), &err)
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	if _, err = db.conn.ExecContext(ctx, "DELETE FROM track_scores"); err != nil {
		return fmt.Errorf("drop scores: %w", err)
	}
	return nil
}

// PutLegacy implements scoring.LegacyWriter.
func (db *DB) PutLegacy(ctx context.Context, rec *models.LegacyRecord) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	mu := db.acquireTrackLock(rec.TrackID)
	defer mu.Unlock()

	zeros := strings.TrimSuffix(strings.Repeat("0, ", len(counterColumns)), ", ")
	insert := "INSERT OR REPLACE INTO track_scores (track_id, score, emotion, total_score, " +
		strings.Join(counterColumns, ", ") + ", created_at, updated_at) VALUES (?, ?, ?, NULL, " +
		zeros + ", NULL, NULL)"
	return db.withRetry(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insert, rec.TrackID, rec.Score, rec.Emotion)
		return err
	})
}
