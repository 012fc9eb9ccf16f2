// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/moodscore/internal/models"
)

// counterColumns lists the per-category counter columns in
// models.AllCategories order.
var counterColumns = func() []string {
	cols := make([]string, len(models.AllCategories))
	for i, c := range models.AllCategories {
		cols[i] = c.CounterField()
	}
	return cols
}()

// selectColumns is the column list every read scans with scanRecord.
var selectColumns = "track_id, score, emotion, total_score, " +
	strings.Join(counterColumns, ", ") + ", created_at, updated_at"

// createTables creates track_scores. Only the primary key is indexed: DuckDB
// cannot assign indexed columns in ON CONFLICT DO UPDATE.
func (db *DB) createTables(ctx context.Context) error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS track_scores (
		track_id VARCHAR PRIMARY KEY,
		score BIGINT,
		emotion VARCHAR,
		total_score BIGINT,
`)
	for _, col := range counterColumns {
		fmt.Fprintf(&b, "\t\t%s BIGINT NOT NULL DEFAULT 0,\n", col)
	}
	b.WriteString(`		created_at TIMESTAMP,
		updated_at TIMESTAMP
	)`)

	if _, err := db.conn.ExecContext(ctx, b.String()); err != nil {
		return fmt.Errorf("create track_scores: %w", err)
	}
	return nil
}
