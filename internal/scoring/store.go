// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package scoring

import (
	"context"
	"errors"

	"github.com/tomtom215/moodscore/internal/models"
)

var (
	// ErrNotFound is returned by Get when no record exists for a track.
	ErrNotFound = errors.New("score record not found")

	// ErrLegacyRecord is returned by AtomicUpsertIncrement when the stored
	// record still has the legacy shape and must go through MigrateAndApply.
	ErrLegacyRecord = errors.New("score record has legacy shape")

	// ErrNotLegacy is returned by MigrateAndApply when the record was migrated
	// (or replaced) by someone else since it was read.
	ErrNotLegacy = errors.New("score record is no longer legacy")

	// ErrStoreUnavailable wraps connection-level failures.
	ErrStoreUnavailable = errors.New("score store unavailable")

	// ErrInvalidTrackID is returned for empty track identifiers.
	ErrInvalidTrackID = errors.New("invalid track id")
)

// Store persists per-track score records.
//
// Implementations must make AtomicUpsertIncrement and MigrateAndApply atomic
// per track: concurrent increments on the same track never lose updates, and
// a migration either fully applies or leaves the legacy record untouched.
type Store interface {
	// Get returns a *models.TrackScoreRecord or *models.LegacyRecord, or
	// ErrNotFound.
	Get(ctx context.Context, trackID string) (models.StoredRecord, error)

	// AtomicUpsertIncrement creates the record (all counters zero, c set to
	// one, total set to delta) or increments c's counter and the total.
	// created reports which happened. Returns ErrLegacyRecord if the stored
	// record has the legacy shape.
	AtomicUpsertIncrement(ctx context.Context, trackID string, c models.Category, delta int64) (rec *models.TrackScoreRecord, created bool, err error)

	// MigrateAndApply replaces legacy with its migrated form and applies one
	// occurrence of c in the same transaction. Returns ErrNotLegacy if the
	// stored record no longer matches legacy.
	MigrateAndApply(ctx context.Context, legacy *models.LegacyRecord, c models.Category, delta int64) (*models.TrackScoreRecord, error)

	// List returns up to limit records ordered by total score, highest
	// first. Legacy records are listed in their migrated form without being
	// rewritten. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*models.TrackScoreRecord, error)

	// DropAll deletes every record. Administrative reset only.
	DropAll(ctx context.Context) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// LegacyWriter is implemented by stores that can hold legacy documents.
// It exists for imports from older deployments and for tests.
type LegacyWriter interface {
	PutLegacy(ctx context.Context, rec *models.LegacyRecord) error
}
