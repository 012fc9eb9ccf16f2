// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package database

import (
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/metrics"
	"github.com/tomtom215/moodscore/internal/scoring"
)

// closeQuietly closes a resource in error paths where Close errors are not
// actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollbackQuietly rolls back tx unless it already committed.
func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Failed to roll back transaction")
	}
}

// isTransactionConflict reports whether err is a DuckDB write-write conflict.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "Conflict on tuple deletion")
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
