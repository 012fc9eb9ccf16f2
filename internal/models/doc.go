// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package models defines the data shared by every moodscore component.

Key types:

  - Category: the closed set of eight labels (seven emotions plus the
    synthetic "skipped" label) and the exact category to delta table.
  - TrackScoreRecord: the persisted per-track aggregate.
  - LegacyRecord: the older single score/emotion document shape.
  - StoredRecord: the tagged variant a store returns on read, either a
    *TrackScoreRecord or a *LegacyRecord.
  - CurrentTrack: what the playback service reports as playing.
  - ScoreChange: the event emitted after every successful delta application.

Legacy records are upgraded with Migrate. Migration keeps the old score as
the running total and starts every counter at zero, so the emotion stored on
the legacy record is not retroactively counted:

	rec := models.Migrate(legacy, now)
	rec.Apply(models.Happy, now)
	// rec.TotalScore == legacy.Score + 1, rec.EmotionCounts[models.Happy] == 1
*/
package models
