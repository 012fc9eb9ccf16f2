// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package scoring_test

import (
	"io"
	"testing"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/models"
	"github.com/tomtom215/moodscore/internal/scoring"
	"github.com/tomtom215/moodscore/internal/scoring/storetest"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) scoring.Store {
		s := scoring.NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestSortByScore(t *testing.T) {
	recs := []*models.TrackScoreRecord{
		{TrackID: "b", TotalScore: 1},
		{TrackID: "a", TotalScore: 1},
		{TrackID: "c", TotalScore: 7},
		{TrackID: "d", TotalScore: -3},
	}
	scoring.SortByScore(recs)

	want := []string{"c", "a", "b", "d"}
	for i, id := range want {
		if recs[i].TrackID != id {
			t.Errorf("position %d = %s, want %s", i, recs[i].TrackID, id)
		}
	}
}
