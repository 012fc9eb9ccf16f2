// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordStoreOp(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("memory", "upsert"))

	RecordStoreOp("memory", "upsert", time.Millisecond, nil)
	RecordStoreOp("memory", "upsert", time.Millisecond, errors.New("boom"))

	after := testutil.ToFloat64(StoreOperationErrors.WithLabelValues("memory", "upsert"))
	if after-before != 1 {
		t.Errorf("expected exactly one recorded error, got %v", after-before)
	}
}

func TestRecordDeltaApplied(t *testing.T) {
	applied := ScoreDeltasApplied.WithLabelValues("happy", "emotion")
	beforeApplied := testutil.ToFloat64(applied)
	beforeCreated := testutil.ToFloat64(ScoreRecordsCreated)
	beforeMigrated := testutil.ToFloat64(LegacyMigrations)

	RecordDeltaApplied("happy", "emotion", true, false)
	RecordDeltaApplied("happy", "emotion", false, true)

	if got := testutil.ToFloat64(applied) - beforeApplied; got != 2 {
		t.Errorf("applied delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ScoreRecordsCreated) - beforeCreated; got != 1 {
		t.Errorf("created delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(LegacyMigrations) - beforeMigrated; got != 1 {
		t.Errorf("migrated delta = %v, want 1", got)
	}
}

func TestRecordTransition(t *testing.T) {
	skip := TrackTransitions.WithLabelValues("skip")
	natural := TrackTransitions.WithLabelValues("natural")
	s0, n0 := testutil.ToFloat64(skip), testutil.ToFloat64(natural)

	RecordTransition(true)
	RecordTransition(false)
	RecordTransition(false)

	if testutil.ToFloat64(skip)-s0 != 1 {
		t.Error("expected one skip")
	}
	if testutil.ToFloat64(natural)-n0 != 2 {
		t.Error("expected two natural transitions")
	}
}

func TestRecordClassificationAndPublish(t *testing.T) {
	okC := SamplerClassifications.WithLabelValues("ok")
	errC := SamplerClassifications.WithLabelValues("error")
	ok0, err0 := testutil.ToFloat64(okC), testutil.ToFloat64(errC)

	RecordClassification(nil)
	RecordClassification(errors.New("timeout"))

	if testutil.ToFloat64(okC)-ok0 != 1 || testutil.ToFloat64(errC)-err0 != 1 {
		t.Error("classification counters not updated")
	}

	fail := EventsPublished.WithLabelValues("nats", "failure")
	f0 := testutil.ToFloat64(fail)
	RecordPublish("nats", errors.New("down"))
	if testutil.ToFloat64(fail)-f0 != 1 {
		t.Error("publish failure not recorded")
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - start; got != 1 {
		t.Errorf("active requests delta = %v, want 1", got)
	}
}
