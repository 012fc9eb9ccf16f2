// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

/*
Package docstore implements scoring.Store on BadgerDB.

Each track is one JSON document under the key "track:<id>". Documents are
schema-less: a document carrying "total_score" is a current record, one
carrying only "score" and "emotion" is a legacy record written by older
deployments. Decoding happens on read, so both shapes coexist until the
Aggregator migrates a legacy document on its next delta.

Writes run inside Badger's optimistic transactions. A transaction that loses
a race with a concurrent writer on the same key fails with badger.ErrConflict
and is replayed from a fresh read, which is what makes increments atomic.

Store also implements Serve so a supervisor can run periodic value log
garbage collection.
*/
package docstore
