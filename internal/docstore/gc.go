// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/moodscore/internal/logging"
)

// RunGC rewrites value log files until Badger reports nothing left to
// reclaim. In-memory stores have no value log and return nil.
func (s *Store) RunGC() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.opts.InMemory {
		return nil
	}

	start := time.Now()
	rewrites := 0
	for {
		err := s.db.RunValueLogGC(s.opts.GCRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			return fmt.Errorf("run value log GC: %w", err)
		}
		rewrites++
	}
	if rewrites > 0 {
		logging.Debug().Int("rewrites", rewrites).Dur("duration", time.Since(start)).Msg("Docstore value log GC")
	}
	return nil
}

// Serve runs RunGC every GCInterval until ctx is canceled. With GC disabled
// it only waits for cancellation.
func (s *Store) Serve(ctx context.Context) error {
	if s.opts.GCInterval <= 0 || s.opts.InMemory {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.opts.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				if errors.Is(err, ErrClosed) {
					return err
				}
				logging.Error().Err(err).Msg("Docstore GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *Store) String() string { return "docstore-gc" }
