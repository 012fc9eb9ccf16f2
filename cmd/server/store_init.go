// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package main

import (
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/moodscore/internal/config"
	"github.com/tomtom215/moodscore/internal/database"
	"github.com/tomtom215/moodscore/internal/docstore"
	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/scoring"
)

// StoreComponents is the opened score store plus its optional maintenance
// service for the data layer.
type StoreComponents struct {
	Store scoring.Store
	// Maintenance is nil unless the driver needs background work.
	Maintenance suture.Service
}

// InitStore opens the store selected by cfg.Driver.
func InitStore(cfg *config.StoreConfig) (*StoreComponents, error) {
	switch cfg.Driver {
	case "badger", "":
		ds, err := docstore.Open(docstore.Options{
			Path:       cfg.Path,
			InMemory:   cfg.InMemory,
			GCInterval: cfg.GCInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		logging.Info().
			Str("driver", "badger").
			Str("path", cfg.Path).
			Bool("in_memory", cfg.InMemory).
			Dur("gc_interval", cfg.GCInterval).
			Msg("Score store opened")
		comps := &StoreComponents{Store: ds}
		if cfg.GCInterval > 0 && !cfg.InMemory {
			comps.Maintenance = ds
		}
		return comps, nil

	case "duckdb":
		path := cfg.Path
		if cfg.InMemory {
			path = ":memory:"
		}
		db, err := database.New(database.Options{
			Path:      path,
			MaxMemory: cfg.MaxMemory,
			Threads:   cfg.Threads,
		})
		if err != nil {
			return nil, fmt.Errorf("open duckdb store: %w", err)
		}
		logging.Info().Str("driver", "duckdb").Str("path", path).Msg("Score store opened")
		return &StoreComponents{Store: db}, nil

	case "memory":
		logging.Warn().Msg("Using in-memory score store; scores are lost on restart")
		return &StoreComponents{Store: scoring.NewMemoryStore()}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Close releases the store.
func (c *StoreComponents) Close() {
	if c == nil || c.Store == nil {
		return
	}
	if err := c.Store.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing score store")
	}
}
