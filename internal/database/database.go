// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package database implements scoring.Store on DuckDB.
//
// Every track is one row in track_scores. Legacy rows carry score and emotion
// with a NULL total_score; current rows carry total_score and one counter
// column per category. Writes to the same track are serialized with a
// striped lock keyed by track ID and retried on DuckDB transaction conflicts.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/scoring"
)

const (
	driverName = "duckdb"

	defaultQueryTimeout = 30 * time.Second

	// trackLockStripes bounds the lock table; tracks hashing to the same
	// stripe share a mutex.
	trackLockStripes = 256
)

// Options configures the DuckDB connection.
type Options struct {
	// Path is the database file. Empty or ":memory:" opens an in-memory
	// database.
	Path      string
	MaxMemory string
	Threads   int
}

// DB is a scoring.Store backed by DuckDB.
type DB struct {
	conn *sql.DB
	opts Options
	now  func() time.Time

	// Striped per-track write locks for concurrent upserts. A caller holds
	// at most one stripe at a time.
	trackLocks [trackLockStripes]sync.Mutex

	closeOnce sync.Once
}

var (
	_ scoring.Store        = (*DB)(nil)
	_ scoring.LegacyWriter = (*DB)(nil)
)

// New opens the database and creates the schema.
func New(opts Options) (*DB, error) {
	if opts.Path == "" {
		opts.Path = ":memory:"
	}
	if opts.MaxMemory == "" {
		opts.MaxMemory = "512MB"
	}
	numThreads := opts.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if opts.Path != ":memory:" {
		dbDir := filepath.Dir(opts.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		opts.Path, numThreads, opts.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, opts: opts, now: time.Now}
	db.configureConnectionPool()

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()
	if err := db.createTables(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", opts.Path).
		Int("threads", numThreads).
		Str("max_memory", opts.MaxMemory).
		Msg("Score database opened")
	return db, nil
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping implements scoring.Store.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", scoring.ErrStoreUnavailable, err)
	}
	return nil
}

// Checkpoint forces a WAL checkpoint.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the connection. Safe to call more than once.
func (db *DB) Close() error {
	var err error
	db.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
		if cerr := db.Checkpoint(ctx); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to checkpoint database before close")
		}
		cancel()
		err = db.conn.Close()
	})
	return err
}

// ensureContext applies the default timeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// trackLock returns the stripe guarding trackID.
func (db *DB) trackLock(trackID string) *sync.Mutex {
	return &db.trackLocks[xxhash.Sum64String(trackID)%trackLockStripes]
}

// acquireTrackLock locks and returns the stripe guarding trackID.
func (db *DB) acquireTrackLock(trackID string) *sync.Mutex {
	mu := db.trackLock(trackID)
	mu.Lock()
	return mu
}
