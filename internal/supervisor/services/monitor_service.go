// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/monitor"
)

// Monitor is the orchestrator lifecycle the service drives.
type Monitor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// MonitorService starts monitoring when the tree comes up and stops it
// when the tree shuts down.
//
// Missing credentials cannot be fixed by a restart, so that failure parks
// the service until shutdown instead of returning. Other startup failures
// (an unreachable store) are returned and retried with suture's backoff.
type MonitorService struct {
	monitor     Monitor
	stopTimeout time.Duration
}

// NewMonitorService wraps m. A non-positive stopTimeout means 10s.
func NewMonitorService(m Monitor, stopTimeout time.Duration) *MonitorService {
	if stopTimeout <= 0 {
		stopTimeout = defaultShutdownTimeout
	}
	return &MonitorService{monitor: m, stopTimeout: stopTimeout}
}

// Serve implements suture.Service.
func (s *MonitorService) Serve(ctx context.Context) error {
	err := s.monitor.Start(ctx)
	switch {
	case err == nil:
	case errors.Is(err, monitor.ErrMissingCredentials):
		logging.Warn().Err(err).Msg("Monitoring auto-start skipped")
		<-ctx.Done()
		return suture.ErrDoNotRestart
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("monitor auto-start: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stopTimeout)
	defer cancel()
	if err := s.monitor.Stop(stopCtx); err != nil {
		logging.Warn().Err(err).Msg("Monitoring did not stop before the shutdown deadline")
	}
	return ctx.Err()
}

func (s *MonitorService) String() string {
	return "monitor-autostart"
}
