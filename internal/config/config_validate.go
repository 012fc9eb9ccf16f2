// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/moodscore/internal/logging"
	"github.com/tomtom215/moodscore/internal/validation"
)

// Validate checks struct tags first, then cross-field rules per section.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateMonitor(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMonitor() error {
	if c.Monitor.TickJitter >= c.Monitor.TickInterval {
		return fmt.Errorf("MONITOR_TICK_JITTER (%s) must be smaller than MONITOR_TICK_INTERVAL (%s)",
			c.Monitor.TickJitter, c.Monitor.TickInterval)
	}
	if c.Sampler.SampleInterval > c.Monitor.TickInterval*10 {
		return fmt.Errorf("SAMPLE_INTERVAL (%s) is more than ten ticks long; emotion readings would be mostly stale",
			c.Sampler.SampleInterval)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "badger", "duckdb":
		if c.Store.Path == "" && !c.Store.InMemory {
			return fmt.Errorf("STORE_PATH is required for the %s driver unless STORE_IN_MEMORY=true", c.Store.Driver)
		}
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.Embedded {
		return nil
	}
	if !strings.HasPrefix(c.NATS.URL, "nats://") && !strings.HasPrefix(c.NATS.URL, "tls://") {
		return fmt.Errorf("NATS_URL must start with nats:// or tls://, got %q", c.NATS.URL)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs > 0 && c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when rate limiting is enabled")
	}
	if c.Security.AdminToken != "" && len(c.Security.AdminToken) < 16 {
		return fmt.Errorf("ADMIN_TOKEN must be at least 16 characters")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a recognized level", c.Logging.Level)
	}
	return nil
}

// ToLoggingConfig converts the section into a logging.Config.
func (l LoggingConfig) ToLoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}
