// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/moodscore/config.yaml",
	"/etc/moodscore/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Monitor: MonitorConfig{
			TickInterval: 5 * time.Second,
			TickJitter:   0,
			AutoStart:    false,
			TrackNeutral: true,
		},
		Sampler: SamplerConfig{
			SampleInterval: 1 * time.Second,
			CaptureRate:    30,
			StopTimeout:    2 * time.Second,
		},
		Vision: VisionConfig{
			CameraIndex:   0,
			FrameURL:      "http://127.0.0.1:8090/cameras/{index}/snapshot",
			ClassifierURL: "http://127.0.0.1:8091/v1/classify",
			Timeout:       3 * time.Second,
		},
		Playback: PlaybackConfig{
			SkipThreshold: 10 * time.Second,
			Timeout:       10 * time.Second,
			MaxRetries:    3,
			Spotify: SpotifyConfig{
				APIURL:   "https://api.spotify.com/v1",
				TokenURL: "https://accounts.spotify.com/api/token",
			},
		},
		Store: StoreConfig{
			Driver:     "badger",
			Path:       "/data/moodscore",
			GCInterval: 10 * time.Minute,
			MaxMemory:  "512MB",
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			Embedded:       false,
			Host:           "127.0.0.1",
			Port:           4222,
			Subject:        "moodscore.scores.changed",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			ReconnectBufMB: 8,
		},
		Notify: NotifyConfig{
			Debounce:    250 * time.Millisecond,
			WaitTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    45 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads defaults, the optional config file and the environment, then
// validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from env vars as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Monitor
	"monitor_tick_interval": "monitor.tick_interval",
	"monitor_tick_jitter":   "monitor.tick_jitter",
	"monitor_auto_start":    "monitor.auto_start",
	"monitor_track_neutral": "monitor.track_neutral",

	// Sampler
	"sample_interval":      "sampler.sample_interval",
	"sampler_capture_rate": "sampler.capture_rate",
	"sampler_stop_timeout": "sampler.stop_timeout",

	// Vision
	"camera_index":          "vision.camera_index",
	"vision_frame_url":      "vision.frame_url",
	"vision_classifier_url": "vision.classifier_url",
	"vision_timeout":        "vision.timeout",

	// Playback
	"skip_threshold":        "playback.skip_threshold",
	"playback_timeout":      "playback.timeout",
	"playback_max_retries":  "playback.max_retries",
	"spotify_client_id":     "playback.spotify.client_id",
	"spotify_client_secret": "playback.spotify.client_secret",
	"spotify_refresh_token": "playback.spotify.refresh_token",
	"spotify_api_url":       "playback.spotify.api_url",
	"spotify_token_url":     "playback.spotify.token_url",

	// Store
	"store_driver":      "store.driver",
	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_gc_interval": "store.gc_interval",
	"duckdb_max_memory": "store.max_memory",
	"duckdb_threads":    "store.threads",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_subject":        "nats.subject",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	// Notify
	"notify_debounce":     "notify.debounce",
	"notify_wait_timeout": "notify.wait_timeout",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"admin_token":         "security.admin_token",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
