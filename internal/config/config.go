// Moodscore - Emotion-Correlated Track Preference Scoring
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/moodscore

// Package config loads moodscore configuration with koanf.
//
// Sources are layered, later ones winning:
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/moodscore/config.yaml)
//  3. Environment variables (see envMappings in koanf.go)
//
// Durations accept Go syntax ("5s", "250ms") in both YAML and env vars.
package config

import "time"

// Config is the complete service configuration.
type Config struct {
	Monitor    MonitorConfig    `koanf:"monitor"`
	Sampler    SamplerConfig    `koanf:"sampler"`
	Vision     VisionConfig     `koanf:"vision"`
	Playback   PlaybackConfig   `koanf:"playback"`
	Store      StoreConfig      `koanf:"store"`
	NATS       NATSConfig       `koanf:"nats"`
	Notify     NotifyConfig     `koanf:"notify"`
	Server     ServerConfig     `koanf:"server"`
	Security   SecurityConfig   `koanf:"security"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// MonitorConfig controls the correlation loop.
type MonitorConfig struct {
	// TickInterval is the sleep between correlation ticks.
	TickInterval time.Duration `koanf:"tick_interval" validate:"gt=0"`
	// TickJitter adds a uniform random [0, TickJitter) to each sleep.
	TickJitter time.Duration `koanf:"tick_jitter" validate:"gte=0"`
	// AutoStart starts monitoring when the process starts.
	AutoStart bool `koanf:"auto_start"`
	// TrackNeutral records zero-delta readings (neutral, surprise) so their
	// counters still grow. When false they are ignored entirely.
	TrackNeutral bool `koanf:"track_neutral"`
}

// SamplerConfig controls the emotion sampler.
type SamplerConfig struct {
	// SampleInterval is the minimum time between classifications.
	SampleInterval time.Duration `koanf:"sample_interval" validate:"gt=0"`
	// CaptureRate caps frame captures per second.
	CaptureRate float64 `koanf:"capture_rate" validate:"gt=0,lte=120"`
	// StopTimeout bounds how long Stop waits for the capture loop.
	StopTimeout time.Duration `koanf:"stop_timeout" validate:"gt=0"`
}

// VisionConfig points at the camera bridge and the classifier service.
type VisionConfig struct {
	CameraIndex int `koanf:"camera_index" validate:"gte=0"`
	// FrameURL is the snapshot endpoint; "{index}" is replaced by CameraIndex.
	FrameURL      string        `koanf:"frame_url"`
	ClassifierURL string        `koanf:"classifier_url"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
}

// PlaybackConfig controls the playback client and skip detection.
type PlaybackConfig struct {
	SkipThreshold time.Duration `koanf:"skip_threshold" validate:"gt=0"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries    int           `koanf:"max_retries" validate:"gte=0,lte=10"`
	Spotify       SpotifyConfig `koanf:"spotify"`
}

// SpotifyConfig holds Web API credentials. The refresh token is exchanged
// for access tokens on demand.
type SpotifyConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RefreshToken string `koanf:"refresh_token"`
	APIURL       string `koanf:"api_url" validate:"required,url"`
	TokenURL     string `koanf:"token_url" validate:"required,url"`
}

// HasCredentials reports whether all three credentials are set.
func (s SpotifyConfig) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// StoreConfig selects and configures the score store.
type StoreConfig struct {
	Driver   string `koanf:"driver" validate:"oneof=badger duckdb memory"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
	// GCInterval only applies to badger; zero disables value log GC.
	GCInterval time.Duration `koanf:"gc_interval"`
	// MaxMemory and Threads only apply to duckdb.
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads" validate:"gte=0"`
}

// NATSConfig controls publication of score events.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	Embedded       bool          `koanf:"embedded"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port" validate:"gte=-1,lte=65535"`
	Subject        string        `koanf:"subject" validate:"required"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
	ReconnectBufMB int           `koanf:"reconnect_buffer_mb" validate:"gte=0"`
}

// NotifyConfig controls the change notifier.
type NotifyConfig struct {
	Debounce    time.Duration `koanf:"debounce" validate:"gte=0"`
	WaitTimeout time.Duration `koanf:"wait_timeout" validate:"gt=0"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig covers CORS, rate limiting and the admin token.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	// AdminToken guards destructive endpoints. Empty disables them.
	AdminToken string `koanf:"admin_token"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}
