// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the full receiver configuration.
type AppConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	LogService   string `yaml:"log_service"`
	VersionLabel string `yaml:"version_label"`

	Pacing      PacingConfig      `yaml:"pacing"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle"`
	Store       StoreConfig       `yaml:"store"`
	Launcher    LauncherConfig    `yaml:"launcher"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Sim         SimConfig         `yaml:"sim"`
}

// PacingConfig tunes the render tick intervals and the frame pacer.
type PacingConfig struct {
	FastTick           time.Duration `yaml:"fast_tick"`
	IdleTick           time.Duration `yaml:"idle_tick"`
	PlaceholderTick    time.Duration `yaml:"placeholder_tick"`
	SafetyMargin       time.Duration `yaml:"safety_margin"`
	DefaultRefreshHz   int           `yaml:"default_refresh_hz"`
	DiscardStaleFrames bool          `yaml:"discard_stale_frames"`
}

// LifecycleConfig bounds the blocking worker stops.
type LifecycleConfig struct {
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// StoreConfig selects the endpoint store backend.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
}

// LauncherConfig configures the side-channel socket.
type LauncherConfig struct {
	ListenAddr       string        `yaml:"listen_addr"`
	CommandTimeout   time.Duration `yaml:"command_timeout"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
}

// DiagnosticsConfig configures the metrics/health HTTP server.
// An empty ListenAddr disables it.
type DiagnosticsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	RateLimit  int    `yaml:"rate_limit"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// SimConfig drives the simulated decoder, receiver and display used when
// no hardware is attached.
type SimConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
	Codec          string        `yaml:"codec"`
	RefreshHz      int           `yaml:"refresh_hz"`
	DecodeFPS      int           `yaml:"decode_fps"`
	ConnectDelay   time.Duration `yaml:"connect_delay"`
	FrameQueueSize int           `yaml:"frame_queue_size"`
}
