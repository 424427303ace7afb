// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the receiver configuration and reloads it when the
// file changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/streamrx/internal/log"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownConfigField marks strict YAML failures caused by unknown keys.
	ErrUnknownConfigField = errors.New("unknown config field")
	// ErrUnsupportedFormat is returned for config files that are not YAML.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Loader resolves an AppConfig from defaults, an optional YAML file and
// STREAMRX_* environment variables, in rising precedence.
type Loader struct {
	configPath      string
	logger          zerolog.Logger
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader. An empty path means defaults plus environment.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		logger:          log.WithComponent("config"),
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the watched config file path.
func (l *Loader) Path() string { return l.configPath }

// consume records that the key for section/name was read.
func (l *Loader) consume(section, name string) string {
	k := envKey(section, name)
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Default()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes the YAML file over cfg. Unknown fields are rejected.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("strict config parse error: %w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// mergeEnv overrides cfg from STREAMRX_* environment variables.
func (l *Loader) mergeEnv(cfg *AppConfig) {
	l.envString("", "log_level", &cfg.LogLevel)
	l.envString("", "log_format", &cfg.LogFormat)
	l.envString("", "log_service", &cfg.LogService)
	l.envString("", "version_label", &cfg.VersionLabel)

	p := &cfg.Pacing
	l.envDuration("pacing", "fast_tick", &p.FastTick)
	l.envDuration("pacing", "idle_tick", &p.IdleTick)
	l.envDuration("pacing", "placeholder_tick", &p.PlaceholderTick)
	l.envDuration("pacing", "safety_margin", &p.SafetyMargin)
	l.envInt("pacing", "default_refresh_hz", &p.DefaultRefreshHz)
	l.envBool("pacing", "discard_stale_frames", &p.DiscardStaleFrames)

	l.envDuration("lifecycle", "stop_timeout", &cfg.Lifecycle.StopTimeout)

	s := &cfg.Store
	l.envString("store", "backend", &s.Backend)
	l.envString("store", "path", &s.Path)
	l.envString("store", "redis_addr", &s.RedisAddr)
	l.envString("store", "redis_key", &s.RedisKey)

	lc := &cfg.Launcher
	l.envString("launcher", "listen_addr", &lc.ListenAddr)
	l.envDuration("launcher", "command_timeout", &lc.CommandTimeout)
	l.envInt("launcher", "breaker_threshold", &lc.BreakerThreshold)
	l.envDuration("launcher", "breaker_reset", &lc.BreakerReset)

	l.envString("diagnostics", "listen_addr", &cfg.Diagnostics.ListenAddr)
	l.envInt("diagnostics", "rate_limit", &cfg.Diagnostics.RateLimit)

	t := &cfg.Telemetry
	l.envBool("telemetry", "enabled", &t.Enabled)
	l.envString("telemetry", "exporter", &t.Exporter)
	l.envString("telemetry", "endpoint", &t.Endpoint)
	l.envFloat("telemetry", "sampling_rate", &t.SamplingRate)

	sim := &cfg.Sim
	l.envBool("sim", "enabled", &sim.Enabled)
	l.envInt("sim", "width", &sim.Width)
	l.envInt("sim", "height", &sim.Height)
	l.envString("sim", "codec", &sim.Codec)
	l.envInt("sim", "refresh_hz", &sim.RefreshHz)
	l.envInt("sim", "decode_fps", &sim.DecodeFPS)
	l.envDuration("sim", "connect_delay", &sim.ConnectDelay)
	l.envInt("sim", "frame_queue_size", &sim.FrameQueueSize)
}
