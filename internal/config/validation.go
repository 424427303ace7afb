// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/streamrx/internal/validate"
)

// Validate checks cross-field constraints the loader cannot express.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("log_level", cfg.LogLevel)
	v.OneOf("log_format", cfg.LogFormat, []string{LogFormatJSON, LogFormatConsole})

	p := cfg.Pacing
	v.PositiveDuration("pacing.fast_tick", p.FastTick)
	v.PositiveDuration("pacing.idle_tick", p.IdleTick)
	v.PositiveDuration("pacing.placeholder_tick", p.PlaceholderTick)
	v.NonNegativeDuration("pacing.safety_margin", p.SafetyMargin)
	v.Range("pacing.default_refresh_hz", p.DefaultRefreshHz, 1, 1000)
	if p.FastTick > 0 && p.IdleTick < p.FastTick {
		v.Reject("pacing.idle_tick", p.IdleTick, "must not be shorter than pacing.fast_tick (%s)", p.FastTick)
	}

	v.PositiveDuration("lifecycle.stop_timeout", cfg.Lifecycle.StopTimeout)

	s := cfg.Store
	v.OneOf("store.backend", s.Backend, []string{StoreMemory, StoreFile, StoreSQLite, StoreBadger, StoreRedis})
	v.Path("store.path", s.Path)
	if s.Backend == StoreRedis {
		v.NotEmpty("store.redis_addr", s.RedisAddr)
	}

	if cfg.Launcher.ListenAddr != "" {
		v.ListenAddr("launcher.listen_addr", cfg.Launcher.ListenAddr)
		v.PositiveDuration("launcher.command_timeout", cfg.Launcher.CommandTimeout)
		v.Positive("launcher.breaker_threshold", cfg.Launcher.BreakerThreshold)
		v.PositiveDuration("launcher.breaker_reset", cfg.Launcher.BreakerReset)
	}

	if cfg.Diagnostics.ListenAddr != "" {
		v.ListenAddr("diagnostics.listen_addr", cfg.Diagnostics.ListenAddr)
		v.Positive("diagnostics.rate_limit", cfg.Diagnostics.RateLimit)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{ExporterGRPC, ExporterHTTP})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
	}
	v.FloatRange("telemetry.sampling_rate", cfg.Telemetry.SamplingRate, 0, 1)

	if cfg.Sim.Enabled {
		sim := cfg.Sim
		v.Positive("sim.width", sim.Width)
		v.Positive("sim.height", sim.Height)
		v.OneOf("sim.codec", sim.Codec, []string{"h264", "h265"})
		v.Range("sim.refresh_hz", sim.RefreshHz, 1, 1000)
		v.Range("sim.decode_fps", sim.DecodeFPS, 1, 1000)
		v.NonNegativeDuration("sim.connect_delay", sim.ConnectDelay)
		v.Positive("sim.frame_queue_size", sim.FrameQueueSize)
	}

	return v.Err()
}
