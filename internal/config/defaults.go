// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreBadger = "badger"
	StoreRedis  = "redis"
)

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Trace exporters.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// Default returns the configuration used when neither file nor environment
// set a value.
func Default() AppConfig {
	return AppConfig{
		LogLevel:     "info",
		LogFormat:    LogFormatJSON,
		LogService:   "streamrx",
		VersionLabel: "streamrx",
		Pacing: PacingConfig{
			FastTick:         5 * time.Millisecond,
			IdleTick:         50 * time.Millisecond,
			PlaceholderTick:  100 * time.Millisecond,
			SafetyMargin:     5 * time.Millisecond,
			DefaultRefreshHz: 60,
		},
		Lifecycle: LifecycleConfig{
			StopTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Backend:  StoreMemory,
			RedisKey: "streamrx:endpoint",
		},
		Launcher: LauncherConfig{
			ListenAddr:       "127.0.0.1:9944",
			CommandTimeout:   2 * time.Second,
			BreakerThreshold: 3,
			BreakerReset:     10 * time.Second,
		},
		Diagnostics: DiagnosticsConfig{
			ListenAddr: "127.0.0.1:9945",
			RateLimit:  60,
		},
		Telemetry: TelemetryConfig{
			Exporter:     ExporterGRPC,
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
		Sim: SimConfig{
			Width:          1920,
			Height:         1080,
			Codec:          "h264",
			RefreshHz:      72,
			DecodeFPS:      72,
			ConnectDelay:   time.Second,
			FrameQueueSize: 3,
		},
	}
}
