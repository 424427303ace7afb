// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/streamrx/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "streamrx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5*time.Millisecond, cfg.Pacing.FastTick)
	assert.Equal(t, 50*time.Millisecond, cfg.Pacing.IdleTick)
	assert.Equal(t, 100*time.Millisecond, cfg.Pacing.PlaceholderTick)
	assert.False(t, cfg.Pacing.DiscardStaleFrames)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
pacing:
  fast_tick: 2ms
  idle_tick: 40ms
store:
  backend: sqlite
  path: /var/lib/streamrx/endpoint.sqlite
`)
	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Millisecond, cfg.Pacing.FastTick)
	assert.Equal(t, 40*time.Millisecond, cfg.Pacing.IdleTick)
	assert.Equal(t, 100*time.Millisecond, cfg.Pacing.PlaceholderTick, "unset keys keep defaults")
	assert.Equal(t, StoreSQLite, cfg.Store.Backend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "pacing:\n  fast_tick: 2ms\n")
	t.Setenv("STREAMRX_PACING_FAST_TICK", "3ms")
	t.Setenv("STREAMRX_PACING_DISCARD_STALE_FRAMES", "yes")
	t.Setenv("STREAMRX_TELEMETRY_SAMPLING_RATE", "0.25")
	t.Setenv("STREAMRX_LOG_LEVEL", "warn")

	l := NewLoader(path)
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Millisecond, cfg.Pacing.FastTick)
	assert.True(t, cfg.Pacing.DiscardStaleFrames)
	assert.InDelta(t, 0.25, cfg.Telemetry.SamplingRate, 1e-9)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Contains(t, l.ConsumedEnvKeys, "STREAMRX_PACING_FAST_TICK")
	assert.Contains(t, l.ConsumedEnvKeys, "STREAMRX_LOG_LEVEL")
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("STREAMRX_PACING_IDLE_TICK", "soon")
	t.Setenv("STREAMRX_PACING_DEFAULT_REFRESH_HZ", "")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Pacing.IdleTick)
	assert.Equal(t, 60, cfg.Pacing.DefaultRefreshHz)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, "pacing:\n  fastest_tick: 1ms\n")
	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField))
}

func TestLoad_NonYAMLRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamrx.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path).Load()
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader(writeConfig(t, "")).Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MultipleDocumentsRejected(t *testing.T) {
	_, err := NewLoader(writeConfig(t, "log_level: info\n---\nlog_level: debug\n")).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"zero fast tick", func(c *AppConfig) { c.Pacing.FastTick = 0 }, "pacing.fast_tick"},
		{"idle shorter than fast", func(c *AppConfig) { c.Pacing.IdleTick = time.Millisecond }, "pacing.idle_tick"},
		{"negative margin", func(c *AppConfig) { c.Pacing.SafetyMargin = -time.Millisecond }, "pacing.safety_margin"},
		{"unknown backend", func(c *AppConfig) { c.Store.Backend = "bolt" }, "store.backend"},
		{"redis without addr", func(c *AppConfig) { c.Store.Backend = StoreRedis }, "store.redis_addr"},
		{"unknown exporter", func(c *AppConfig) {
			c.Telemetry.Enabled = true
			c.Telemetry.Exporter = "zipkin"
		}, "telemetry.exporter"},
		{"sampling above one", func(c *AppConfig) { c.Telemetry.SamplingRate = 1.5 }, "telemetry.sampling_rate"},
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "log_level"},
		{"bad launcher addr", func(c *AppConfig) { c.Launcher.ListenAddr = "nowhere" }, "launcher.listen_addr"},
		{"sim codec", func(c *AppConfig) {
			c.Sim.Enabled = true
			c.Sim.Codec = "vp9"
		}, "sim.codec"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			report, ok := validate.AsReport(err)
			require.True(t, ok)
			assert.Contains(t, report.Fields(), tt.field)
		})
	}
}

func TestValidate_DisabledSectionsSkipped(t *testing.T) {
	cfg := Default()
	cfg.Launcher.ListenAddr = ""
	cfg.Launcher.BreakerThreshold = 0
	cfg.Diagnostics.ListenAddr = ""
	cfg.Sim.Codec = "vp9"
	require.NoError(t, Validate(cfg))
}
