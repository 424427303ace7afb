// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "STREAMRX_LOG_LEVEL", envKey("", "log_level"))
	assert.Equal(t, "STREAMRX_PACING_FAST_TICK", envKey("pacing", "fast_tick"))
}

func TestOverrideFromEnv(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("unset keeps value", func(t *testing.T) {
		d := 5 * time.Millisecond
		overrideFromEnv(logger, "STREAMRX_TEST_UNSET_DURATION", &d, time.ParseDuration)
		assert.Equal(t, 5*time.Millisecond, d)
	})

	t.Run("empty keeps value", func(t *testing.T) {
		t.Setenv("STREAMRX_TEST_EMPTY", "  ")
		s := "keep"
		overrideFromEnv(logger, "STREAMRX_TEST_EMPTY", &s, parseString)
		assert.Equal(t, "keep", s)
	})

	t.Run("malformed keeps value", func(t *testing.T) {
		t.Setenv("STREAMRX_TEST_BOOL", "maybe")
		b := true
		overrideFromEnv(logger, "STREAMRX_TEST_BOOL", &b, parseBool)
		assert.True(t, b)
	})

	t.Run("valid overrides", func(t *testing.T) {
		t.Setenv("STREAMRX_TEST_FLOAT", " 0.25 ")
		f := 1.0
		overrideFromEnv(logger, "STREAMRX_TEST_FLOAT", &f, parseFloat)
		assert.InDelta(t, 0.25, f, 1e-9)
	})
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"true", "YES", "1"} {
		v, err := parseBool(in)
		require.NoError(t, err)
		assert.True(t, v, in)
	}
	for _, in := range []string{"false", "No", "0"} {
		v, err := parseBool(in)
		require.NoError(t, err)
		assert.False(t, v, in)
	}
	_, err := parseBool("on")
	assert.Error(t, err)
}

func TestLoader_TracksConsumedKeys(t *testing.T) {
	l := NewLoader("")
	_, err := l.Load()
	require.NoError(t, err)
	assert.Contains(t, l.ConsumedEnvKeys, "STREAMRX_PACING_FAST_TICK")
	assert.Contains(t, l.ConsumedEnvKeys, "STREAMRX_LOG_FORMAT")
}
