// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment key, e.g. STREAMRX_PACING_FAST_TICK.
const EnvPrefix = "STREAMRX_"

// envKey builds the variable name for a setting. Top-level settings pass an
// empty section.
func envKey(section, name string) string {
	if section == "" {
		return EnvPrefix + strings.ToUpper(name)
	}
	return EnvPrefix + strings.ToUpper(section) + "_" + strings.ToUpper(name)
}

// overrideFromEnv replaces *dst with the parsed value of key. Unset, empty and
// malformed values leave *dst untouched.
func overrideFromEnv[T any](logger zerolog.Logger, key string, dst *T, parse func(string) (T, error)) {
	raw, ok := os.LookupEnv(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return
	}
	v, err := parse(raw)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Str("value", raw).Msg("ignoring malformed environment override")
		return
	}
	*dst = v

	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if !sensitiveKey(key) {
		ev = ev.Interface("value", v)
	}
	ev.Msg("config value overridden")
}

func sensitiveKey(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "secret") || strings.Contains(k, "token")
}

func parseString(s string) (string, error) { return s, nil }

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

// parseBool accepts true/false, 1/0 and yes/no in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func (l *Loader) envString(section, name string, dst *string) {
	overrideFromEnv(l.logger, l.consume(section, name), dst, parseString)
}

func (l *Loader) envInt(section, name string, dst *int) {
	overrideFromEnv(l.logger, l.consume(section, name), dst, strconv.Atoi)
}

func (l *Loader) envBool(section, name string, dst *bool) {
	overrideFromEnv(l.logger, l.consume(section, name), dst, parseBool)
}

func (l *Loader) envDuration(section, name string, dst *time.Duration) {
	overrideFromEnv(l.logger, l.consume(section, name), dst, time.ParseDuration)
}

func (l *Loader) envFloat(section, name string, dst *float64) {
	overrideFromEnv(l.logger, l.consume(section, name), dst, parseFloat)
}
