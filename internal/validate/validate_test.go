// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_CollectsEveryFailure(t *testing.T) {
	v := New()
	v.Range("hz", 0, 1, 240)
	v.PositiveDuration("tick", 0)
	v.OneOf("backend", "bolt", []string{"memory", "sqlite"})
	v.FloatRange("rate", 1.5, 0, 1)
	v.LogLevel("level", "verbose")
	v.Path("path", "../etc/passwd")
	v.NotEmpty("key", " ")

	require.False(t, v.OK())
	report, ok := AsReport(v.Err())
	require.True(t, ok)
	assert.Equal(t, []string{"hz", "tick", "backend", "rate", "level", "path", "key"}, report.Fields())

	var fe FieldError
	require.True(t, errors.As(v.Err(), &fe))
	assert.Equal(t, "hz", fe.Field)
}

func TestValidator_AcceptsValidValues(t *testing.T) {
	v := New()
	v.Range("hz", 72, 1, 240)
	v.PositiveDuration("tick", 5*time.Millisecond)
	v.NonNegativeDuration("margin", 0)
	v.OneOf("backend", "sqlite", []string{"memory", "sqlite"})
	v.FloatRange("rate", 1, 0, 1)
	v.LogLevel("level", "")
	v.LogLevel("level", "DEBUG")
	v.ListenAddr("addr", "127.0.0.1:0")
	v.ListenAddr("addr", ":9944")
	v.Path("path", "data/endpoints.db")

	assert.True(t, v.OK())
	assert.NoError(t, v.Err())
}

func TestValidator_ListenAddr(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8080": true,
		":0":             true,
		"localhost":      false,
		"host:70000":     false,
		"host:http":      false,
	}
	for addr, want := range cases {
		v := New()
		v.ListenAddr("addr", addr)
		assert.Equal(t, want, v.OK(), addr)
	}
}

func TestReport_Message(t *testing.T) {
	v := New()
	v.Positive("a", 0)
	v.Reject("b", -1, "custom %s", "reason")
	assert.Equal(t,
		"invalid configuration: a: must be positive (got 0); b: custom reason (got -1)",
		v.Err().Error())
}

func TestValidator_ErrIsSnapshot(t *testing.T) {
	v := New()
	v.Positive("a", 0)
	err := v.Err()
	v.Positive("b", 0)

	report, ok := AsReport(err)
	require.True(t, ok)
	assert.Len(t, report, 1)
}
