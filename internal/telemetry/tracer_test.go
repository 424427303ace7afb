// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service"})
	require.NoError(t, err)
	assert.False(t, provider.Enabled())
	require.NoError(t, provider.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "invalid",
	})
	require.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1.0).Description(), "AlwaysOnSampler")
	assert.Contains(t, samplerFor(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}

func TestEndSpan_RecordsError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	provider, err := NewProviderWithExporter(context.Background(), Config{
		ServiceName:  "test-service",
		SamplingRate: 1,
	}, sdktrace.WithSyncer(exp))
	require.NoError(t, err)
	require.True(t, provider.Enabled())
	defer func() { _ = provider.Shutdown(context.Background()) }()

	_, span := Tracer("test").Start(context.Background(), "lifecycle.resume")
	span.SetAttributes(SessionAttributes("s-1", 2)...)
	EndSpan(span, errors.New("receiver refused"))

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "lifecycle.resume", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
}

func TestAttributes(t *testing.T) {
	assert.Len(t, SessionAttributes("", 1), 1)
	attrs := StreamAttributes("h265", "1920x1080", 72)
	require.Len(t, attrs, 3)
	assert.Equal(t, int64(72), attrs[2].Value.AsInt64())
	assert.Equal(t, "decoder", WorkerStep("decoder", "stop")[0].Value.AsString())
}
