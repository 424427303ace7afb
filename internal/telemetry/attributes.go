// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	SessionIDKey         = "session.id"
	SessionGenerationKey = "session.generation"

	StreamCodecKey      = "stream.codec"
	StreamResolutionKey = "stream.resolution"
	StreamRefreshHzKey  = "stream.refresh_hz"

	WorkerKey     = "worker.name"
	WorkerStepKey = "worker.step"

	ErrorTypeKey = "error.type"
)

// SessionAttributes identifies the session a span belongs to.
func SessionAttributes(id string, generation uint64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if id != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, id))
	}
	return append(attrs, attribute.Int64(SessionGenerationKey, int64(generation)))
}

// StreamAttributes describes negotiated stream parameters.
func StreamAttributes(codec, resolution string, refreshHz int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(StreamCodecKey, codec),
		attribute.String(StreamResolutionKey, resolution),
		attribute.Int(StreamRefreshHzKey, refreshHz),
	}
}

// WorkerStep marks a lifecycle step (e.g. "decoder.stop") as a span event attribute.
func WorkerStep(worker, step string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(WorkerKey, worker),
		attribute.String(WorkerStepKey, step),
	}
}
