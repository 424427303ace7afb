// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "streamrx/session"

	// TransitionsMetric counts applied session state machine events.
	TransitionsMetric = "streamrx.session.transitions"

	TransitionEventKey = "session.event"
	TransitionFromKey  = "session.state.from"
	TransitionToKey    = "session.state.to"
)

// RecordTransition counts one session state machine step. The meter is
// looked up per call so a provider installed later still receives it.
func RecordTransition(ctx context.Context, event, from, to string) {
	counter, err := otel.GetMeterProvider().Meter(meterName).Int64Counter(
		TransitionsMetric,
		metric.WithDescription("Session state machine transitions"),
	)
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(TransitionEventKey, event),
		attribute.String(TransitionFromKey, from),
		attribute.String(TransitionToKey, to),
	))
}
