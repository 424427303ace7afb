// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reasons a breaker opened.
const (
	TripThreshold   = "threshold"
	TripProbeFailed = "probe_failed"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamrx_circuit_breaker_state",
		Help: "Breaker position per peer: 0 closed, 1 half-open, 2 open",
	}, []string{"name"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_circuit_breaker_trips_total",
		Help: "Times a breaker opened, by reason",
	}, []string{"name", "reason"})
)

var breakerPositions = map[string]float64{"closed": 0, "half-open": 1, "open": 2}

// SetBreakerState publishes a breaker's position. Unknown states are ignored.
func SetBreakerState(name, state string) {
	if v, ok := breakerPositions[state]; ok {
		breakerState.WithLabelValues(name).Set(v)
	}
}

// IncBreakerTrip counts a transition to open.
func IncBreakerTrip(name, reason string) {
	breakerTrips.WithLabelValues(name, reason).Inc()
}
