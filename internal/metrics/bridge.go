// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BridgeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_bridge_events_total",
		Help: "Total number of session events applied by the connection bridge",
	}, []string{"event"})

	BridgeEventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_bridge_events_dropped_total",
		Help: "Total number of session events dropped by the connection bridge",
	}, []string{"event", "reason"})

	SinkPrepared = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamrx_sink_prepared",
		Help: "1 when the pipeline is ready to receive frame data, 0 otherwise",
	})

	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "streamrx_session_state",
		Help: "Current session connection state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	sessionErrored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamrx_session_error",
		Help: "1 while the session carries an error message",
	})
)

// IncBridgeEvent records an applied bridge event.
func IncBridgeEvent(event string) {
	BridgeEventsTotal.WithLabelValues(event).Inc()
}

// IncBridgeEventDropped records a dropped bridge event with a concrete reason.
func IncBridgeEventDropped(event, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BridgeEventsDroppedTotal.WithLabelValues(event, reason).Inc()
}

// SetSinkPrepared publishes the effective sink-prepared flag.
func SetSinkPrepared(prepared bool) {
	if prepared {
		SinkPrepared.Set(1)
		return
	}
	SinkPrepared.Set(0)
}

var sessionStates = []string{"disconnected", "connecting", "connected"}

// SetSessionState records the active session state and error flag.
func SetSessionState(state string, errored bool) {
	for _, s := range sessionStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		sessionState.WithLabelValues(s).Set(value)
	}
	if errored {
		sessionErrored.Set(1)
	} else {
		sessionErrored.Set(0)
	}
}
