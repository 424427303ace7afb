// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics registers the receiver's Prometheus collectors on the
// default registry and exposes small typed helpers for recording them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tick outcomes recorded by the render loop.
const (
	TickPaced       = "paced"
	TickPresented   = "presented"
	TickNoFrame     = "no_frame"
	TickPlaceholder = "placeholder"
	TickInactive    = "inactive"
	TickDiscarded   = "discarded"
	TickOutOfOrder  = "out_of_order"
)

var (
	// RenderTicksTotal counts render loop ticks by the action they took.
	RenderTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_render_ticks_total",
		Help: "Total number of render loop ticks by outcome",
	}, []string{"outcome"})

	// FramesPresentedTotal counts decoded frames handed to the display.
	FramesPresentedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamrx_frames_presented_total",
		Help: "Total number of decoded frames presented",
	})

	// FramePacingWait tracks how long the pacer asked the loop to wait.
	FramePacingWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamrx_frame_pacing_wait_seconds",
		Help:    "Delay requested by the frame pacer before the next present",
		Buckets: []float64{0.001, 0.002, 0.004, 0.006, 0.008, 0.011, 0.014, 0.017, 0.025},
	})

	// PlaceholderRendersTotal counts placeholder renders by status.
	PlaceholderRendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_placeholder_renders_total",
		Help: "Total number of status placeholder renders by status",
	}, []string{"status"})
)

// IncRenderTick records a render tick outcome.
func IncRenderTick(outcome string) {
	RenderTicksTotal.WithLabelValues(outcome).Inc()
}

// IncFramePresented records a presented frame.
func IncFramePresented() {
	FramesPresentedTotal.Inc()
}

// ObserveFramePacingWait records a pacing delay.
func ObserveFramePacingWait(d time.Duration) {
	FramePacingWait.Observe(d.Seconds())
}

// IncPlaceholderRender records a placeholder render.
func IncPlaceholderRender(status string) {
	if status == "" {
		status = "unknown"
	}
	PlaceholderRendersTotal.WithLabelValues(status).Inc()
}
