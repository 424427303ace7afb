// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoopQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamrx_loop_queue_depth",
		Help: "Number of tasks waiting on the serialized task queue",
	})

	LoopTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamrx_loop_task_duration_seconds",
		Help:    "Execution time of serialized loop tasks",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.1, 1},
	})

	LoopTasksCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamrx_loop_tasks_cancelled_total",
		Help: "Total number of scheduled tasks superseded or cancelled before running",
	})
)
