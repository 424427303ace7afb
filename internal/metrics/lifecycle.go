// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_worker_start_total",
		Help: "Total number of worker start attempts by worker and result",
	}, []string{"worker", "result"})

	WorkerStopDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamrx_worker_stop_duration_seconds",
		Help:    "Time spent blocking on a worker stop",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"worker"})

	WorkerStopErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrx_worker_stop_errors_total",
		Help: "Total number of worker stops that reported an error",
	}, []string{"worker"})
)

// IncWorkerStart records a worker start outcome.
func IncWorkerStart(worker string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	WorkerStartTotal.WithLabelValues(worker, result).Inc()
}

// ObserveWorkerStop records a completed worker stop.
func ObserveWorkerStop(worker string, d time.Duration, err error) {
	WorkerStopDuration.WithLabelValues(worker).Observe(d.Seconds())
	if err != nil {
		WorkerStopErrorsTotal.WithLabelValues(worker).Inc()
	}
}
