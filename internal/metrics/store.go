// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var EndpointStoreOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "streamrx_endpoint_store_ops_total",
	Help: "Total number of endpoint store operations by backend, op and result",
}, []string{"backend", "op", "result"})

// IncEndpointStoreOp records an endpoint store operation.
func IncEndpointStoreOp(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	EndpointStoreOpsTotal.WithLabelValues(backend, op, result).Inc()
}
