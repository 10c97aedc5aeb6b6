package briefapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values.
const (
	StatusOK          = "200"
	StatusNoContent   = "204"
	StatusNotModified = "304"
	StatusBadMethod   = "405"
	StatusLimited     = "429"
	StatusError       = "500"
)

var (
	// HitsTotal counts brief requests by HTTP status code.
	HitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brief_api_hits_total",
		Help: "Total number of brief API requests",
	}, []string{"status"})

	// LatencyHistogram measures request latency, including pipeline runs on
	// cache misses.
	LatencyHistogram = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brief_api_latency_seconds",
		Help:    "Latency of brief API requests",
		Buckets: []float64{0.005, 0.05, 0.25, 1, 2.5, 5, 10, 20, 30},
	})
)
