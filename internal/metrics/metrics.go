// Package metrics defines the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IntakeTotal counts processed messages by classification kind.
	IntakeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duoledger_intake_total",
		Help: "Messages processed, labelled by classification kind.",
	}, []string{"kind"})

	// SettlementsTotal counts successful settlement operations.
	SettlementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duoledger_settlements_total",
		Help: "Successful debt settlement operations.",
	})

	// HTTPDuration observes request latency by method and route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "duoledger_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)
