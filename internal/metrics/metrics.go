// Package metrics exposes the Prometheus collectors shared by the services
// and the HTTP layer. Collectors are registered on the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumeforge_http_requests_total",
		Help: "Total HTTP requests processed, labeled by route and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resumeforge_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 15, 60},
	}, []string{"method", "route"})

	LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumeforge_ledger_operations_total",
		Help: "Credit ledger operations, labeled by operation and outcome",
	}, []string{"operation", "outcome"})

	GenerationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumeforge_generations_total",
		Help: "Generation transactions, labeled by final outcome",
	}, []string{"outcome"})

	GeneratorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resumeforge_generator_call_duration_seconds",
		Help:    "Latency of calls to the external document generator",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	})

	PersistenceDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resumeforge_persistence_degraded_total",
		Help: "Storage failures after a successful generation that were logged and not reported to the caller",
	}, []string{"step"})

	ExtractionSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "resumeforge_extraction_sessions",
		Help: "Extraction sessions currently held in memory",
	})
)
