package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks listing pages fetched by outcome (ok, empty, error)
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sifter_pages_fetched_total",
			Help: "Total number of listing pages fetched",
		},
		[]string{"outcome"},
	)

	// ItemsProcessed tracks work items by outcome (accepted, rejected, failed, skipped, retried)
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sifter_items_processed_total",
			Help: "Total number of work items processed",
		},
		[]string{"outcome"},
	)

	// Escalations tracks batch escalation faults (one per healing handoff)
	Escalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sifter_escalations_total",
			Help: "Total number of batch escalations that triggered healing",
		},
	)

	// Generation tracks the healing generation of the current process
	Generation = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sifter_generation",
			Help: "Healing generation of the current process (0 = root)",
		},
	)

	// ClassifyLatency tracks classification call latency
	ClassifyLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sifter_classify_latency_seconds",
			Help:    "Classification call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)
