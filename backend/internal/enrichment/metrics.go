package enrichment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lastfm_graph",
		Subsystem: "enrichment",
		Name:      "cache_requests_total",
		Help:      "Enrichment cache lookups by cache and result.",
	}, []string{"cache", "result"})

	nameLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lastfm_graph",
		Subsystem: "enrichment",
		Name:      "name_lookups_total",
		Help:      "External name lookups by resolver and outcome.",
	}, []string{"resolver", "outcome"})

	nameLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lastfm_graph",
		Subsystem: "enrichment",
		Name:      "name_lookup_duration_seconds",
		Help:      "Latency of external name lookups.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"resolver"})
)
