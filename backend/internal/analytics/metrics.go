package analytics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "lastfm_graph",
	Subsystem: "analytics",
	Name:      "stage_duration_seconds",
	Help:      "Wall time of report and benchmark stages.",
	Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
}, []string{"operation", "stage"})

// observeStage records the time since start for an operation stage.
func observeStage(operation, stage string, start time.Time) {
	stageDuration.WithLabelValues(operation, stage).Observe(time.Since(start).Seconds())
}
