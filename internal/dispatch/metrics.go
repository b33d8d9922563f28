package dispatch

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookupbot",
			Subsystem: "dispatch",
			Name:      "submissions_total",
			Help:      "Events accepted for execution.",
		},
		[]string{"shard"},
	)
	queueFullTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookupbot",
			Subsystem: "dispatch",
			Name:      "queue_full_total",
			Help:      "Enqueue attempts that timed out on a full shard.",
		},
		[]string{"shard"},
	)
	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lookupbot",
			Subsystem: "dispatch",
			Name:      "run_duration_seconds",
			Help:      "Event handling latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"shard"},
	)
	// queueDepth is written only by the owning worker goroutine.
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lookupbot",
			Subsystem: "dispatch",
			Name:      "queue_depth",
			Help:      "Current depth of each shard queue.",
		},
		[]string{"shard"},
	)
)

func labelFor(i int) string { return strconv.Itoa(i) }
