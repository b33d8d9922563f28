// Package metrics holds the prometheus collectors for the search flow and the
// chat transport. Dispatcher collectors live next to the executor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lookupbot"

// Search outcome labels.
const (
	OutcomeFound       = "found"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Lookup gateway invocations by outcome.",
		},
		[]string{"outcome"},
	)
	RefundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refunds_total",
			Help:      "Credits returned after an unavailable lookup.",
		},
	)
	DebitsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debits_rejected_total",
			Help:      "Debits refused for insufficient balance.",
		},
	)
	ResultsStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_stored_total",
			Help:      "Results persisted as new for their principal.",
		},
	)
	ResultsDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_duplicate_total",
			Help:      "Results suppressed because their identifier was already stored.",
		},
	)
	LookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lookup_duration_seconds",
			Help:      "Lookup gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	MessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound chat messages by delivery status.",
		},
		[]string{"status"},
	)
)
