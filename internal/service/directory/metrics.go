package directory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeFailure   = "failure"
	outcomeDiscarded = "discarded"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "fetches_total",
			Help:      "Users fetches by settle outcome.",
		},
		[]string{"outcome"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "directory",
			Name:      "fetch_duration_seconds",
			Help:      "Time from fetch start to settle.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	searchUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "search_updates_total",
			Help:      "Search term updates applied to mounted views.",
		},
	)
)
