package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsSeen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_submissions_seen_total",
		Help: "The total number of submissions surfaced by the ingestion stream",
	}, []string{"subreddit"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bridge_deliveries_total",
		Help: "The total number of delivery attempts by terminal status",
	}, []string{"status"})

	SendRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_send_retries_total",
		Help: "The total number of Telegram send retries after transient failures",
	})

	SendFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_send_fallbacks_total",
		Help: "The total number of sends redirected to the group default after a closed topic",
	})

	MediaFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bridge_media_fetch_duration_seconds",
		Help:    "Duration of source media downloads",
		Buckets: prometheus.DefBuckets,
	})

	DedupEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_dedup_entries",
		Help: "Number of submission IDs in the dedup store",
	})

	StreamRestarts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bridge_stream_restarts_total",
		Help: "The total number of ingestion stream restarts after errors",
	})
)

// Delivery status label values.
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusDuplicate = "duplicate"
)
