package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActionsRun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_actions_total",
		Help: "The total number of digest actions run, by outcome",
	}, []string{"action", "status"})

	RecordsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_records_fetched_total",
		Help: "The total number of activity records fetched from OSMCha",
	}, []string{"source"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mapcomplete_digest_fetch_duration_seconds",
		Help:    "Duration of upstream HTTP requests",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 180},
	}, []string{"source"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_cache_lookups_total",
		Help: "On-disk cache lookups by namespace and result",
	}, []string{"namespace", "result"})

	MessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_messages_published_total",
		Help: "The total number of thread messages published, by block",
	}, []string{"block"})

	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_image_uploads_total",
		Help: "Image upload attempts by outcome",
	}, []string{"status"})

	ContributorsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_contributors_skipped_total",
		Help: "Contributors left out of the contributors block",
	}, []string{"reason"})

	OperatorNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mapcomplete_digest_operator_notifications_total",
		Help: "Failure reports sent to the operator, by channel and outcome",
	}, []string{"channel", "status"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mapcomplete_digest_last_run_timestamp_seconds",
		Help: "Unix time at which the last run finished",
	})
)

// Label values shared by several metrics.
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusRetried = "retried"
	StatusDropped = "dropped"

	CacheHit  = "hit"
	CacheMiss = "miss"
)
