package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch processing metrics
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctorwatch_batches_total",
			Help: "Total number of observation batches processed",
		},
		[]string{"category", "status"},
	)

	ScoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proctorwatch_score_duration_seconds",
			Help:    "Duration of category scoring in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	// Flag metrics
	FlagsRaisedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proctorwatch_flags_raised_total",
			Help: "Total number of flags raised",
		},
		[]string{"severity"},
	)

	// Storage metrics
	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctorwatch_storage_errors_total",
			Help: "Total number of durable flag write failures",
		},
	)

	// Snapshot cache metrics
	SnapshotWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctorwatch_snapshot_writes_total",
			Help: "Total number of session snapshot writes",
		},
	)

	SnapshotCacheErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "proctorwatch_snapshot_cache_errors_total",
			Help: "Total number of snapshot cache failures (non-fatal)",
		},
	)
)
