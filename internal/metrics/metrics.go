// Package metrics provides Prometheus metrics for the dump job.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DumpAttempts tracks job runs by outcome.
	DumpAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ovh_dump_attempts_total",
		Help: "Total number of dump runs by outcome",
	}, []string{"status"})

	// PhaseDuration tracks how long each phase of a run takes.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ovh_dump_phase_duration_seconds",
		Help:    "Duration of dump phases in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17min
	}, []string{"phase"})

	// PollAttempts counts listings made while waiting for a new dump.
	PollAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ovh_dump_poll_attempts_total",
		Help: "Total number of dump listings issued while waiting for completion",
	})

	// ArtifactSize tracks the size of the last downloaded dump.
	ArtifactSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ovh_dump_artifact_size_bytes",
		Help: "Size of the last downloaded dump in bytes",
	})

	// LastDumpID is the OVH id of the last dump handled.
	LastDumpID = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ovh_dump_last_id",
		Help: "OVH id of the last dump downloaded",
	})

	// StorageOperations tracks mirror storage operations.
	StorageOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ovh_dump_storage_operations_total",
		Help: "Total number of mirror storage operations",
	}, []string{"operation", "provider", "status"})

	// RespawnBlocked counts runs that reused a recent dump instead of creating one.
	RespawnBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ovh_dump_respawn_blocked_total",
		Help: "Total number of dump creations skipped by respawn protection",
	})

	// LastSuccessTimestamp tracks when the last successful run finished.
	LastSuccessTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ovh_dump_last_success_timestamp",
		Help: "Unix timestamp of the last successful run",
	})

	// MirrorDeleted tracks the number of expired mirror objects deleted.
	MirrorDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ovh_dump_mirror_deleted_total",
		Help: "Total number of expired mirrored dumps deleted",
	})

	// Info provides static information about the job.
	Info = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ovh_dump_info",
		Help: "Information about the dump job",
	}, []string{"version", "service", "database", "storage_provider"})
)

// RecordDumpAttempt records a run with its outcome label, e.g. "success",
// "timeout", "unavailable" or "failure".
func RecordDumpAttempt(status string) {
	DumpAttempts.WithLabelValues(status).Inc()
}

// RecordStorageOperation records a mirror storage operation.
func RecordStorageOperation(operation, provider string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	StorageOperations.WithLabelValues(operation, provider, status).Inc()
}
