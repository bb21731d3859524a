package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileguard",
		Name:      "operations_submitted_total",
		Help:      "Operations submitted, by kind and gate decision.",
	}, []string{"kind", "decision"})

	OperationsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileguard",
		Name:      "operations_executed_total",
		Help:      "Operations executed, by kind and final status.",
	}, []string{"kind", "status"})

	Rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fileguard",
		Name:      "rollbacks_total",
		Help:      "Rollback attempts, by kind and outcome.",
	}, []string{"kind", "outcome"})

	IntegrityFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fileguard",
		Name:      "integrity_failures_total",
		Help:      "Checksum mismatches detected during execution or rollback.",
	})

	TrashEntriesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fileguard",
		Name:      "trash_entries_purged_total",
		Help:      "Trash entries removed by the retention sweeper.",
	})

	TrashBytesFreed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fileguard",
		Name:      "trash_bytes_freed_total",
		Help:      "Bytes reclaimed by the retention sweeper.",
	})

	ExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fileguard",
		Name:      "execution_duration_seconds",
		Help:      "Wall time spent executing approved operations.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"kind"})
)
