package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codezap_runs_total",
		Help: "Total number of pipeline runs, labeled by mode and overall status.",
	}, []string{"mode", "status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codezap_stage_seconds",
		Help:    "Time spent executing a single pipeline stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	FilesScanned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codezap_files_scanned",
		Help: "Number of source files produced by the last tree scan.",
	})

	SnapshotsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codezap_snapshots_total",
		Help: "Total number of backup snapshots created.",
	})

	SnapshotBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codezap_snapshot_bytes",
		Help:    "Total bytes copied into a backup snapshot.",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
	})

	RestoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codezap_restores_total",
		Help: "Total number of snapshot restore attempts, labeled by outcome.",
	}, []string{"outcome"})

	ToolInvocationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codezap_tool_invocations_total",
		Help: "External tool invocations, labeled by tool and outcome.",
	}, []string{"tool", "outcome"})

	DependencyFindings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "codezap_dependency_findings",
		Help: "Dependency findings from the last analysis, labeled by classification.",
	}, []string{"classification"})
)
