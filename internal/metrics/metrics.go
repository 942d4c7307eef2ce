// Package metrics exposes Prometheus instrumentation for pipeline runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts finished pipeline runs by outcome ("success" or the failing stage).
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifmaker_runs_total",
		Help: "Total number of pipeline runs, by outcome",
	}, []string{"outcome"})

	// StageDuration observes how long each pipeline stage takes.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gifmaker_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	}, []string{"stage"})

	// FramesExtractedTotal counts frames decoded from source videos.
	FramesExtractedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifmaker_frames_extracted_total",
		Help: "Total number of frames extracted across all runs",
	})

	// FramesRetainedTotal counts frames kept by the sampler.
	FramesRetainedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gifmaker_frames_retained_total",
		Help: "Total number of frames retained after sampling",
	})

	// JobsFinishedTotal counts HTTP jobs reaching a terminal status.
	JobsFinishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifmaker_jobs_finished_total",
		Help: "Total number of HTTP jobs finished, by status",
	}, []string{"status"})

	// ActiveRuns is the number of pipeline runs in progress.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gifmaker_active_runs",
		Help: "Number of pipeline runs currently in progress",
	})
)
