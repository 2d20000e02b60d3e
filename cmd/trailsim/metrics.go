// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trailbeacon/go-trailsync/trailsync"
)

// promRecorder exports engine stage timings as prometheus metrics.
type promRecorder struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
}

func newPromRecorder(reg *prometheus.Registry) *promRecorder {
	r := &promRecorder{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trailsim",
			Name:      "sync_stage_duration_seconds",
			Help:      "Duration of sync engine stages",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "stage"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trailsim",
			Name:      "sync_stage_errors_total",
			Help:      "Sync engine stage failures",
		}, []string{"operation", "stage"}),
	}
	reg.MustRegister(r.stageDuration, r.stageErrors)
	return r
}

func (r *promRecorder) ObserveStage(ctx context.Context, timing trailsync.StageTiming) {
	r.stageDuration.WithLabelValues(timing.Operation, timing.Stage).Observe(timing.Duration.Seconds())
	if timing.Error {
		r.stageErrors.WithLabelValues(timing.Operation, timing.Stage).Inc()
	}
}
