// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"context"
	"time"
)

const (
	MetricsOpFlush = "flush"
	MetricsOpPull  = "pull"

	// Flush stages.
	MetricsStageBatchSend = "batch_send"
	MetricsStageApplyAcks = "apply_acks"

	// Pull stages.
	MetricsStageFetch = "fetch"
	MetricsStageMerge = "merge"
)

type StageTiming struct {
	Operation string
	Stage     string
	Duration  time.Duration
	Count     int
	Attempt   int
	Error     bool
}

type StageMetricsRecorder interface {
	ObserveStage(ctx context.Context, timing StageTiming)
}

type StageMetricsRecorderFunc func(ctx context.Context, timing StageTiming)

func (f StageMetricsRecorderFunc) ObserveStage(ctx context.Context, timing StageTiming) {
	f(ctx, timing)
}

func (e *Engine) stageStart() time.Time {
	if e.metrics == nil {
		return time.Time{}
	}
	return time.Now()
}

func (e *Engine) observeStage(ctx context.Context, op, stage string, start time.Time, count, attempt int, hadError bool) {
	if start.IsZero() || e.metrics == nil {
		return
	}
	e.metrics.ObserveStage(ctx, StageTiming{
		Operation: op,
		Stage:     stage,
		Duration:  time.Since(start),
		Count:     count,
		Attempt:   attempt,
		Error:     hadError,
	})
}
