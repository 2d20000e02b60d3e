// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"context"
	"fmt"
	"sync/atomic"
)

// maxPullPasses bounds the immediate re-pull drain when pages keep coming
// back at the row cap.
const maxPullPasses = 50

// Pull fetches incremental updates newer than the cursor and merges them.
// The cursor advances only after a page merged successfully, so a merge
// failure re-requests the same page and never loses rows. A page with any
// entity type exactly at the row cap is followed by an immediate re-pull
// (truncation guard) up to a bounded number of passes.
func (e *Engine) Pull(ctx context.Context) error {
	if atomic.LoadInt32(&e.pullPaused) == 1 {
		return nil
	}
	state := e.classifier.State()
	if state.IsOffline() {
		return nil
	}

	for pass := 0; pass < maxPullPasses; pass++ {
		truncated, err := e.pullOnce(ctx)
		if err != nil {
			return err
		}
		if !truncated {
			return nil
		}
	}
	e.logger.Warn("Pull drain hit pass limit with more data pending", "passes", maxPullPasses)
	return nil
}

func (e *Engine) pullOnce(ctx context.Context) (truncated bool, err error) {
	e.mu.Lock()
	cursor := e.cursor
	e.mu.Unlock()

	fetchStart := e.stageStart()
	resp, err := e.backend.PullUpdates(ctx, &PullUpdatesRequest{
		Cursor:  cursor,
		MaxRows: e.cfg.BackendMaxPullRows,
	})
	e.observeStage(ctx, MetricsOpPull, MetricsStageFetch, fetchStart, 0, 0, err != nil)
	if err != nil {
		return false, fmt.Errorf("failed to pull updates: %w", err)
	}

	mergeStart := e.stageStart()
	if err := e.store.CommitPage(resp); err != nil {
		// Cursor untouched: the same page will be re-requested.
		e.observeStage(ctx, MetricsOpPull, MetricsStageMerge, mergeStart, len(resp.Messages), 0, true)
		return false, fmt.Errorf("failed to merge pulled page: %w", err)
	}
	e.observeStage(ctx, MetricsOpPull, MetricsStageMerge, mergeStart, len(resp.Messages), 0, false)

	// Advance the watermark only now that the whole page is merged.
	if resp.Cursor != "" && resp.Cursor != cursor {
		e.mu.Lock()
		e.cursor = resp.Cursor
		e.mu.Unlock()
		if e.journal != nil {
			if jerr := e.journal.SaveCursor(e.UserID, resp.Cursor); jerr != nil {
				e.logger.Warn("Failed to persist cursor", "cursor", resp.Cursor, "error", jerr)
			}
		}
	}

	return resp.Truncated(e.cfg.BackendMaxPullRows), nil
}
