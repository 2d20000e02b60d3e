// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Flush drains the pending queue in policy-sized oldest-first batches.
// Offline it is a no-op: the actions stay pending and no backoff is armed,
// since no attempt was made. A flush before the armed backoff deadline is
// also a no-op; the gate resets on success or via FlushNow. Safe to call
// concurrently: a flush already in progress wins the guard token and the
// second call returns immediately.
func (e *Engine) Flush(ctx context.Context) error {
	return e.flush(ctx, false)
}

// FlushNow resets the backoff gate and revives parked actions before
// flushing. Intended for explicit user retries and connectivity regains.
func (e *Engine) FlushNow(ctx context.Context) error {
	return e.flush(ctx, true)
}

func (e *Engine) flush(ctx context.Context, force bool) error {
	if atomic.LoadInt32(&e.flushPaused) == 1 && !force {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&e.flushing, 0, 1) {
		return nil // flush already in flight
	}
	defer atomic.StoreInt32(&e.flushing, 0)

	if force {
		atomic.StoreInt32(&e.flushPaused, 0)
		e.queue.Revive()
	}
	e.mu.Lock()
	if force {
		e.retry.reset()
	}
	ready := e.retry.ready(e.now())
	e.mu.Unlock()
	if !ready {
		return nil
	}

	for {
		// Re-read the classifier every batch; connectivity can drop
		// mid-drain.
		state := e.classifier.State()
		if state.IsOffline() {
			return nil
		}
		plan := PlanBatch(e.cfg, state)
		batch := e.queue.NextBatch(plan.Size)
		if len(batch) == 0 {
			return nil
		}
		if err := e.sendBatch(ctx, batch, plan); err != nil {
			return err
		}
	}
}

func (e *Engine) sendBatch(ctx context.Context, batch []*PendingAction, plan BatchPlan) error {
	messages := make([]Message, len(batch))
	for i, a := range batch {
		messages[i] = a.Payload
	}

	e.mu.Lock()
	attempt := e.retry.attempt
	e.mu.Unlock()

	start := e.stageStart()
	resp, err := e.backend.SendMessageBatch(ctx, &SendMessageBatchRequest{Messages: messages})
	e.observeStage(ctx, MetricsOpFlush, MetricsStageBatchSend, start, len(batch), attempt, err != nil)

	if err != nil {
		switch {
		case errors.Is(err, ErrAuth):
			// Not retryable by the engine: keep the batch pending so a
			// retry after re-authentication loses no data, and suspend
			// further flushes until the caller resumes them.
			e.queue.Release(batch)
			atomic.StoreInt32(&e.flushPaused, 1)
			e.logger.Warn("Flush suspended pending re-authentication", "pending", e.queue.Len())
			return fmt.Errorf("flush requires re-authentication: %w", err)
		case isFatalSendError(err):
			// Oversized batch or rejected payload is a configuration or
			// programming error; retrying blindly would never succeed.
			e.queue.Release(batch)
			e.logger.Error("Flush rejected by backend guard", "error", err, "batch", len(batch))
			return fmt.Errorf("flush rejected by backend: %w", err)
		default:
			e.queue.Fail(batch, err, e.cfg.MaxSendAttempts)
			if e.journal != nil {
				for _, a := range batch {
					if jerr := e.journal.UpdateAttempts(a); jerr != nil {
						e.logger.Warn("Failed to journal attempt count", "id", a.ID, "error", jerr)
					}
				}
			}
			e.mu.Lock()
			e.retry.arm(e.now(), plan.BackoffBase)
			e.mu.Unlock()
			e.logger.Warn("Flush attempt failed, backing off",
				"error", err, "batch", len(batch), "attempt", attempt+1)
			return fmt.Errorf("flush attempt failed: %w", err)
		}
	}

	// Match returned server records to queued actions by client_id, mark
	// the local copies confirmed, and drop the actions from the queue.
	clientIDs := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m.ClientID != "" {
			clientIDs = append(clientIDs, m.ClientID)
		}
	}
	acked := e.queue.Ack(clientIDs)
	if e.journal != nil {
		for _, a := range acked {
			if jerr := e.journal.DeleteAction(a.ID); jerr != nil {
				e.logger.Warn("Failed to journal acknowledgement", "id", a.ID, "error", jerr)
			}
		}
	}

	applyStart := e.stageStart()
	if err := e.store.ApplyServerMessages(resp.Messages); err != nil {
		e.observeStage(ctx, MetricsOpFlush, MetricsStageApplyAcks, applyStart, len(resp.Messages), attempt, true)
		return fmt.Errorf("failed to apply acknowledged records: %w", err)
	}
	e.observeStage(ctx, MetricsOpFlush, MetricsStageApplyAcks, applyStart, len(resp.Messages), attempt, false)

	e.mu.Lock()
	e.retry.reset()
	e.mu.Unlock()

	e.dispatchAlerts(ctx, acked)
	e.logger.Debug("Flushed batch", "sent", len(batch), "acked", len(acked), "pending", e.queue.Len())
	return nil
}

// dispatchAlerts fans acknowledged safety events out to the edge notifier.
// Fire-and-forget: failures are logged and dropped, never blocking sync
// state.
func (e *Engine) dispatchAlerts(ctx context.Context, acked []*PendingAction) {
	if e.notifier == nil {
		return
	}
	for _, a := range acked {
		var kind string
		switch a.Payload.Metadata.Kind {
		case MetadataKindCheckIn:
			kind = AlertKindCheckIn
		case MetadataKindSOS:
			kind = AlertKindSOS
		default:
			continue
		}
		n := AlertNotification{
			Type:     kind,
			Message:  a.Payload,
			TripID:   a.Payload.TripID,
			Location: a.Payload.Metadata.Location,
		}
		go func() {
			if err := e.notifier.Notify(context.WithoutCancel(ctx), n); err != nil {
				e.logger.Warn("Alert dispatch failed", "type", n.Type, "trip", n.TripID, "error", err)
			}
		}()
	}
}
