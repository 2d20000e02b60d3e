// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"sync"
	"time"
)

// ActionType classifies a pending action.
type ActionType string

const (
	ActionSendMessage ActionType = "send_message"
	ActionSendAlert   ActionType = "send_alert"
)

// PendingAction is a locally queued, not-yet-acknowledged user mutation.
// ID is client-generated and doubles as the message client_id idempotency
// token; the action is removed once the backend returns a matching record.
type PendingAction struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Payload   Message    `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`

	// parked marks an action that exhausted MaxSendAttempts. It stays
	// visible and pending; FlushNow revives it.
	parked   bool
	inFlight bool
}

// actionQueue is the FIFO list of pending actions. Oldest-first draining
// bounds the staleness of any one action.
type actionQueue struct {
	mu    sync.Mutex
	items []*PendingAction
}

func newActionQueue() *actionQueue {
	return &actionQueue{}
}

// Enqueue appends an action to the tail of the queue.
func (q *actionQueue) Enqueue(a *PendingAction) {
	q.mu.Lock()
	q.items = append(q.items, a)
	q.mu.Unlock()
}

// NextBatch returns up to n of the oldest actions that are neither in
// flight nor parked, marking them in flight.
func (q *actionQueue) NextBatch(n int) []*PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	var batch []*PendingAction
	for _, a := range q.items {
		if len(batch) >= n {
			break
		}
		if a.inFlight || a.parked {
			continue
		}
		a.inFlight = true
		batch = append(batch, a)
	}
	return batch
}

// Release clears the in-flight mark after a failed or abandoned attempt;
// the actions stay pending.
func (q *actionQueue) Release(batch []*PendingAction) {
	q.mu.Lock()
	for _, a := range batch {
		a.inFlight = false
	}
	q.mu.Unlock()
}

// Fail records a transient failure for each action in the batch and clears
// the in-flight mark. Actions that reach maxAttempts (when > 0) are parked.
func (q *actionQueue) Fail(batch []*PendingAction, cause error, maxAttempts int) {
	q.mu.Lock()
	for _, a := range batch {
		a.inFlight = false
		a.Attempts++
		if cause != nil {
			a.LastError = cause.Error()
		}
		if maxAttempts > 0 && a.Attempts >= maxAttempts {
			a.parked = true
		}
	}
	q.mu.Unlock()
}

// Ack removes actions whose ID matches one of the acknowledged client IDs
// and returns them. Idempotent: already-removed IDs are ignored, so a late
// or repeated acknowledgement is safe.
func (q *actionQueue) Ack(clientIDs []string) []*PendingAction {
	acked := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		acked[id] = true
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	var removed []*PendingAction
	kept := q.items[:0]
	for _, a := range q.items {
		if acked[a.ID] {
			a.inFlight = false
			removed = append(removed, a)
			continue
		}
		kept = append(kept, a)
	}
	q.items = kept
	return removed
}

// Revive unparks failed actions so the next flush retries them.
func (q *actionQueue) Revive() {
	q.mu.Lock()
	for _, a := range q.items {
		a.parked = false
	}
	q.mu.Unlock()
}

// Len returns the number of pending actions, parked ones included.
func (q *actionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Pending returns a copy of the queue for inspection, oldest first.
func (q *actionQueue) Pending() []PendingAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PendingAction, len(q.items))
	for i, a := range q.items {
		out[i] = *a
	}
	return out
}

// Lookup reports the retry state of a queued action by ID.
func (q *actionQueue) Lookup(id string) (attempts int, inFlight bool, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, a := range q.items {
		if a.ID == id {
			return a.Attempts, a.inFlight, true
		}
	}
	return 0, false, false
}

// Restore reloads actions persisted by the journal, oldest first.
func (q *actionQueue) Restore(items []PendingAction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
	for i := range items {
		a := items[i]
		a.inFlight = false
		a.parked = false
		q.items = append(q.items, &a)
	}
}
