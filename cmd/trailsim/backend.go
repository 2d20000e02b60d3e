// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/trailbeacon/go-trailsync/trailsync"
)

// stubBackend is an in-process backend honoring the real server guards:
// it rejects oversized batches outright and caps pull pages at the row
// limit. Rows get monotonically increasing sequence numbers; the cursor
// is the last sequence returned, serialized as an opaque string.
type stubBackend struct {
	maxBatch int
	maxRows  int

	mu         sync.Mutex
	seq        int
	rows       []storedRow
	trips      []trailsync.Trip
	batchSizes []int // recorded per send call
	pullCalls  int
	failSends  int // inject this many transient send failures
	failAuth   bool
}

type storedRow struct {
	seq int
	msg trailsync.Message
}

func newStubBackend(maxBatch, maxRows int) *stubBackend {
	return &stubBackend{maxBatch: maxBatch, maxRows: maxRows}
}

func (b *stubBackend) SendMessageBatch(ctx context.Context, req *trailsync.SendMessageBatchRequest) (*trailsync.SendMessageBatchResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failAuth {
		return nil, &trailsync.BackendError{StatusCode: http.StatusUnauthorized, Message: "token expired", Err: trailsync.ErrAuth}
	}
	if len(req.Messages) > b.maxBatch {
		return nil, &trailsync.BackendError{
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("batch of %d exceeds maximum %d", len(req.Messages), b.maxBatch),
			Err:        trailsync.ErrBatchTooLarge,
		}
	}
	if b.failSends > 0 {
		b.failSends--
		return nil, &trailsync.BackendError{StatusCode: http.StatusServiceUnavailable, Message: "simulated outage", Err: trailsync.ErrTransient}
	}

	b.batchSizes = append(b.batchSizes, len(req.Messages))
	resp := &trailsync.SendMessageBatchResponse{}
	for _, m := range req.Messages {
		b.seq++
		m.ID = fmt.Sprintf("srv-%06d", b.seq)
		b.rows = append(b.rows, storedRow{seq: b.seq, msg: m})
		resp.Messages = append(resp.Messages, m)
	}
	return resp, nil
}

func (b *stubBackend) PullUpdates(ctx context.Context, req *trailsync.PullUpdatesRequest) (*trailsync.PullUpdatesResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pullCalls++
	after := 0
	if req.Cursor != "" {
		var err error
		if after, err = strconv.Atoi(req.Cursor); err != nil {
			return nil, &trailsync.BackendError{StatusCode: http.StatusBadRequest, Message: "bad cursor", Err: trailsync.ErrBadPayload}
		}
	}
	limit := req.MaxRows
	if limit <= 0 || limit > b.maxRows {
		limit = b.maxRows
	}

	resp := &trailsync.PullUpdatesResponse{
		Cursor: req.Cursor,
		Trips:  append([]trailsync.Trip(nil), b.trips...),
	}
	last := after
	for _, row := range b.rows {
		if row.seq <= after {
			continue
		}
		if len(resp.Messages) >= limit {
			break
		}
		resp.Messages = append(resp.Messages, row.msg)
		last = row.seq
	}
	if last > after {
		resp.Cursor = strconv.Itoa(last)
	}
	return resp, nil
}

// seedMessages preloads server-side rows so pulls have data to page over.
func (b *stubBackend) seedMessages(msgs []trailsync.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range msgs {
		b.seq++
		if m.ID == "" {
			m.ID = fmt.Sprintf("srv-%06d", b.seq)
		}
		b.rows = append(b.rows, storedRow{seq: b.seq, msg: m})
	}
}

func (b *stubBackend) recordedBatchSizes() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int(nil), b.batchSizes...)
}

func (b *stubBackend) pullCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pullCalls
}
