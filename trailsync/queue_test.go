package trailsync

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testAction(id string, at time.Time) *PendingAction {
	return &PendingAction{
		ID:        id,
		Type:      ActionSendMessage,
		CreatedAt: at,
		Payload:   Message{ClientID: id, CreatedAt: at, Pending: true},
	}
}

func TestQueueFIFOBatches(t *testing.T) {
	q := newActionQueue()
	base := time.Now()
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		q.Enqueue(testAction(id, base.Add(time.Duration(i)*time.Second)))
	}

	batch := q.NextBatch(3)
	require.Len(t, batch, 3)
	require.Equal(t, "a", batch[0].ID)
	require.Equal(t, "c", batch[2].ID)

	// In-flight items are excluded from the next batch.
	next := q.NextBatch(3)
	require.Len(t, next, 2)
	require.Equal(t, "d", next[0].ID)

	q.Release(batch)
	q.Release(next)
	require.Len(t, q.NextBatch(10), 5)
}

func TestQueueAckIdempotent(t *testing.T) {
	q := newActionQueue()
	q.Enqueue(testAction("a", time.Now()))
	q.Enqueue(testAction("b", time.Now()))

	removed := q.Ack([]string{"a", "ghost"})
	require.Len(t, removed, 1)
	require.Equal(t, "a", removed[0].ID)
	require.Equal(t, 1, q.Len())

	// Late or repeated acknowledgement is a no-op.
	require.Empty(t, q.Ack([]string{"a"}))
	require.Equal(t, 1, q.Len())
}

func TestQueueFailParksAtMaxAttempts(t *testing.T) {
	q := newActionQueue()
	q.Enqueue(testAction("a", time.Now()))

	batch := q.NextBatch(1)
	q.Fail(batch, errors.New("radio dropout"), 2)
	require.Equal(t, 1, q.Len(), "failed action stays pending")

	batch = q.NextBatch(1)
	require.Len(t, batch, 1, "one failure is below the ceiling")
	q.Fail(batch, errors.New("radio dropout"), 2)

	require.Empty(t, q.NextBatch(1), "parked action is skipped")
	require.Equal(t, 1, q.Len(), "parked action is still visible")

	q.Revive()
	require.Len(t, q.NextBatch(1), 1)
}

func TestQueueLookup(t *testing.T) {
	q := newActionQueue()
	q.Enqueue(testAction("a", time.Now()))

	attempts, inFlight, ok := q.Lookup("a")
	require.True(t, ok)
	require.Zero(t, attempts)
	require.False(t, inFlight)

	batch := q.NextBatch(1)
	_, inFlight, _ = q.Lookup("a")
	require.True(t, inFlight)

	q.Fail(batch, errors.New("timeout"), 0)
	attempts, inFlight, _ = q.Lookup("a")
	require.Equal(t, 1, attempts)
	require.False(t, inFlight)

	_, _, ok = q.Lookup("ghost")
	require.False(t, ok)
}

func TestQueueRestore(t *testing.T) {
	q := newActionQueue()
	q.Restore([]PendingAction{
		*testAction("a", time.Now()),
		*testAction("b", time.Now().Add(time.Second)),
	})
	require.Equal(t, 2, q.Len())
	batch := q.NextBatch(10)
	require.Equal(t, "a", batch[0].ID)
	require.Equal(t, "b", batch[1].ID)
}
