package trailsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rec(id string, fields map[string]any) Record {
	r := Record{"id": id}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

func TestMergeRecordsIdempotent(t *testing.T) {
	current := []Record{rec("a", map[string]any{"name": "base camp"})}
	incoming := []Record{
		rec("a", map[string]any{"name": "summit camp", "elevation": 2400.0}),
		rec("b", map[string]any{"name": "river ford"}),
	}

	once := mergeRecords(current, incoming)
	twice := mergeRecords(once, incoming)
	require.Equal(t, once, twice, "merging the same page twice must equal merging it once")
}

func TestMergeRecordsOverlay(t *testing.T) {
	current := []Record{rec("a", map[string]any{"name": "old", "note": "keep me"})}
	incoming := []Record{rec("a", map[string]any{"name": "new"})}

	merged := mergeRecords(current, incoming)
	require.Len(t, merged, 1)
	require.Equal(t, "new", merged[0]["name"], "incoming field wins")
	require.Equal(t, "keep me", merged[0]["note"], "field absent from incoming survives the shallow overlay")
}

func TestMergeRecordsPreservesLocalRows(t *testing.T) {
	current := []Record{rec("local", map[string]any{"name": "draft waypoint"})}
	merged := mergeRecords(current, []Record{rec("remote", nil)})
	require.Len(t, merged, 2, "rows absent from incoming are never deleted")
}

func TestMergeRecordsOrderIndependentForDisjointIDs(t *testing.T) {
	base := []Record{rec("a", nil)}
	pageB := []Record{rec("b", map[string]any{"n": 1})}
	pageC := []Record{rec("c", map[string]any{"n": 2})}

	bc := mergeRecords(mergeRecords(base, pageB), pageC)
	cb := mergeRecords(mergeRecords(base, pageC), pageB)
	require.Equal(t, bc, cb)
}

func TestMergeRecordsLastAppliedWins(t *testing.T) {
	base := []Record{}
	v1 := []Record{rec("a", map[string]any{"status": "draft"})}
	v2 := []Record{rec("a", map[string]any{"status": "final"})}

	merged := mergeRecords(mergeRecords(base, v1), v2)
	require.Len(t, merged, 1)
	require.Equal(t, "final", merged[0]["status"])
}

func TestMergeRecordsGeneratedKeyFallback(t *testing.T) {
	merged := mergeRecords(nil, []Record{{"name": "stray row"}})
	require.Len(t, merged, 1)
	require.NotEmpty(t, merged[0].ID(), "id-less rows get a generated key instead of being dropped")
}

func TestMergeMessagesReconcilesByClientID(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	local := []Message{{ClientID: "c1", Body: "checking in", CreatedAt: now, Pending: true}}
	server := []Message{{ID: "srv-1", ClientID: "c1", Body: "checking in", CreatedAt: now}}

	merged := mergeMessages(local, server)
	require.Len(t, merged, 1, "server echo replaces the optimistic copy, no duplicate")
	require.Equal(t, "srv-1", merged[0].ID)
	require.False(t, merged[0].Pending, "a matched message stops being pending")
}

func TestMergeMessagesIdempotent(t *testing.T) {
	now := time.Now().UTC()
	server := []Message{
		{ID: "srv-1", ClientID: "c1", CreatedAt: now},
		{ID: "srv-2", CreatedAt: now.Add(time.Second)},
	}
	once := mergeMessages(nil, server)
	twice := mergeMessages(once, server)
	require.Equal(t, once, twice)
}

func TestMergeMessagesOrderedByTimestamp(t *testing.T) {
	t1 := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	// Out-of-order arrival: the newer row comes first in the page.
	merged := mergeMessages(nil, []Message{
		{ID: "srv-2", CreatedAt: t2},
		{ID: "srv-1", CreatedAt: t1},
	})
	require.Equal(t, "srv-1", merged[0].ID)
	require.Equal(t, "srv-2", merged[1].ID)
}

func TestMergeTripsIncomingWins(t *testing.T) {
	current := []Trip{{ID: "t1", Name: "old name", CadenceHours: 6}}
	merged := mergeTrips(current, []Trip{{ID: "t1", Name: "new name", CadenceHours: 8}})
	require.Len(t, merged, 1)
	require.Equal(t, "new name", merged[0].Name)
	require.Equal(t, 8.0, merged[0].CadenceHours)
}

func TestValidateIncomingMessages(t *testing.T) {
	require.NoError(t, validateIncomingMessages([]Message{{ID: "m1", CreatedAt: time.Now()}}))

	err := validateIncomingMessages([]Message{{CreatedAt: time.Now()}})
	require.ErrorIs(t, err, ErrMergeFailed)

	err = validateIncomingMessages([]Message{{ID: "m1"}})
	require.ErrorIs(t, err, ErrMergeFailed)
}
