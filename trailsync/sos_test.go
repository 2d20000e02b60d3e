package trailsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sosAlert(id, trip, status string, at time.Time) Message {
	return Message{
		ID:        id,
		TripID:    trip,
		Metadata:  MessageMetadata{Kind: MetadataKindSOS, Status: status, TripID: trip},
		CreatedAt: at,
	}
}

func TestComputeSOSStatusIdleWithoutAlerts(t *testing.T) {
	now := time.Now()
	msgs := []Message{
		{ID: "chat-1", TripID: "trip-1", Body: "all good", CreatedAt: now},
		checkInAt("trip-1", now, false),
	}
	require.Equal(t, SOSIdle, ComputeSOSStatus(msgs, "trip-1", nil))
	require.Equal(t, SOSIdle, ComputeSOSStatus(nil, "trip-1", nil))
}

func TestComputeSOSStatusLatestAlertWins(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	active := sosAlert("a-1", "trip-1", AlertStatusActive, t1)
	canceled := sosAlert("a-2", "trip-1", AlertStatusCanceled, t2)

	require.Equal(t, SOSCanceled, ComputeSOSStatus([]Message{active, canceled}, "trip-1", nil))
	require.Equal(t, SOSCanceled, ComputeSOSStatus([]Message{canceled, active}, "trip-1", nil),
		"slice order must not change the outcome")
}

func TestComputeSOSStatusEqualTimestampsTieBreakByID(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := sosAlert("a-1", "trip-1", AlertStatusActive, at)
	b := sosAlert("a-2", "trip-1", AlertStatusResolved, at)

	require.Equal(t, SOSResolved, ComputeSOSStatus([]Message{a, b}, "trip-1", nil))
	require.Equal(t, SOSResolved, ComputeSOSStatus([]Message{b, a}, "trip-1", nil))
}

func TestComputeSOSStatusPendingPipelineStates(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	alert := sosAlert("local-1", "trip-1", AlertStatusActive, at)
	alert.ClientID = "client-1"
	alert.Pending = true
	msgs := []Message{alert}

	lookup := func(attempts int, inFlight, ok bool) PendingLookup {
		return func(clientID string) (int, bool, bool) {
			require.Equal(t, "client-1", clientID)
			return attempts, inFlight, ok
		}
	}

	require.Equal(t, SOSQueued, ComputeSOSStatus(msgs, "trip-1", nil), "no lookup means queued")
	require.Equal(t, SOSQueued, ComputeSOSStatus(msgs, "trip-1", lookup(0, false, true)))
	require.Equal(t, SOSSending, ComputeSOSStatus(msgs, "trip-1", lookup(1, true, true)))
	require.Equal(t, SOSFailed, ComputeSOSStatus(msgs, "trip-1", lookup(3, false, true)))
	require.Equal(t, SOSQueued, ComputeSOSStatus(msgs, "trip-1", lookup(0, false, false)),
		"unknown client id falls back to queued")
}

func TestComputeSOSStatusDeliveredAfterAck(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	alert := sosAlert("srv-1", "trip-1", AlertStatusActive, at)
	require.Equal(t, SOSDelivered, ComputeSOSStatus([]Message{alert}, "trip-1", nil))
}

func TestComputeSOSStatusUnknownEmbeddedStatusIsFailed(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	alert := sosAlert("srv-1", "trip-1", "garbled", at)
	require.Equal(t, SOSFailed, ComputeSOSStatus([]Message{alert}, "trip-1", nil))
}

func TestComputeSOSStatusScopedToTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	other := sosAlert("a-1", "trip-other", AlertStatusActive, at)
	require.Equal(t, SOSIdle, ComputeSOSStatus([]Message{other}, "trip-1", nil))
	require.Equal(t, SOSDelivered, ComputeSOSStatus([]Message{other}, "", nil),
		"empty trip id matches any trip")
}
