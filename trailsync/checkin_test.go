package trailsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func checkInAt(trip string, at time.Time, pending bool) Message {
	return Message{
		ID:        "ci-" + at.Format(time.RFC3339),
		TripID:    trip,
		Metadata:  MessageMetadata{Kind: MetadataKindCheckIn, TripID: trip},
		CreatedAt: at,
		Pending:   pending,
	}
}

func TestEffectiveCadence(t *testing.T) {
	require.Equal(t, 12*time.Hour, EffectiveCadence(12, true))
	require.Equal(t, 2*time.Hour, EffectiveCadence(2, true), "premium keeps short cadences")
	require.Equal(t, 6*time.Hour, EffectiveCadence(2, false), "free tier floors at 6h")
	require.Equal(t, 6*time.Hour, EffectiveCadence(0, true), "zero cadence falls back to the floor")
	require.Equal(t, 90*time.Minute, EffectiveCadence(1.5, true), "fractional hours are honored")
}

func TestComputeCheckInScheduleNextDue(t *testing.T) {
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trip := &Trip{ID: "trip-1", CadenceHours: 4, Active: true}
	msgs := []Message{checkInAt("trip-1", last, false)}

	s := ComputeCheckInSchedule(trip, msgs, true, last.Add(time.Hour))
	require.Equal(t, CheckInOK, s.Status)
	require.Equal(t, last, s.LastCheckIn)
	require.Equal(t, last.Add(4*time.Hour), s.NextDue)
}

func TestComputeCheckInScheduleOverdueBoundary(t *testing.T) {
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trip := &Trip{ID: "trip-1", CadenceHours: 4, Active: true}
	msgs := []Message{checkInAt("trip-1", last, false)}
	due := last.Add(4 * time.Hour)

	s := ComputeCheckInSchedule(trip, msgs, true, due)
	require.Equal(t, CheckInOK, s.Status, "exactly at the deadline is still ok")

	s = ComputeCheckInSchedule(trip, msgs, true, due.Add(time.Nanosecond))
	require.Equal(t, CheckInOverdue, s.Status)
}

func TestComputeCheckInScheduleFreeTierFloor(t *testing.T) {
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	trip := &Trip{ID: "trip-1", CadenceHours: 2, Active: true}
	msgs := []Message{checkInAt("trip-1", last, false)}

	s := ComputeCheckInSchedule(trip, msgs, false, last.Add(3*time.Hour))
	require.Equal(t, CheckInOK, s.Status, "free tier cadence floors at 6h, 3h in is not overdue")
	require.Equal(t, last.Add(6*time.Hour), s.NextDue)

	s = ComputeCheckInSchedule(trip, msgs, true, last.Add(3*time.Hour))
	require.Equal(t, CheckInOverdue, s.Status, "premium honors the 2h cadence")
}

func TestComputeCheckInSchedulePendingStates(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trip := &Trip{ID: "trip-1", CadenceHours: 4, Active: true}

	s := ComputeCheckInSchedule(nil, nil, true, now)
	require.Equal(t, CheckInPending, s.Status, "no active trip")

	s = ComputeCheckInSchedule(trip, nil, true, now)
	require.Equal(t, CheckInPending, s.Status, "no check-ins yet")

	msgs := []Message{
		checkInAt("trip-1", now.Add(-2*time.Hour), false),
		checkInAt("trip-1", now.Add(-time.Minute), true),
	}
	s = ComputeCheckInSchedule(trip, msgs, true, now)
	require.Equal(t, CheckInPending, s.Status, "latest check-in still unconfirmed")
}

func TestComputeCheckInScheduleIgnoresOtherTrips(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	trip := &Trip{ID: "trip-1", CadenceHours: 4, Active: true}
	msgs := []Message{
		checkInAt("trip-other", now.Add(-time.Minute), false),
		{ID: "chat-1", TripID: "trip-1", Body: "hello", CreatedAt: now.Add(-time.Minute)},
	}

	s := ComputeCheckInSchedule(trip, msgs, true, now)
	require.Equal(t, CheckInPending, s.Status, "other trips and plain chat do not count")
}
