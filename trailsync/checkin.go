// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import "time"

// CheckInStatus is the derived check-in state for the active trip.
type CheckInStatus string

const (
	CheckInOK      CheckInStatus = "ok"
	CheckInOverdue CheckInStatus = "overdue"
	CheckInPending CheckInStatus = "pending"
)

// FreeCadenceFloorHours is the minimum check-in cadence for non-premium
// accounts, regardless of the stored value.
const FreeCadenceFloorHours = 6.0

// CheckInSchedule is the derived schedule snapshot.
type CheckInSchedule struct {
	Status      CheckInStatus
	LastCheckIn time.Time
	NextDue     time.Time
}

// EffectiveCadence converts a trip cadence in hours to a duration, flooring
// non-premium accounts at 6h. Applied identically at trip creation and at
// schedule time so displayed and persisted cadence cannot drift.
func EffectiveCadence(hours float64, premium bool) time.Duration {
	if !premium && hours < FreeCadenceFloorHours {
		hours = FreeCadenceFloorHours
	}
	if hours <= 0 {
		hours = FreeCadenceFloorHours
	}
	return time.Duration(float64(time.Hour) * hours)
}

// ComputeCheckInSchedule derives the check-in status for a trip from its
// message stream: pending while the latest check-in is unconfirmed or none
// exists, overdue once now passes lastCheckIn+cadence, ok otherwise.
func ComputeCheckInSchedule(trip *Trip, messages []Message, premium bool, now time.Time) CheckInSchedule {
	if trip == nil {
		return CheckInSchedule{Status: CheckInPending}
	}

	var latest *Message
	for i := range messages {
		m := &messages[i]
		if m.Metadata.Kind != MetadataKindCheckIn {
			continue
		}
		if m.TripID != trip.ID && m.Metadata.TripID != trip.ID {
			continue
		}
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}

	if latest == nil {
		return CheckInSchedule{Status: CheckInPending}
	}

	cadence := EffectiveCadence(trip.CadenceHours, premium)
	schedule := CheckInSchedule{
		LastCheckIn: latest.CreatedAt,
		NextDue:     latest.CreatedAt.Add(cadence),
	}
	switch {
	case latest.Pending:
		schedule.Status = CheckInPending
	case now.After(schedule.NextDue):
		schedule.Status = CheckInOverdue
	default:
		schedule.Status = CheckInOK
	}
	return schedule
}
