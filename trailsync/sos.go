// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import "sort"

// SOSStatus is the externally visible SOS lifecycle state, derived purely
// from the trip's merged message stream. There is no separately tracked
// transition table, so the visible state can never diverge from what the
// backend actually has.
type SOSStatus string

const (
	SOSIdle      SOSStatus = "idle"
	SOSQueued    SOSStatus = "queued"
	SOSSending   SOSStatus = "sending"
	SOSDelivered SOSStatus = "delivered"
	SOSCanceled  SOSStatus = "canceled"
	SOSResolved  SOSStatus = "resolved"
	SOSFailed    SOSStatus = "failed"
)

// PendingLookup reports the queue state for a still-pending message's
// client id: retry attempts so far and whether a send is in flight.
type PendingLookup func(clientID string) (attempts int, inFlight bool, ok bool)

// ComputeSOSStatus filters the trip's messages to SOS-tagged entries, sorts
// them by timestamp ascending, and maps the latest entry's embedded status
// to the visible state. While the latest entry is still unacknowledged the
// state reflects the send pipeline instead: queued before any attempt,
// sending while in flight, failed after a failed attempt — an SOS failure
// stays visible and never silently reverts to idle. Equal timestamps break
// ties by message id so the result is deterministic.
func ComputeSOSStatus(messages []Message, tripID string, pending PendingLookup) SOSStatus {
	var alerts []Message
	for _, m := range messages {
		if m.Metadata.Kind != MetadataKindSOS {
			continue
		}
		if tripID != "" && m.TripID != tripID && m.Metadata.TripID != tripID {
			continue
		}
		alerts = append(alerts, m)
	}
	if len(alerts) == 0 {
		return SOSIdle
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		if !alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
		}
		return alerts[i].ID < alerts[j].ID
	})
	latest := alerts[len(alerts)-1]

	if latest.Pending {
		if pending != nil {
			if attempts, inFlight, ok := pending(latest.ClientID); ok {
				switch {
				case inFlight:
					return SOSSending
				case attempts > 0:
					return SOSFailed
				}
			}
		}
		return SOSQueued
	}

	switch latest.Metadata.Status {
	case AlertStatusActive:
		return SOSDelivered
	case AlertStatusCanceled:
		return SOSCanceled
	case AlertStatusResolved:
		return SOSResolved
	default:
		// An unrecognized embedded status is safety-critical: surface it
		// as failed rather than pretending the alert cycle completed.
		return SOSFailed
	}
}
