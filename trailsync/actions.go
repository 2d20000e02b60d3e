// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"time"

	"github.com/google/uuid"
)

// CheckInReport is the device snapshot attached to a check-in.
type CheckInReport struct {
	Status   string
	Battery  *int
	Signal   *int
	Location *Location
}

// SOSOptions configures an SOS alert message.
type SOSOptions struct {
	Silent   bool
	Location *Location
	Contacts []string
	GroupIDs []string
}

// NewCheckInAction builds a pending check-in for the given trip. The action
// ID is the message client_id used for idempotent reconciliation.
func NewCheckInAction(tripID, senderID string, report CheckInReport, now time.Time) *PendingAction {
	id := uuid.New().String()
	status := report.Status
	if status == "" {
		status = "ok"
	}
	return &PendingAction{
		ID:        id,
		Type:      ActionSendMessage,
		CreatedAt: now,
		Payload: Message{
			ClientID:  id,
			TripID:    tripID,
			SenderID:  senderID,
			CreatedAt: now,
			Pending:   true,
			Metadata: MessageMetadata{
				Kind:     MetadataKindCheckIn,
				Status:   status,
				Battery:  report.Battery,
				Signal:   report.Signal,
				Location: report.Location,
				TripID:   tripID,
			},
		},
	}
}

// NewSOSAction builds a pending SOS lifecycle message carrying the new
// embedded status (active, canceled, or resolved). Timestamps must be
// strictly increasing per trip for correct tie-breaking in the derived
// state machine.
func NewSOSAction(tripID, senderID, status string, opts SOSOptions, now time.Time) *PendingAction {
	id := uuid.New().String()
	return &PendingAction{
		ID:        id,
		Type:      ActionSendAlert,
		CreatedAt: now,
		Payload: Message{
			ClientID:  id,
			TripID:    tripID,
			SenderID:  senderID,
			CreatedAt: now,
			Pending:   true,
			Metadata: MessageMetadata{
				Kind:     MetadataKindSOS,
				Status:   status,
				Silent:   opts.Silent,
				Location: opts.Location,
				Contacts: opts.Contacts,
				TripID:   tripID,
				GroupIDs: opts.GroupIDs,
			},
		},
	}
}

// NewMessageAction builds a plain conversation message action.
func NewMessageAction(conversationID, senderID, body string, now time.Time) *PendingAction {
	id := uuid.New().String()
	return &PendingAction{
		ID:        id,
		Type:      ActionSendMessage,
		CreatedAt: now,
		Payload: Message{
			ClientID:       id,
			ConversationID: conversationID,
			SenderID:       senderID,
			Body:           body,
			CreatedAt:      now,
			Pending:        true,
		},
	}
}

// NewTrip builds a local trip. The check-in cadence is floored for
// non-premium accounts at creation time with the same function the
// scheduler applies, so displayed and persisted cadence cannot drift.
func NewTrip(name string, cadenceHours float64, premium bool, groupIDs []string, now time.Time) Trip {
	return Trip{
		ID:           uuid.New().String(),
		Name:         name,
		CadenceHours: EffectiveCadence(cadenceHours, premium).Hours(),
		StartsAt:     now,
		Active:       true,
		GroupIDs:     groupIDs,
	}
}
