// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

// Package trailsync implements the offline-first synchronization engine for
// the Trailbeacon safety-tracking client.
//
// The engine owns a local pending-action queue, a network-adaptive send
// pipeline, a cursor-based incremental pull pipeline, and a record-level
// reconciliation merger. Check-in due/overdue status and SOS lifecycle
// status are derived purely from the merged data.
package trailsync

import (
	"time"
)

// Message metadata kinds.
const (
	MetadataKindCheckIn = "checkin"
	MetadataKindSOS     = "sos"
)

// Embedded SOS alert statuses as they appear on the wire.
const (
	AlertStatusActive   = "active"
	AlertStatusCanceled = "canceled"
	AlertStatusResolved = "resolved"
)

// Location is a GPS fix attached to check-ins and SOS alerts.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// MessageMetadata carries the domain payload of a message. Check-ins use
// Status/Battery/Signal; SOS alerts use Status/Silent/Location/Contacts.
type MessageMetadata struct {
	Kind     string    `json:"type,omitempty"`
	Status   string    `json:"status,omitempty"`
	Battery  *int      `json:"battery,omitempty"`
	Signal   *int      `json:"signal,omitempty"`
	Silent   bool      `json:"silent,omitempty"`
	Location *Location `json:"location,omitempty"`
	Contacts []string  `json:"contacts,omitempty"`
	TripID   string    `json:"tripId,omitempty"`
	GroupIDs []string  `json:"groupIds,omitempty"`
}

// IsEmpty reports whether the metadata carries no domain payload.
func (m MessageMetadata) IsEmpty() bool {
	return m.Kind == "" && m.Status == "" && m.Battery == nil && m.Signal == nil &&
		!m.Silent && m.Location == nil && len(m.Contacts) == 0 &&
		m.TripID == "" && len(m.GroupIDs) == 0
}

// Message is a synced conversation entry. ClientID is the client-generated
// idempotency token used to reconcile an optimistic local copy with its
// server-assigned counterpart. Pending is local-only state: true until the
// merger observes a server record whose id or client_id matches.
type Message struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"client_id,omitempty"`
	ConversationID string          `json:"conversation_id,omitempty"`
	TripID         string          `json:"trip_id,omitempty"`
	SenderID       string          `json:"sender_id,omitempty"`
	Body           string          `json:"body,omitempty"`
	Metadata       MessageMetadata `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`

	// Pending marks a locally materialized, not-yet-acknowledged copy.
	// Never serialized to the backend.
	Pending bool `json:"-"`
}

// Trip is a planned outing with a check-in cadence. The scheduler derives
// due/overdue status from the active trip's cadence and its latest check-in.
type Trip struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	CadenceHours float64   `json:"cadence_hours"`
	StartsAt     time.Time `json:"starts_at,omitempty"`
	EndsAt       time.Time `json:"ends_at,omitempty"`
	Active       bool      `json:"active"`
	GroupIDs     []string  `json:"group_ids,omitempty"`
}

// Record is a generic synced row. The server identifies rows by the "id"
// field; everything else is carried opaquely and merged by shallow overlay.
// Collections without engine-side behavior (conversations, groups,
// waypoints, geofences, profiles, device sessions, subscriptions, privacy
// settings) are carried as Records.
type Record map[string]any

// ID returns the record's stable identifier, or "" when absent.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
