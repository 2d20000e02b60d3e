// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import "context"

// Alert notification kinds.
const (
	AlertKindCheckIn = "checkin"
	AlertKindSOS     = "sos"
)

// AlertNotification describes an acknowledged safety event for edge-side
// fan-out to SMS/push providers.
type AlertNotification struct {
	Type     string    `json:"type"` // checkin | sos
	Message  Message   `json:"message"`
	TripID   string    `json:"trip_id,omitempty"`
	Location *Location `json:"location,omitempty"`
}

// AlertNotifier is the external dispatch collaborator. Dispatch is
// fire-and-forget: the engine logs and drops notifier errors so a failure
// there never blocks local sync state.
type AlertNotifier interface {
	Notify(ctx context.Context, n AlertNotification) error
}

// AlertNotifierFunc adapts a function to AlertNotifier.
type AlertNotifierFunc func(ctx context.Context, n AlertNotification) error

func (f AlertNotifierFunc) Notify(ctx context.Context, n AlertNotification) error {
	return f(ctx, n)
}
