// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

// REST/JSON models for the backend sync API.

// SendMessageBatchRequest uploads a batch of pending messages. The server
// rejects the whole request if the batch exceeds its configured maximum.
type SendMessageBatchRequest struct {
	Messages []Message `json:"messages"`
}

// SendMessageBatchResponse returns the canonical server records for the
// accepted messages, echoing each client_id so the client can reconcile
// its optimistic copies.
type SendMessageBatchResponse struct {
	Messages []Message `json:"messages"`
}

// PullUpdatesRequest asks for rows newer than Cursor, at most MaxRows per
// entity type.
type PullUpdatesRequest struct {
	Cursor  string `json:"cursor"`
	MaxRows int    `json:"max_rows"`
}

// PullUpdatesResponse is one incremental page: per-entity arrays plus the
// new cursor watermark. A page whose largest entity array is exactly at
// the row cap is likely truncated and must be followed by another pull.
type PullUpdatesResponse struct {
	Cursor            string    `json:"cursor"`
	Trips             []Trip    `json:"trips,omitempty"`
	Conversations     []Record  `json:"conversations,omitempty"`
	Messages          []Message `json:"messages,omitempty"`
	Groups            []Record  `json:"groups,omitempty"`
	Waypoints         []Record  `json:"waypoints,omitempty"`
	Geofences         []Record  `json:"geofences,omitempty"`
	Profiles          []Record  `json:"profiles,omitempty"`
	DeviceSessions    []Record  `json:"device_sessions,omitempty"`
	PushSubscriptions []Record  `json:"push_subscriptions,omitempty"`
	SmsSubscriptions  []Record  `json:"sms_subscriptions,omitempty"`
	PrivacySettings   []Record  `json:"privacy_settings,omitempty"`
}

// Truncated reports whether any entity array is exactly at the row cap,
// in which case more data is likely pending and the caller must re-pull
// immediately rather than assume completeness.
func (r *PullUpdatesResponse) Truncated(maxRows int) bool {
	if maxRows <= 0 {
		return false
	}
	counts := []int{
		len(r.Trips), len(r.Conversations), len(r.Messages), len(r.Groups),
		len(r.Waypoints), len(r.Geofences), len(r.Profiles),
		len(r.DeviceSessions), len(r.PushSubscriptions),
		len(r.SmsSubscriptions), len(r.PrivacySettings),
	}
	for _, n := range counts {
		if n >= maxRows {
			return true
		}
	}
	return false
}

// ErrorResponse is the server's error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
