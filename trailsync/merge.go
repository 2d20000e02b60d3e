// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// mergeRecords overlays incoming server rows onto the current collection,
// keyed by id. The entire incoming record wins at the record level; fields
// present locally but absent from the incoming copy survive the shallow
// overlay. Rows present locally but absent from incoming are preserved
// untouched — the merge never deletes (no tombstone protocol is defined).
// Output is ordered by id so repeated merges of the same page produce an
// identical collection.
func mergeRecords(current, incoming []Record) []Record {
	merged := make([]Record, len(current))
	index := make(map[string]int, len(current))
	for i, r := range current {
		merged[i] = r
		if id := r.ID(); id != "" {
			index[id] = i
		}
	}
	for _, in := range incoming {
		key := in.ID()
		if key == "" {
			// Server-confirmed rows always carry an id; keep the stray
			// row under a generated key rather than dropping it.
			in = in.Clone()
			in["id"] = uuid.New().String()
			key = in.ID()
		}
		if i, ok := index[key]; ok {
			out := merged[i].Clone()
			for k, v := range in {
				out[k] = v
			}
			merged[i] = out
			continue
		}
		index[key] = len(merged)
		merged = append(merged, in)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID() < merged[j].ID() })
	return merged
}

// mergeMessages reconciles incoming server messages with the current list.
// A server record matches a local entry by id, or by client_id when the
// local entry is an optimistic copy awaiting acknowledgement; the matched
// entry is replaced by the server record and stops being pending. Unmatched
// records are appended. Output is ordered by (created_at, id); the id
// tie-break keeps the ordering deterministic across merge orders.
func mergeMessages(current, incoming []Message) []Message {
	merged := make([]Message, len(current))
	copy(merged, current)
	byID := make(map[string]int, len(merged))
	byClientID := make(map[string]int, len(merged))
	for i, m := range merged {
		if m.ID != "" {
			byID[m.ID] = i
		}
		if m.ClientID != "" {
			byClientID[m.ClientID] = i
		}
	}
	for _, in := range incoming {
		in.Pending = false
		i, ok := byID[in.ID]
		if !ok && in.ClientID != "" {
			i, ok = byClientID[in.ClientID]
		}
		if ok {
			merged[i] = in
		} else {
			i = len(merged)
			merged = append(merged, in)
		}
		if in.ID != "" {
			byID[in.ID] = i
		}
		if in.ClientID != "" {
			byClientID[in.ClientID] = i
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.Before(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// mergeTrips overlays incoming trips by id; the incoming record wins whole.
func mergeTrips(current, incoming []Trip) []Trip {
	merged := make([]Trip, len(current))
	copy(merged, current)
	index := make(map[string]int, len(merged))
	for i, t := range merged {
		index[t.ID] = i
	}
	for _, in := range incoming {
		if i, ok := index[in.ID]; ok {
			merged[i] = in
			continue
		}
		index[in.ID] = len(merged)
		merged = append(merged, in)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}

// validateIncomingMessages rejects malformed server messages before any
// state is touched, so a bad page never partially applies and the pull
// cursor stays put.
func validateIncomingMessages(incoming []Message) error {
	for i, m := range incoming {
		if m.ID == "" {
			return fmt.Errorf("%w: incoming message %d has no id", ErrMergeFailed, i)
		}
		if m.CreatedAt.IsZero() {
			return fmt.Errorf("%w: incoming message %s has no timestamp", ErrMergeFailed, m.ID)
		}
	}
	return nil
}
