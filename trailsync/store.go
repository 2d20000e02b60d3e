// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import "sync"

// Snapshot is an immutable copy of all synced collections. Subscribers
// receive a fresh snapshot after every committed mutation; the engine
// recomputes derived state (check-in schedule, SOS lifecycle) from it.
type Snapshot struct {
	Trips             []Trip
	Conversations     []Record
	Messages          []Message
	Groups            []Record
	Waypoints         []Record
	Geofences         []Record
	Profiles          []Record
	DeviceSessions    []Record
	PushSubscriptions []Record
	SmsSubscriptions  []Record
	PrivacySettings   []Record
}

// ActiveTrip returns the first active trip, or nil.
func (s Snapshot) ActiveTrip() *Trip {
	for i := range s.Trips {
		if s.Trips[i].Active {
			return &s.Trips[i]
		}
	}
	return nil
}

// store holds the merged local collections. Writes are serialized by the
// mutex (single writer per commit); readers get copied snapshots so late
// or concurrent readers never observe a half-applied page.
type store struct {
	mu   sync.RWMutex
	data Snapshot

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

func newStore() *store {
	return &store{subs: make(map[int]func(Snapshot))}
}

// Snapshot returns a copy of the current collections.
func (s *store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.data)
}

// Subscribe registers an onChange callback and returns an unsubscribe
// function. Callbacks run synchronously after each commit.
func (s *store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *store) notify() {
	snap := s.Snapshot()
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// ApplyOptimistic materializes a locally queued message so the caller sees
// the action before the backend confirms it.
func (s *store) ApplyOptimistic(msg Message) {
	s.mu.Lock()
	s.data.Messages = upsertLocalMessage(s.data.Messages, msg)
	s.mu.Unlock()
	s.notify()
}

// ApplyServerMessages reconciles acknowledged server records into the
// message collection. Safe to apply late or repeatedly.
func (s *store) ApplyServerMessages(msgs []Message) error {
	if err := validateIncomingMessages(msgs); err != nil {
		return err
	}
	s.mu.Lock()
	s.data.Messages = mergeMessages(s.data.Messages, msgs)
	s.mu.Unlock()
	s.notify()
	return nil
}

// UpsertTrip stores a locally created or edited trip.
func (s *store) UpsertTrip(trip Trip) {
	s.mu.Lock()
	s.data.Trips = mergeTrips(s.data.Trips, []Trip{trip})
	s.mu.Unlock()
	s.notify()
}

// CommitPage merges a pulled page into all collections. The merge is
// staged against copies first; nothing is published unless every entity
// type validates and merges, so a malformed page leaves the store (and the
// caller's cursor) untouched.
func (s *store) CommitPage(page *PullUpdatesResponse) error {
	if err := validateIncomingMessages(page.Messages); err != nil {
		return err
	}

	s.mu.Lock()
	staged := s.data
	staged.Trips = mergeTrips(staged.Trips, page.Trips)
	staged.Messages = mergeMessages(staged.Messages, page.Messages)
	staged.Conversations = mergeRecords(staged.Conversations, page.Conversations)
	staged.Groups = mergeRecords(staged.Groups, page.Groups)
	staged.Waypoints = mergeRecords(staged.Waypoints, page.Waypoints)
	staged.Geofences = mergeRecords(staged.Geofences, page.Geofences)
	staged.Profiles = mergeRecords(staged.Profiles, page.Profiles)
	staged.DeviceSessions = mergeRecords(staged.DeviceSessions, page.DeviceSessions)
	staged.PushSubscriptions = mergeRecords(staged.PushSubscriptions, page.PushSubscriptions)
	staged.SmsSubscriptions = mergeRecords(staged.SmsSubscriptions, page.SmsSubscriptions)
	staged.PrivacySettings = mergeRecords(staged.PrivacySettings, page.PrivacySettings)
	s.data = staged
	s.mu.Unlock()
	s.notify()
	return nil
}

// upsertLocalMessage replaces an existing copy matched by client_id (or id)
// or appends. Used only for optimistic local materialization.
func upsertLocalMessage(messages []Message, msg Message) []Message {
	out := make([]Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if (msg.ClientID != "" && m.ClientID == msg.ClientID) || (msg.ID != "" && m.ID == msg.ID) {
			out[i] = msg
			return out
		}
	}
	return append(out, msg)
}

func cloneSnapshot(in Snapshot) Snapshot {
	return Snapshot{
		Trips:             append([]Trip(nil), in.Trips...),
		Conversations:     append([]Record(nil), in.Conversations...),
		Messages:          append([]Message(nil), in.Messages...),
		Groups:            append([]Record(nil), in.Groups...),
		Waypoints:         append([]Record(nil), in.Waypoints...),
		Geofences:         append([]Record(nil), in.Geofences...),
		Profiles:          append([]Record(nil), in.Profiles...),
		DeviceSessions:    append([]Record(nil), in.DeviceSessions...),
		PushSubscriptions: append([]Record(nil), in.PushSubscriptions...),
		SmsSubscriptions:  append([]Record(nil), in.SmsSubscriptions...),
		PrivacySettings:   append([]Record(nil), in.PrivacySettings...),
	}
}
