// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import "sync"

// Connectivity is the coarse link class reported by the host platform.
type Connectivity int

const (
	ConnectivityOffline Connectivity = iota
	ConnectivityWifi
	ConnectivityCellular
	ConnectivitySatellite
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityOffline:
		return "offline"
	case ConnectivityWifi:
		return "wifi"
	case ConnectivityCellular:
		return "cellular"
	case ConnectivitySatellite:
		return "satellite"
	default:
		return "unknown"
	}
}

// NetworkState is the classifier's view of the current link: connectivity
// class plus quality flags that shrink batch sizes and lengthen backoff.
type NetworkState struct {
	Connectivity     Connectivity
	Constrained      bool
	UltraConstrained bool
}

// IsOffline reports whether no attempt should be made at all.
func (s NetworkState) IsOffline() bool {
	return s.Connectivity == ConnectivityOffline
}

// Classifier reports the current network state. Native platform network
// detection is an external collaborator; the engine only consumes this
// interface.
type Classifier interface {
	State() NetworkState
}

// StaticClassifier is a mutable Classifier for hosts that push connectivity
// changes into the engine, and for tests and the simulator.
type StaticClassifier struct {
	mu    sync.RWMutex
	state NetworkState
}

// NewStaticClassifier creates a classifier with the given initial state.
func NewStaticClassifier(state NetworkState) *StaticClassifier {
	return &StaticClassifier{state: state}
}

// State returns the last state set.
func (c *StaticClassifier) State() NetworkState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Set replaces the current state.
func (c *StaticClassifier) Set(state NetworkState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
