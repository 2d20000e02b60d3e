// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"math/rand"
	"time"
)

const jitterCeiling = 500 * time.Millisecond

// retryState tracks exponential backoff between failed flush attempts.
// Guarded by the engine's mutex.
type retryState struct {
	max     time.Duration
	attempt int
	until   time.Time
}

// ready reports whether the backoff gate has elapsed.
func (r *retryState) ready(now time.Time) bool {
	return !now.Before(r.until)
}

// arm schedules the next attempt at base*2^attempt plus 0..500ms of jitter,
// capped at max, and increments the attempt counter.
func (r *retryState) arm(now time.Time, base time.Duration) {
	delay := base << r.attempt
	if delay > r.max || delay <= 0 { // <= 0 catches shift overflow
		delay = r.max
	}
	r.until = now.Add(delay + jitterDelay())
	r.attempt++
}

// reset clears the gate after a successful flush or a connectivity regain.
func (r *retryState) reset() {
	r.attempt = 0
	r.until = time.Time{}
}

func jitterDelay() time.Duration {
	return time.Duration(rand.Int63n(int64(jitterCeiling) + 1))
}
