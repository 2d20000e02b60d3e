package trailsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetryStateExponentialGrowth(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r := &retryState{max: 60 * time.Second}
	base := time.Second

	for i := 0; i < 5; i++ {
		before := now
		r.arm(now, base)
		want := base << i
		gap := r.until.Sub(before)
		require.GreaterOrEqual(t, gap, want, "attempt %d delay below floor", i)
		require.LessOrEqual(t, gap, want+jitterCeiling, "attempt %d jitter above ceiling", i)
		now = r.until
	}
}

func TestRetryStateCapsAtMax(t *testing.T) {
	now := time.Now()
	r := &retryState{max: 4 * time.Second, attempt: 10}

	r.arm(now, time.Second)
	gap := r.until.Sub(now)
	require.GreaterOrEqual(t, gap, 4*time.Second)
	require.LessOrEqual(t, gap, 4*time.Second+jitterCeiling)
}

func TestRetryStateShiftOverflowCapsAtMax(t *testing.T) {
	now := time.Now()
	r := &retryState{max: 30 * time.Second, attempt: 70}

	r.arm(now, time.Second)
	gap := r.until.Sub(now)
	require.GreaterOrEqual(t, gap, 30*time.Second)
	require.LessOrEqual(t, gap, 30*time.Second+jitterCeiling)
}

func TestRetryStateReadyGate(t *testing.T) {
	now := time.Now()
	r := &retryState{max: time.Minute}
	require.True(t, r.ready(now), "fresh state is ready")

	r.arm(now, time.Second)
	require.False(t, r.ready(now), "armed gate blocks immediately")
	require.True(t, r.ready(r.until), "gate opens exactly at until")

	r.reset()
	require.True(t, r.ready(now), "reset clears the gate")
	require.Zero(t, r.attempt)
}
