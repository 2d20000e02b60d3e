// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import "time"

// BatchPlan is the send policy chosen for the current network state.
type BatchPlan struct {
	Size        int
	BackoffBase time.Duration
}

// PlanBatch is a pure function mapping network state to a batch plan.
// Ultra-constrained links get the smallest batches and a stretched backoff
// base; satellite and constrained links get the satellite size; everything
// else gets the normal size. The chosen size never exceeds the backend's
// enforced maximum batch count.
func PlanBatch(cfg *Config, state NetworkState) BatchPlan {
	plan := BatchPlan{
		Size:        cfg.NormalBatchLimit,
		BackoffBase: cfg.BaseBackoff,
	}
	switch {
	case state.UltraConstrained:
		plan.Size = cfg.UltraBatchLimit
		plan.BackoffBase = cfg.BaseBackoff * 3 / 2
	case state.Constrained || state.Connectivity == ConnectivitySatellite:
		plan.Size = cfg.SatelliteBatchLimit
	}
	if plan.Size > cfg.BackendMaxMessageBatch {
		plan.Size = cfg.BackendMaxMessageBatch
	}
	if plan.Size < 1 {
		plan.Size = 1
	}
	return plan
}
