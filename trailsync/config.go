// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds tuning for the sync engine. All limits are bounded: values
// read from the environment are clamped to the documented min/max rather
// than silently exceeding a server-enforced maximum.
type Config struct {
	// Batch sizes per network class.
	NormalBatchLimit    int // e.g. wifi/cellular
	SatelliteBatchLimit int // satellite or constrained links
	UltraBatchLimit     int // ultra-constrained links

	// Backoff between failed flush attempts.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration

	// Server-enforced guards. A chosen batch size must never exceed
	// BackendMaxMessageBatch; the server rejects oversized batches.
	BackendMaxMessageBatch int
	BackendMaxPullRows     int

	// MaxSendAttempts parks an action as failed after this many transient
	// failures. 0 means unbounded retry.
	MaxSendAttempts int

	// RequestTimeout bounds each backend request.
	RequestTimeout time.Duration
}

// Environment variable names recognized by LoadEnvConfig.
const (
	EnvNormalBatchLimit    = "SYNC_NORMAL_BATCH_LIMIT"
	EnvSatelliteBatchLimit = "SYNC_SATELLITE_BATCH_LIMIT"
	EnvUltraBatchLimit     = "SYNC_ULTRA_BATCH_LIMIT"
	EnvBaseBackoffMS       = "SYNC_BASE_BACKOFF_MS"
	EnvMaxSendAttempts     = "SYNC_MAX_SEND_ATTEMPTS"
	EnvBackendMaxBatch     = "BACKEND_MAX_MESSAGE_BATCH"
	EnvBackendMaxPullLimit = "BACKEND_MAX_PULL_LIMIT"
)

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		NormalBatchLimit:       10,
		SatelliteBatchLimit:    5,
		UltraBatchLimit:        3,
		BaseBackoff:            1 * time.Second,
		MaxBackoff:             60 * time.Second,
		BackendMaxMessageBatch: 25,
		BackendMaxPullRows:     100,
		MaxSendAttempts:        0,
		RequestTimeout:         10 * time.Second,
	}
}

// LoadEnvConfig builds a Config from the environment, applying defaults on
// absence and clamping every value to its documented range.
func LoadEnvConfig() *Config {
	cfg := DefaultConfig()
	cfg.NormalBatchLimit = envInt(EnvNormalBatchLimit, cfg.NormalBatchLimit, 1, 100)
	cfg.SatelliteBatchLimit = envInt(EnvSatelliteBatchLimit, cfg.SatelliteBatchLimit, 1, 100)
	cfg.UltraBatchLimit = envInt(EnvUltraBatchLimit, cfg.UltraBatchLimit, 1, 100)
	cfg.BaseBackoff = envDurationMS(EnvBaseBackoffMS, cfg.BaseBackoff, 100*time.Millisecond, 60*time.Second)
	cfg.MaxSendAttempts = envInt(EnvMaxSendAttempts, cfg.MaxSendAttempts, 0, 100)
	cfg.BackendMaxMessageBatch = envInt(EnvBackendMaxBatch, cfg.BackendMaxMessageBatch, 1, 500)
	cfg.BackendMaxPullRows = envInt(EnvBackendMaxPullLimit, cfg.BackendMaxPullRows, 1, 1000)
	return cfg
}

// Validate reports a misconfiguration the backend would reject. This is a
// fatal configuration error, not a retryable one.
func (c *Config) Validate() error {
	if c.BackendMaxMessageBatch < 1 {
		return fmt.Errorf("%w: BackendMaxMessageBatch must be >= 1", ErrConfig)
	}
	if c.BackendMaxPullRows < 1 {
		return fmt.Errorf("%w: BackendMaxPullRows must be >= 1", ErrConfig)
	}
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"NormalBatchLimit", c.NormalBatchLimit},
		{"SatelliteBatchLimit", c.SatelliteBatchLimit},
		{"UltraBatchLimit", c.UltraBatchLimit},
	} {
		if limit.value < 1 {
			return fmt.Errorf("%w: %s must be >= 1", ErrConfig, limit.name)
		}
		if limit.value > c.BackendMaxMessageBatch {
			return fmt.Errorf("%w: %s %d exceeds backend maximum %d",
				ErrConfig, limit.name, limit.value, c.BackendMaxMessageBatch)
		}
	}
	if c.BaseBackoff <= 0 {
		return fmt.Errorf("%w: BaseBackoff must be positive", ErrConfig)
	}
	if c.MaxBackoff < c.BaseBackoff {
		return fmt.Errorf("%w: MaxBackoff must be >= BaseBackoff", ErrConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: RequestTimeout must be positive", ErrConfig)
	}
	return nil
}

func envInt(name string, def, min, max int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return clampInt(def, min, max)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return clampInt(def, min, max)
	}
	return clampInt(v, min, max)
}

func envDurationMS(name string, def, min, max time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return clampDuration(def, min, max)
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return clampDuration(def, min, max)
	}
	return clampDuration(time.Duration(ms)*time.Millisecond, min, max)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
