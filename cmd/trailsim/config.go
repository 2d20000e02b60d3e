// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds simulator settings. Engine limits come from the environment
// via trailsync.LoadEnvConfig; this file covers what is simulator-specific.
type Config struct {
	UserID      string `toml:"user_id"`
	Premium     bool   `toml:"premium"`
	Devices     int    `toml:"devices"`      // parallel devices in multi-device scenario
	MetricsAddr string `toml:"metrics_addr"` // empty disables the listener
	JournalPath string `toml:"journal_path"` // empty runs memory-only
	JWTSecret   string `toml:"jwt_secret"`
}

func defaultConfig() *Config {
	return &Config{
		UserID:    "sim-user",
		Premium:   false,
		Devices:   3,
		JWTSecret: "trailsim-dev-secret",
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if cfg.Devices < 1 {
		cfg.Devices = 1
	}
	return cfg, nil
}
