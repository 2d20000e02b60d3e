// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

// trailsim runs the trailsync engine through scripted field scenarios
// (offline queues, satellite batching, SOS lifecycles) against an
// in-process stub backend that enforces the real server guards.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env bootstrap; absence is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
