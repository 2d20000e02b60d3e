// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
)

func main() {
	fmt.Println("🛰  go-trailsync - Offline-First Safety Sync Engine")
	fmt.Println("===================================================")
	fmt.Println()
	fmt.Println("go-trailsync keeps check-ins and SOS alerts flowing across offline,")
	fmt.Println("cellular, and satellite links: a durable pending-action queue, adaptive")
	fmt.Println("batching, cursor-based incremental pulls, and deterministic record merge.")
	fmt.Println()

	fmt.Println("📚 Getting started:")
	fmt.Println()
	fmt.Println("1. 📦 Engine library (trailsync/)")
	fmt.Println("   Embed trailsync.Engine in your client: Enqueue, Flush, Pull, Subscribe")
	fmt.Println("   Derived state: check-in due/overdue status and SOS lifecycle status")
	fmt.Println()

	fmt.Println("2. 🧪 Scenario simulator (cmd/trailsim/)")
	fmt.Println("   Scripted field scenarios against an in-process stub backend")
	fmt.Println("   Run: go run ./cmd/trailsim run offline-online")
	fmt.Println("   List: go run ./cmd/trailsim scenarios")
	fmt.Println()
}
