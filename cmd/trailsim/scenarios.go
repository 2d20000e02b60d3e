// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trailbeacon/go-trailsync/internal/auth"
	"github.com/trailbeacon/go-trailsync/trailsync"
)

// Scenario is a scripted field exercise run against a fresh harness.
type Scenario struct {
	Description string
	Run         func(ctx context.Context, h *Harness) error
}

var scenarios = map[string]Scenario{
	"offline-online": {
		Description: "queue 12 check-ins offline, drain over satellite in batches of 5/5/2",
		Run:         runOfflineOnline,
	},
	"satellite-batching": {
		Description: "ultra-constrained link shrinks batches to the ultra limit",
		Run:         runSatelliteBatching,
	},
	"sos-lifecycle": {
		Description: "SOS trigger/cancel derived from the message stream",
		Run:         runSOSLifecycle,
	},
	"checkin-overdue": {
		Description: "free-tier cadence floor and next-due derivation",
		Run:         runCheckInOverdue,
	},
	"pull-truncation": {
		Description: "row-capped pull pages drain via immediate re-pull",
		Run:         runPullTruncation,
	},
	"multi-device": {
		Description: "parallel devices converge through flush and pull",
		Run:         runMultiDevice,
	},
}

// Harness wires one stub backend, its HTTP front, and engine construction
// for a single scenario run.
type Harness struct {
	cfg       *Config
	logger    *slog.Logger
	recorder  *promRecorder
	engineCfg *trailsync.Config
	backend   *stubBackend
	server    *stubServer
	minter    *auth.DevMinter
}

func newHarness(cfg *Config, logger *slog.Logger, recorder *promRecorder) *Harness {
	engineCfg := trailsync.LoadEnvConfig()
	return &Harness{
		cfg:       cfg,
		logger:    logger,
		recorder:  recorder,
		engineCfg: engineCfg,
		backend:   newStubBackend(engineCfg.BackendMaxMessageBatch, engineCfg.BackendMaxPullRows),
		minter:    auth.NewDevMinter(cfg.JWTSecret),
	}
}

// newEngine creates an engine for the named device talking to the stub
// backend over HTTP with a freshly minted dev token.
func (h *Harness) newEngine(device string, classifier trailsync.Classifier) (*trailsync.Engine, error) {
	if h.server == nil {
		server, err := startStubServer(h.backend, h.cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		h.server = server
	}

	var journal *trailsync.Journal
	if h.cfg.JournalPath != "" {
		j, err := trailsync.OpenJournal(h.cfg.JournalPath + "." + device)
		if err != nil {
			return nil, err
		}
		journal = j
	}

	token := h.minter.TokenSource(h.cfg.UserID, device, time.Hour)
	var metrics trailsync.StageMetricsRecorder
	if h.recorder != nil {
		metrics = h.recorder
	}
	return trailsync.NewEngine(trailsync.Options{
		Config:     h.engineCfg,
		Classifier: classifier,
		Backend:    trailsync.NewHTTPBackend(h.server.URL(), trailsync.TokenSource(token), h.engineCfg.RequestTimeout),
		Journal:    journal,
		Metrics:    metrics,
		Logger:     h.logger.With("device", device),
		UserID:     h.cfg.UserID,
		Premium:    h.cfg.Premium,
	})
}

func (h *Harness) Close() {
	if h.server != nil {
		h.server.Close()
	}
}

func runOfflineOnline(ctx context.Context, h *Harness) error {
	defer h.Close()
	cls := trailsync.NewStaticClassifier(trailsync.NetworkState{Connectivity: trailsync.ConnectivityOffline})
	eng, err := h.newEngine("device-a", cls)
	if err != nil {
		return err
	}

	trip := eng.CreateTrip("Ridge Traverse", 8, nil)
	const actions = 12
	for i := 0; i < actions; i++ {
		if _, err := eng.EnqueueCheckIn(trip.ID, trailsync.CheckInReport{}); err != nil {
			return err
		}
	}

	// Offline flush is a no-op: nothing submitted, nothing lost.
	if err := eng.Flush(ctx); err != nil {
		return err
	}
	if got := eng.PendingCount(); got != actions {
		return fmt.Errorf("offline flush drained queue: %d pending, want %d", got, actions)
	}
	if calls := h.backend.recordedBatchSizes(); len(calls) != 0 {
		return fmt.Errorf("offline flush reached backend: %v", calls)
	}

	// One simulated outage first: the batch stays pending and FlushNow
	// retries it.
	h.backend.failSends = 1
	cls.Set(trailsync.NetworkState{Connectivity: trailsync.ConnectivitySatellite})
	if err := eng.FlushNow(ctx); err == nil {
		return fmt.Errorf("expected transient failure on first satellite flush")
	}
	if err := eng.FlushNow(ctx); err != nil {
		return err
	}

	size := h.engineCfg.SatelliteBatchLimit
	want := []int{size, size, actions - 2*size}
	got := h.backend.recordedBatchSizes()
	if len(got) != len(want) {
		return fmt.Errorf("batch sizes %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("batch sizes %v, want %v", got, want)
		}
	}
	if eng.PendingCount() != 0 {
		return fmt.Errorf("%d actions still pending after drain", eng.PendingCount())
	}
	return nil
}

func runSatelliteBatching(ctx context.Context, h *Harness) error {
	defer h.Close()
	cls := trailsync.NewStaticClassifier(trailsync.NetworkState{
		Connectivity:     trailsync.ConnectivitySatellite,
		Constrained:      true,
		UltraConstrained: true,
	})
	eng, err := h.newEngine("device-a", cls)
	if err != nil {
		return err
	}

	for i := 0; i < 7; i++ {
		if _, err := eng.EnqueueMessage("conv-1", fmt.Sprintf("waypoint note %d", i)); err != nil {
			return err
		}
	}
	if err := eng.Flush(ctx); err != nil {
		return err
	}

	for _, size := range h.backend.recordedBatchSizes() {
		if size > h.engineCfg.UltraBatchLimit {
			return fmt.Errorf("ultra-constrained batch of %d exceeds limit %d", size, h.engineCfg.UltraBatchLimit)
		}
		if size > h.engineCfg.BackendMaxMessageBatch {
			return fmt.Errorf("batch of %d exceeds backend maximum", size)
		}
	}
	if eng.PendingCount() != 0 {
		return fmt.Errorf("%d actions still pending", eng.PendingCount())
	}
	return nil
}

func runSOSLifecycle(ctx context.Context, h *Harness) error {
	defer h.Close()
	cls := trailsync.NewStaticClassifier(trailsync.NetworkState{Connectivity: trailsync.ConnectivityOffline})
	eng, err := h.newEngine("device-a", cls)
	if err != nil {
		return err
	}
	trip := eng.CreateTrip("Solo Summit", 12, nil)

	expect := func(want trailsync.SOSStatus) error {
		if got := eng.SOSStatus(); got != want {
			return fmt.Errorf("SOS status %s, want %s", got, want)
		}
		return nil
	}

	if err := expect(trailsync.SOSIdle); err != nil {
		return err
	}
	if _, err := eng.TriggerSOS(trip.ID, trailsync.SOSOptions{Contacts: []string{"+15550100"}}); err != nil {
		return err
	}
	if err := expect(trailsync.SOSQueued); err != nil {
		return err
	}

	cls.Set(trailsync.NetworkState{Connectivity: trailsync.ConnectivityCellular})
	if err := eng.FlushNow(ctx); err != nil {
		return err
	}
	if err := expect(trailsync.SOSDelivered); err != nil {
		return err
	}

	if _, err := eng.CancelSOS(trip.ID); err != nil {
		return err
	}
	if err := expect(trailsync.SOSQueued); err != nil {
		return err
	}
	if err := eng.FlushNow(ctx); err != nil {
		return err
	}
	return expect(trailsync.SOSCanceled)
}

func runCheckInOverdue(ctx context.Context, h *Harness) error {
	defer h.Close()
	cls := trailsync.NewStaticClassifier(trailsync.NetworkState{Connectivity: trailsync.ConnectivityWifi})
	eng, err := h.newEngine("device-a", cls)
	if err != nil {
		return err
	}

	// Stored cadence of 2h must be floored to 6h on the free tier.
	trip := eng.CreateTrip("Canyon Loop", 2, nil)
	if !h.cfg.Premium && trip.CadenceHours != trailsync.FreeCadenceFloorHours {
		return fmt.Errorf("trip cadence %.1fh, want floor %.1fh", trip.CadenceHours, trailsync.FreeCadenceFloorHours)
	}

	if eng.CheckInStatus().Status != trailsync.CheckInPending {
		return fmt.Errorf("expected pending before first check-in")
	}

	if _, err := eng.EnqueueCheckIn(trip.ID, trailsync.CheckInReport{}); err != nil {
		return err
	}
	if err := eng.Flush(ctx); err != nil {
		return err
	}

	schedule := eng.CheckInStatus()
	if schedule.Status != trailsync.CheckInOK {
		return fmt.Errorf("check-in status %s, want ok", schedule.Status)
	}
	cadence := trailsync.EffectiveCadence(trip.CadenceHours, h.cfg.Premium)
	if got := schedule.NextDue.Sub(schedule.LastCheckIn); got != cadence {
		return fmt.Errorf("next due %s after last check-in, want %s", got, cadence)
	}
	return nil
}

func runPullTruncation(ctx context.Context, h *Harness) error {
	defer h.Close()
	seeded := h.engineCfg.BackendMaxPullRows + 25
	msgs := make([]trailsync.Message, seeded)
	base := time.Now().Add(-time.Hour)
	for i := range msgs {
		msgs[i] = trailsync.Message{
			ConversationID: "conv-group",
			SenderID:       "peer",
			Body:           fmt.Sprintf("track point %d", i),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
	}
	h.backend.seedMessages(msgs)

	cls := trailsync.NewStaticClassifier(trailsync.NetworkState{Connectivity: trailsync.ConnectivityCellular})
	eng, err := h.newEngine("device-a", cls)
	if err != nil {
		return err
	}
	if err := eng.Pull(ctx); err != nil {
		return err
	}

	if got := len(eng.Snapshot().Messages); got != seeded {
		return fmt.Errorf("merged %d messages, want %d", got, seeded)
	}
	if calls := h.backend.pullCount(); calls < 2 {
		return fmt.Errorf("row-capped page must trigger a re-pull, got %d call(s)", calls)
	}
	return nil
}

func runMultiDevice(ctx context.Context, h *Harness) error {
	defer h.Close()
	const perDevice = 4
	devices := h.cfg.Devices

	engines := make([]*trailsync.Engine, devices)
	for i := range engines {
		cls := trailsync.NewStaticClassifier(trailsync.NetworkState{Connectivity: trailsync.ConnectivityWifi})
		eng, err := h.newEngine(fmt.Sprintf("device-%d", i), cls)
		if err != nil {
			return err
		}
		engines[i] = eng
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, eng := range engines {
		i, eng := i, eng
		g.Go(func() error {
			for n := 0; n < perDevice; n++ {
				if _, err := eng.EnqueueMessage("conv-shared", fmt.Sprintf("device %d note %d", i, n)); err != nil {
					return err
				}
			}
			return eng.FlushNow(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := devices * perDevice
	for i, eng := range engines {
		if err := eng.Pull(ctx); err != nil {
			return err
		}
		if got := len(eng.Snapshot().Messages); got != total {
			return fmt.Errorf("device %d sees %d messages, want %d", i, got, total)
		}
	}
	return nil
}
