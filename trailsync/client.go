// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine owns the pending-action queue, the pull cursor, and the merged
// local collections. Callers hold a reference and call Enqueue*/Flush/Pull
// (or Start for background loops); UI layers read derived state and
// subscribe to snapshots.
type Engine struct {
	UserID   string
	DeviceID string

	cfg        *Config
	classifier Classifier
	backend    Backend
	journal    *Journal
	notifier   AlertNotifier
	metrics    StageMetricsRecorder
	logger     *slog.Logger
	premium    bool
	now        func() time.Time

	store *store
	queue *actionQueue

	// mu guards cursor and retry state. The queue and store carry their
	// own locks; flushes and pulls may overlap since they touch disjoint
	// cursors/queues and converge only through the store.
	mu     sync.Mutex
	cursor string
	retry  retryState

	// Flush-in-progress guard token: two rapid flushes must never submit
	// the same pending action in two simultaneous in-flight batches.
	flushing int32

	// Pause switches (atomic): allow callers to suspend sync activity
	// deterministically.
	flushPaused int32
	pullPaused  int32
}

// Options configures a new Engine. Config, Classifier, and Backend are
// required; Journal, Notifier, Metrics, and Logger are optional.
type Options struct {
	Config     *Config
	Classifier Classifier
	Backend    Backend
	Journal    *Journal
	Notifier   AlertNotifier
	Metrics    StageMetricsRecorder
	Logger     *slog.Logger
	UserID     string
	Premium    bool
}

// NewEngine validates the configuration and, when a journal is attached,
// restores the persisted queue and cursor so pending safety actions
// survive restarts.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("%w: config cannot be nil", ErrConfig)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("%w: classifier cannot be nil", ErrConfig)
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("%w: backend cannot be nil", ErrConfig)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		UserID:     opts.UserID,
		cfg:        opts.Config,
		classifier: opts.Classifier,
		backend:    opts.Backend,
		journal:    opts.Journal,
		notifier:   opts.Notifier,
		metrics:    opts.Metrics,
		logger:     logger,
		premium:    opts.Premium,
		now:        time.Now,
		store:      newStore(),
		queue:      newActionQueue(),
	}
	e.retry.max = opts.Config.MaxBackoff

	if e.journal != nil {
		deviceID, err := e.journal.EnsureDeviceID(e.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to ensure device id: %w", err)
		}
		e.DeviceID = deviceID

		cursor, err := e.journal.LoadCursor(e.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load cursor: %w", err)
		}
		e.cursor = cursor

		actions, err := e.journal.LoadActions()
		if err != nil {
			return nil, fmt.Errorf("failed to restore pending actions: %w", err)
		}
		e.queue.Restore(actions)
		for _, a := range actions {
			e.store.ApplyOptimistic(a.Payload)
		}
	}

	return e, nil
}

// PauseFlush suspends flush operations (Flush and background loops respect this flag)
func (e *Engine) PauseFlush() { atomic.StoreInt32(&e.flushPaused, 1) }

// ResumeFlush resumes flush operations
func (e *Engine) ResumeFlush() { atomic.StoreInt32(&e.flushPaused, 0) }

// PausePull suspends pull operations
func (e *Engine) PausePull() { atomic.StoreInt32(&e.pullPaused, 1) }

// ResumePull resumes pull operations
func (e *Engine) ResumePull() { atomic.StoreInt32(&e.pullPaused, 0) }

// Subscribe registers an onChange callback invoked with a fresh snapshot
// after every committed mutation. Returns an unsubscribe function.
func (e *Engine) Subscribe(fn func(Snapshot)) func() {
	return e.store.Subscribe(fn)
}

// Snapshot returns an immutable copy of the merged collections.
func (e *Engine) Snapshot() Snapshot {
	return e.store.Snapshot()
}

// PendingCount returns the number of not-yet-acknowledged actions.
func (e *Engine) PendingCount() int {
	return e.queue.Len()
}

// PendingActions returns a copy of the queue, oldest first.
func (e *Engine) PendingActions() []PendingAction {
	return e.queue.Pending()
}

// Cursor returns the current pull watermark.
func (e *Engine) Cursor() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Enqueue appends an action to the pending queue, persists it, and
// materializes the optimistic local record so the caller sees the action
// before confirmation.
func (e *Engine) Enqueue(a *PendingAction) error {
	if e.journal != nil {
		if err := e.journal.SaveAction(a); err != nil {
			return err
		}
	}
	e.queue.Enqueue(a)
	e.store.ApplyOptimistic(a.Payload)
	e.logger.Debug("Enqueued pending action", "id", a.ID, "type", a.Type)
	return nil
}

// EnqueueCheckIn queues a check-in for the given trip.
func (e *Engine) EnqueueCheckIn(tripID string, report CheckInReport) (*PendingAction, error) {
	a := NewCheckInAction(tripID, e.UserID, report, e.now())
	if err := e.Enqueue(a); err != nil {
		return nil, err
	}
	return a, nil
}

// EnqueueMessage queues a plain conversation message.
func (e *Engine) EnqueueMessage(conversationID, body string) (*PendingAction, error) {
	a := NewMessageAction(conversationID, e.UserID, body, e.now())
	if err := e.Enqueue(a); err != nil {
		return nil, err
	}
	return a, nil
}

// TriggerSOS queues an active SOS alert for the trip.
func (e *Engine) TriggerSOS(tripID string, opts SOSOptions) (*PendingAction, error) {
	return e.enqueueSOS(tripID, AlertStatusActive, opts)
}

// CancelSOS queues a cancellation of the current SOS.
func (e *Engine) CancelSOS(tripID string) (*PendingAction, error) {
	return e.enqueueSOS(tripID, AlertStatusCanceled, SOSOptions{})
}

// ResolveSOS queues a resolution of the current SOS.
func (e *Engine) ResolveSOS(tripID string) (*PendingAction, error) {
	return e.enqueueSOS(tripID, AlertStatusResolved, SOSOptions{})
}

func (e *Engine) enqueueSOS(tripID, status string, opts SOSOptions) (*PendingAction, error) {
	a := NewSOSAction(tripID, e.UserID, status, opts, e.now())
	if err := e.Enqueue(a); err != nil {
		return nil, err
	}
	return a, nil
}

// CreateTrip stores a new local trip with the free-tier cadence floor
// already applied.
func (e *Engine) CreateTrip(name string, cadenceHours float64, groupIDs []string) Trip {
	trip := NewTrip(name, cadenceHours, e.premium, groupIDs, e.now())
	e.store.UpsertTrip(trip)
	return trip
}

// CheckInStatus derives the check-in schedule for the active trip.
func (e *Engine) CheckInStatus() CheckInSchedule {
	snap := e.store.Snapshot()
	return ComputeCheckInSchedule(snap.ActiveTrip(), snap.Messages, e.premium, e.now())
}

// SOSStatus derives the SOS lifecycle state for the active trip.
func (e *Engine) SOSStatus() SOSStatus {
	snap := e.store.Snapshot()
	tripID := ""
	if trip := snap.ActiveTrip(); trip != nil {
		tripID = trip.ID
	}
	return ComputeSOSStatus(snap.Messages, tripID, e.queue.Lookup)
}

// Start launches the background flush and pull loops. They stop when the
// context is canceled.
func (e *Engine) Start(ctx context.Context) error {
	go e.flusherLoop(ctx)
	go e.pullerLoop(ctx)
	return nil
}

// Stop stops the sync loops.
func (e *Engine) Stop(ctx context.Context) error {
	// Context cancellation will stop the loops
	return nil
}

func (e *Engine) flusherLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.BaseBackoff)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if atomic.LoadInt32(&e.flushPaused) == 1 {
			continue
		}
		if err := e.Flush(ctx); err != nil {
			e.logger.Warn("Background flush failed", "error", err)
		}
	}
}

func (e *Engine) pullerLoop(ctx context.Context) {
	backoff := e.cfg.BaseBackoff
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if atomic.LoadInt32(&e.pullPaused) == 1 {
			continue
		}
		if err := e.Pull(ctx); err != nil {
			backoff = backoff * 2
			if backoff > e.cfg.MaxBackoff {
				backoff = e.cfg.MaxBackoff
			}
			e.logger.Warn("Background pull failed", "error", err, "backoff", backoff)
		} else {
			backoff = e.cfg.BaseBackoff
		}
	}
}
