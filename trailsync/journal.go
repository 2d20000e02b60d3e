// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Journal is the durable SQLite store for the pending-action queue and the
// pull cursor, so a restart (or crash mid-SOS) never loses a queued action.
// The engine works memory-only when no journal is attached.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (or creates) a journal database at the given path.
// Use ":memory:" for tests.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	j, err := NewJournal(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// NewJournal initializes the journal schema on an existing database handle.
func NewJournal(db *sql.DB) (*Journal, error) {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []string{
		// Client/device info, one row per signed-in user.
		`CREATE TABLE IF NOT EXISTS _sync_client_info (
			user_id    TEXT NOT NULL,
			device_id  TEXT NOT NULL,            -- locally generated UUIDv4 (persisted)
			cursor     TEXT NOT NULL DEFAULT '', -- opaque pull watermark
			PRIMARY KEY (user_id)
		)`,

		// Pending action queue, oldest first by created_at.
		`CREATE TABLE IF NOT EXISTS _sync_pending_actions (
			action_id   TEXT NOT NULL,
			action_type TEXT NOT NULL CHECK (action_type IN ('send_message','send_alert')),
			payload     TEXT NOT NULL, -- JSON message captured at enqueue time
			created_at  TEXT NOT NULL,
			attempts    INTEGER NOT NULL DEFAULT 0,
			last_error  TEXT,
			PRIMARY KEY (action_id)
		)`,
	}
	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return nil, fmt.Errorf("failed to create journal table: %w", err)
		}
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// EnsureDeviceID generates and persists a device ID if not already present.
func (j *Journal) EnsureDeviceID(userID string) (string, error) {
	var deviceID string
	err := j.db.QueryRow(`SELECT device_id FROM _sync_client_info WHERE user_id = ?`, userID).Scan(&deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		deviceID = uuid.New().String()
		_, err = j.db.Exec(`
			INSERT INTO _sync_client_info (user_id, device_id, cursor) VALUES (?, ?, '')
		`, userID, deviceID)
		if err != nil {
			return "", fmt.Errorf("failed to insert client info: %w", err)
		}
	} else if err != nil {
		return "", fmt.Errorf("failed to query client info: %w", err)
	}
	return deviceID, nil
}

// SaveAction persists a newly enqueued action.
func (j *Journal) SaveAction(a *PendingAction) error {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal action payload: %w", err)
	}
	_, err = j.db.Exec(`
		INSERT OR REPLACE INTO _sync_pending_actions
			(action_id, action_type, payload, created_at, attempts, last_error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, string(a.Type), string(payload), a.CreatedAt.UTC().Format(time.RFC3339Nano), a.Attempts, a.LastError)
	if err != nil {
		return fmt.Errorf("failed to save pending action: %w", err)
	}
	return nil
}

// UpdateAttempts records a failed attempt so the retry count survives a
// restart.
func (j *Journal) UpdateAttempts(a *PendingAction) error {
	_, err := j.db.Exec(`
		UPDATE _sync_pending_actions SET attempts = ?, last_error = ? WHERE action_id = ?
	`, a.Attempts, a.LastError, a.ID)
	if err != nil {
		return fmt.Errorf("failed to update pending action: %w", err)
	}
	return nil
}

// DeleteAction removes an acknowledged action.
func (j *Journal) DeleteAction(id string) error {
	_, err := j.db.Exec(`DELETE FROM _sync_pending_actions WHERE action_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending action: %w", err)
	}
	return nil
}

// LoadActions returns all persisted pending actions, oldest first.
func (j *Journal) LoadActions() ([]PendingAction, error) {
	rows, err := j.db.Query(`
		SELECT action_id, action_type, payload, created_at, attempts, last_error
		FROM _sync_pending_actions
		ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending actions: %w", err)
	}
	defer rows.Close()

	var actions []PendingAction
	for rows.Next() {
		var (
			a         PendingAction
			kind      string
			payload   string
			createdAt string
			lastError sql.NullString
		)
		if err := rows.Scan(&a.ID, &kind, &payload, &createdAt, &a.Attempts, &lastError); err != nil {
			return nil, fmt.Errorf("failed to scan pending action: %w", err)
		}
		a.Type = ActionType(kind)
		a.LastError = lastError.String
		if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action payload %s: %w", a.ID, err)
		}
		a.Payload.Pending = true
		if a.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse action timestamp %s: %w", a.ID, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending actions: %w", err)
	}
	return actions, nil
}

// SaveCursor persists the pull watermark. Called only after a page merged
// successfully.
func (j *Journal) SaveCursor(userID, cursor string) error {
	_, err := j.db.Exec(`UPDATE _sync_client_info SET cursor = ? WHERE user_id = ?`, cursor, userID)
	if err != nil {
		return fmt.Errorf("failed to save cursor: %w", err)
	}
	return nil
}

// LoadCursor returns the persisted pull watermark, or "" for a fresh client.
func (j *Journal) LoadCursor(userID string) (string, error) {
	var cursor string
	err := j.db.QueryRow(`SELECT cursor FROM _sync_client_info WHERE user_id = ?`, userID).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load cursor: %w", err)
	}
	return cursor, nil
}
