// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for sync failure classification.
// Use errors.Is(err, trailsync.ErrAuth) to check.
var (
	ErrOffline       = errors.New("trailsync: offline")
	ErrAuth          = errors.New("trailsync: authorization failed")
	ErrBatchTooLarge = errors.New("trailsync: batch exceeds server maximum")
	ErrBadPayload    = errors.New("trailsync: payload rejected")
	ErrTransient     = errors.New("trailsync: transient network failure")
	ErrMergeFailed   = errors.New("trailsync: merge failed")
	ErrConfig        = errors.New("trailsync: invalid configuration")
)

// BackendError wraps a sentinel error with the HTTP status code and the
// server's error message body for debugging.
type BackendError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("trailsync: backend HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("trailsync: backend: %s", e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusRequestEntityTooLarge:
		return ErrBatchTooLarge
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrBadPayload
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return ErrTransient
	default:
		if code >= http.StatusInternalServerError {
			return ErrTransient
		}
		if code >= 200 && code < 300 {
			return nil
		}
		return ErrTransient
	}
}

// isFatalSendError reports whether a send failure must be surfaced instead
// of retried. Oversized batches and rejected payloads are configuration or
// programming errors; blind retries would never succeed.
func isFatalSendError(err error) bool {
	return errors.Is(err, ErrBatchTooLarge) || errors.Is(err, ErrBadPayload) || errors.Is(err, ErrConfig)
}
