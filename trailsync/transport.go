// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package trailsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Backend is the RPC surface the engine consumes. The server implementation
// is an external collaborator; only its guards (maximum batch count, pull
// row cap) matter to the engine.
type Backend interface {
	SendMessageBatch(ctx context.Context, req *SendMessageBatchRequest) (*SendMessageBatchResponse, error)
	PullUpdates(ctx context.Context, req *PullUpdatesRequest) (*PullUpdatesResponse, error)
}

// TokenSource returns a bearer token for backend requests.
type TokenSource func(ctx context.Context) (string, error)

// HTTPBackend talks JSON over HTTP to the sync backend.
type HTTPBackend struct {
	BaseURL string
	Token   TokenSource
	HTTP    *http.Client
}

// NewHTTPBackend creates a backend client with the given request timeout.
func NewHTTPBackend(baseURL string, token TokenSource, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		BaseURL: baseURL,
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// SendMessageBatch posts a batch of pending messages.
func (b *HTTPBackend) SendMessageBatch(ctx context.Context, req *SendMessageBatchRequest) (*SendMessageBatchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/sync/messages/batch", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := b.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := b.HTTP.Do(httpReq)
	if err != nil {
		return nil, &BackendError{Message: err.Error(), Err: ErrTransient}
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var batchResp SendMessageBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return nil, &BackendError{StatusCode: resp.StatusCode, Message: "failed to decode batch response: " + err.Error(), Err: ErrTransient}
	}
	return &batchResp, nil
}

// PullUpdates fetches one incremental page newer than the cursor.
func (b *HTTPBackend) PullUpdates(ctx context.Context, req *PullUpdatesRequest) (*PullUpdatesResponse, error) {
	query := url.Values{}
	query.Set("cursor", req.Cursor)
	query.Set("limit", strconv.Itoa(req.MaxRows))
	endpoint := b.BaseURL + "/sync/updates?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if err := b.authorize(ctx, httpReq); err != nil {
		return nil, err
	}

	resp, err := b.HTTP.Do(httpReq)
	if err != nil {
		return nil, &BackendError{Message: err.Error(), Err: ErrTransient}
	}
	defer resp.Body.Close()

	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var pullResp PullUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&pullResp); err != nil {
		return nil, &BackendError{StatusCode: resp.StatusCode, Message: "failed to decode pull response: " + err.Error(), Err: ErrTransient}
	}
	return &pullResp, nil
}

func (b *HTTPBackend) authorize(ctx context.Context, req *http.Request) error {
	if b.Token == nil {
		return nil
	}
	token, err := b.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bearer token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// checkResponse classifies a non-2xx response into the sentinel taxonomy,
// preserving the server's error message for debugging.
func checkResponse(resp *http.Response) error {
	sentinel := classifyStatus(resp.StatusCode)
	if sentinel == nil {
		return nil
	}
	message := resp.Status
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
		message = errResp.Message
	} else if len(body) > 0 {
		message = string(body)
	}
	return &BackendError{StatusCode: resp.StatusCode, Message: message, Err: sentinel}
}
