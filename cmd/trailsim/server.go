// Copyright 2026 Trailbeacon Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/trailbeacon/go-trailsync/internal/auth"
	"github.com/trailbeacon/go-trailsync/trailsync"
)

// stubServer exposes the stub backend over real HTTP so scenarios exercise
// the engine's production transport: JSON bodies, Bearer tokens, status
// classification.
type stubServer struct {
	backend  *stubBackend
	secret   []byte
	listener net.Listener
	srv      *http.Server
}

func startStubServer(backend *stubBackend, secret string) (*stubServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s := &stubServer{backend: backend, secret: []byte(secret), listener: listener}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sync/messages/batch", s.handleSendBatch)
	mux.HandleFunc("GET /sync/updates", s.handlePullUpdates)
	s.srv = &http.Server{Handler: mux}
	go s.srv.Serve(listener) //nolint:errcheck
	return s, nil
}

func (s *stubServer) URL() string {
	return "http://" + s.listener.Addr().String()
}

func (s *stubServer) Close() {
	_ = s.srv.Close()
}

func (s *stubServer) handleSendBatch(w http.ResponseWriter, r *http.Request) {
	r, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req trailsync.SendMessageBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_payload", err.Error())
		return
	}
	// Stamp the authenticated identity on messages that omit a sender.
	if userID, ok := auth.GetUserID(r.Context()); ok {
		for i := range req.Messages {
			if req.Messages[i].SenderID == "" {
				req.Messages[i].SenderID = userID
			}
		}
	}
	resp, err := s.backend.SendMessageBatch(r.Context(), &req)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *stubServer) handlePullUpdates(w http.ResponseWriter, r *http.Request) {
	r, ok := s.authorize(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := s.backend.PullUpdates(r.Context(), &trailsync.PullUpdatesRequest{
		Cursor:  r.URL.Query().Get("cursor"),
		MaxRows: limit,
	})
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// authorize validates the bearer token and returns the request with the
// authenticated user and device identity attached to its context.
func (s *stubServer) authorize(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return r, false
	}
	var claims auth.Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
		return r, false
	}
	ctx := auth.SetUserID(r.Context(), claims.Subject)
	ctx = auth.SetDeviceID(ctx, claims.DeviceID)
	return r.WithContext(ctx), true
}

func writeBackendError(w http.ResponseWriter, err error) {
	var be *trailsync.BackendError
	if errors.As(err, &be) && be.StatusCode != 0 {
		writeError(w, be.StatusCode, "rejected", be.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, trailsync.ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
