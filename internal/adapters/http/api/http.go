// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/blinkwatch/internal/domain/dedupe"
	"github.com/okian/blinkwatch/internal/domain/model"
	"github.com/okian/blinkwatch/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a frame for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, f model.Frame) bool

	// Read operations expose session snapshots.
	Session(ctx context.Context, sessionID string) (Snapshot, error)
	Sessions(ctx context.Context) []Snapshot
}

// Snapshot mirrors the read shape returned by session queries.
type Snapshot = types.Snapshot

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	framesHandler    *FramesHandler
	sessionsHandler  *SessionsHandler
	streamHandler    *StreamHandler
	dashboardHandler *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		framesHandler:    NewFramesHandler(deps),
		sessionsHandler:  NewSessionsHandler(deps),
		streamHandler:    NewStreamHandler(deps),
		dashboardHandler: newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/frames", MetricsMiddleware(s.framesHandler.HandlePostFrame, "frames"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleListSessions, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleGetSession, "session"))
	mux.HandleFunc("/ws", s.streamHandler.HandleStream)
}

// pointPair mirrors one normalized landmark coordinate on the wire.
type pointPair struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// frameRequest mirrors the JSON schema for POST /frames and WS frame
// messages.
type frameRequest struct {
	FrameID   string      `json:"frame_id"`
	SessionID string      `json:"session_id"`
	Landmarks []pointPair `json:"landmarks"`
	Emotion   string      `json:"emotion"`
	Redness   *float64    `json:"redness_pct"`
	TS        string      `json:"ts"`
}

func (f frameRequest) validate() error {
	switch {
	case strings.TrimSpace(f.FrameID) == "":
		return errors.New("missing frame_id")
	case strings.TrimSpace(f.SessionID) == "":
		return errors.New("missing session_id")
	case strings.TrimSpace(f.TS) == "":
		return errors.New("missing ts")
	}
	if _, err := time.Parse(time.RFC3339Nano, f.TS); err != nil {
		return errors.New("invalid ts; must be RFC3339")
	}
	for _, p := range f.Landmarks {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			return errors.New("landmark out of normalized range")
		}
	}
	return nil
}

// toFrame converts a validated request into the domain frame. An absent
// redness field maps to the negative keep-previous sentinel.
func (f frameRequest) toFrame() model.Frame {
	ts, _ := time.Parse(time.RFC3339Nano, f.TS)
	landmarks := make([]model.Point, len(f.Landmarks))
	for i, p := range f.Landmarks {
		landmarks[i] = model.Point{X: p.X, Y: p.Y}
	}
	redness := -1.0
	if f.Redness != nil {
		redness = *f.Redness
	}
	return model.Frame{
		FrameID:   f.FrameID,
		SessionID: f.SessionID,
		Landmarks: landmarks,
		Emotion:   f.Emotion,
		Redness:   redness,
		TS:        ts,
	}
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
