// Package repository defines the session store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/okian/blinkwatch/internal/domain/types"
)

// Sample is one frame's measurement, ready to apply to a session. The
// worker computes it from the raw landmark set; by the time it reaches the
// store the landmarks themselves are gone.
type Sample struct {
	SessionID string
	EAR       float64 // average eye aspect ratio of both eyes; meaningless when !Detected
	Detected  bool    // whether a usable face was found this frame
	Emotion   string  // pass-through observation, empty to keep the previous value
	Redness   float64 // pass-through observation, negative to keep the previous value
	TS        time.Time
}

// Store provides read/write access to per-session blink state.
type Store interface {
	// Apply steps one session's blink state with a frame sample, creating
	// the session on first sight, and returns the resulting snapshot.
	// Undetected samples only flip the session's detected flag; the latch
	// and counters stay untouched.
	Apply(ctx context.Context, s Sample) (types.Snapshot, error)

	// Get returns the snapshot for a session.
	// Returns ErrNotFound if the session is unknown.
	Get(ctx context.Context, sessionID string) (types.Snapshot, error)

	// List returns snapshots of all tracked sessions.
	List(ctx context.Context) []types.Snapshot

	// Count returns the number of tracked sessions.
	Count(ctx context.Context) int

	// Evict removes a session, reporting whether it existed.
	Evict(ctx context.Context, sessionID string) bool
}
