// Package blink implements the two-state blink latch driven by the eye
// aspect ratio.
//
// The latch closes when the average EAR drops below the closing threshold
// and reopens once it climbs back to the reopening threshold. The gap
// between the two thresholds is the hysteresis band; it keeps one physical
// blink from toggling the latch several times around a single cutoff. The
// blink is counted on the open-to-closed transition, so a dip of any frame
// length counts exactly once.
package blink

import "time"

// Default hysteresis band: close below 0.21, reopen at 0.25 or above.
const (
	DefaultCloseBelow = 0.21
	DefaultOpenAt     = 0.25
)

// Event reports what a Step transition did.
type Event int

const (
	// EventNone means the latch did not change.
	EventNone Event = iota
	// EventClosed means the eye closed and the blink was counted.
	EventClosed
	// EventOpened means the eye reopened; no count change.
	EventOpened
)

// State is the explicit blink session state threaded through Step. It is a
// plain value; callers own it and pass the returned copy back in.
type State struct {
	Closed    bool      // the "currently blinking" latch
	Count     int       // cumulative blinks this session
	StartedAt time.Time // session start, for the lifetime average rate
	LastEAR   float64   // most recent average EAR fed through Step
}

// NewState returns the initial state for a session starting at start.
// The latch starts open.
func NewState(start time.Time) State {
	return State{StartedAt: start}
}

// Detector holds the hysteresis thresholds.
type Detector struct {
	closeBelow float64
	openAt     float64
}

// Option applies a configuration option to the Detector.
type Option func(*Detector)

// WithThresholds sets the hysteresis band. Ignored unless
// 0 < closeBelow <= openAt.
func WithThresholds(closeBelow, openAt float64) Option {
	return func(d *Detector) {
		if closeBelow > 0 && closeBelow <= openAt {
			d.closeBelow = closeBelow
			d.openAt = openAt
		}
	}
}

// NewDetector creates a detector with the default hysteresis band.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		closeBelow: DefaultCloseBelow,
		openAt:     DefaultOpenAt,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Step advances the latch with one frame's average EAR. Pure: it returns
// the successor state and the transition event without touching shared
// state. Frames without a detected face must be skipped by the caller
// rather than fed through Step; absence of data is not evidence of
// eye closure.
func (d *Detector) Step(s State, avgEAR float64, ts time.Time) (State, Event) {
	s.LastEAR = avgEAR
	if s.StartedAt.IsZero() {
		s.StartedAt = ts
	}

	switch {
	case !s.Closed && avgEAR < d.closeBelow:
		s.Closed = true
		s.Count++
		return s, EventClosed
	case s.Closed && avgEAR >= d.openAt:
		s.Closed = false
		return s, EventOpened
	}
	return s, EventNone
}

// AverageRate returns the lifetime blink rate in blinks per minute. It
// reports 0 while no session time has elapsed rather than dividing by zero.
func AverageRate(s State, now time.Time) float64 {
	elapsed := now.Sub(s.StartedAt).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.Count) / elapsed
}
