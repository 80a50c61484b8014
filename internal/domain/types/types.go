// Package types contains common types used across the application
package types

import "time"

// Snapshot is the read shape of one monitoring session, as rendered by the
// dashboard and the session endpoints.
type Snapshot struct {
	SessionID     string    `json:"session_id"`
	BlinkCount    int       `json:"blink_count"`
	AverageRate   float64   `json:"average_rate"` // blinks per minute over the whole session
	CurrentRate   int       `json:"current_rate"` // blinks in the trailing window
	Blinking      bool      `json:"blinking"`
	Detected      bool      `json:"detected"`
	EAR           float64   `json:"ear"`
	Emotion       string    `json:"emotion,omitempty"`
	Redness       float64   `json:"redness_pct"`
	FramesSeen    int64     `json:"frames_seen"`
	FramesSkipped int64     `json:"frames_skipped"`
	StartedAt     time.Time `json:"started_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}
