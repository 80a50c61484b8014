// Package model contains domain models passed between layers.
package model

import "time"

// Point is a 2-D landmark coordinate, normalized to [0,1] per axis.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is one observation delivered by an external face-landmark detector.
// The landmark slice follows the detector's fixed numbering scheme and is
// discarded once the frame has been applied; only session state survives it.
type Frame struct {
	FrameID   string    // unique id for idempotency
	SessionID string    // monitoring session the frame belongs to
	Landmarks []Point   // ordered landmark set; empty when no face was found
	Emotion   string    // dominant emotion label from the expression classifier, optional
	Redness   float64   // eye redness percentage from the color-mask stage, optional
	TS        time.Time // capture timestamp
}

// Detected reports whether the frame carries a usable landmark set of at
// least n points. Frames without one are skipped, never counted as closure.
func (f *Frame) Detected(n int) bool {
	return len(f.Landmarks) >= n
}
