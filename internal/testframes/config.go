package testframes

import "time"

// Config holds configuration for the frame test
type Config struct {
	BaseURL     string        // Base URL of the service
	NumSessions int           // Number of monitoring sessions to simulate
	NumBlinks   int           // Number of blinks scripted per session
	FPS         int           // Simulated camera frame rate
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	OutputFile  string        // Output file for frames
	LogFile     string        // Log file for test output
	Verbose     bool          // Enable verbose logging
}

// Point is one normalized landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame represents a frame to be submitted
type Frame struct {
	FrameID   string   `json:"frame_id"`
	SessionID string   `json:"session_id"`
	Landmarks []Point  `json:"landmarks"`
	Emotion   string   `json:"emotion"`
	Redness   *float64 `json:"redness_pct,omitempty"`
	TS        string   `json:"ts"`
}

// Snapshot represents a session snapshot from the read API
type Snapshot struct {
	SessionID   string  `json:"session_id"`
	BlinkCount  int     `json:"blink_count"`
	AverageRate float64 `json:"average_rate"`
	CurrentRate float64 `json:"current_rate"`
	FramesSeen  int64   `json:"frames_seen"`
}

// AckResponse represents the response from frame submission
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds test statistics
type Stats struct {
	FramesGenerated  int
	FramesSubmitted  int
	FramesSuccessful int
	FramesDuplicate  int
	FramesFailed     int
	SessionsChecked  int
	SessionsCorrect  int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
