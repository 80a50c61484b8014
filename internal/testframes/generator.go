package testframes

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/blinkwatch/internal/domain/ear"
	"github.com/okian/blinkwatch/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	frameIDDivisor     = 10000
)

// Synthetic eye geometry. The corner-to-corner width and the ratio of the
// vertical gaps to that width fix the aspect ratio of the generated eyes.
const (
	eyeWidth  = 0.08
	openEAR   = 0.32
	closedEAR = 0.08
)

// Blink script shape: frames spent open between blinks and frames spent
// closed during a blink.
const (
	openFramesBetweenBlinks = 10
	closedFramesPerBlink    = 3
	trailingOpenFrames      = 5
)

// Eye centers in normalized image coordinates.
var (
	leftEyeCenter  = Point{X: 0.62, Y: 0.40}
	rightEyeCenter = Point{X: 0.38, Y: 0.40}
)

// emotions cycled across sessions to exercise the passthrough fields.
var emotions = []string{"neutral", "happy", "tired", "focused"}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateFrames builds scripted frame sequences for every session. Each
// session carries exactly config.NumBlinks full close/reopen cycles, so the
// expected blink count per session is known up front.
func generateFrames(ctx context.Context, config *Config, stats *Stats) (map[string][]Frame, error) {
	logger.Get().Info(ctx, "generating scripted frame sequences",
		logger.Int("sessions", config.NumSessions),
		logger.Int("blinksPerSession", config.NumBlinks),
		logger.Int("fps", config.FPS))

	frameInterval := time.Second / time.Duration(config.FPS)
	sessions := make(map[string][]Frame, config.NumSessions)

	for s := 0; s < config.NumSessions; s++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		sessionID := uuid.New().String()
		emotion := emotions[s%len(emotions)]
		sessions[sessionID] = generateSession(sessionID, emotion, config.NumBlinks, frameInterval)
		stats.FramesGenerated += len(sessions[sessionID])
	}

	logger.Get().Info(ctx, "generated frames successfully", logger.Int("count", stats.FramesGenerated))
	return sessions, nil
}

// generateSession scripts one session: open stretches separated by short
// closed stretches, one per requested blink, then a trailing open stretch so
// the final reopen is observed.
func generateSession(sessionID, emotion string, numBlinks int, frameInterval time.Duration) []Frame {
	totalFrames := numBlinks*(openFramesBetweenBlinks+closedFramesPerBlink) + trailingOpenFrames
	frames := make([]Frame, 0, totalFrames)

	base := time.Now().UTC().Add(-time.Duration(totalFrames) * frameInterval)
	ts := base
	index := 0

	emit := func(eyesOpen bool) {
		frames = append(frames, generateSingleFrame(sessionID, emotion, index, eyesOpen, ts))
		index++
		ts = ts.Add(frameInterval)
	}

	for b := 0; b < numBlinks; b++ {
		for i := 0; i < openFramesBetweenBlinks; i++ {
			emit(true)
		}
		for i := 0; i < closedFramesPerBlink; i++ {
			emit(false)
		}
	}
	for i := 0; i < trailingOpenFrames; i++ {
		emit(true)
	}

	return frames
}

// generateSingleFrame creates one frame with a full landmark set whose eye
// contours encode the requested open/closed aspect ratio.
func generateSingleFrame(sessionID, emotion string, index int, eyesOpen bool, ts time.Time) Frame {
	targetEAR := closedEAR
	if eyesOpen {
		targetEAR = openEAR
	}

	landmarks := baseLandmarks()
	placeEye(landmarks, ear.LeftContour, leftEyeCenter, targetEAR)
	placeEye(landmarks, ear.RightContour, rightEyeCenter, targetEAR)

	randNum, _ := rand.Int(rand.Reader, big.NewInt(frameIDDivisor))
	frameID := "frame_" + strconv.Itoa(index) + "_" + sessionID[:8] + "_" + strconv.FormatInt(randNum.Int64(), 10)

	redness := getRandomFloat() * 40
	return Frame{
		FrameID:   frameID,
		SessionID: sessionID,
		Landmarks: landmarks,
		Emotion:   emotion,
		Redness:   &redness,
		TS:        ts.Format(time.RFC3339Nano),
	}
}

// baseLandmarks fills a full face-mesh sized landmark set with points spread
// deterministically over the normalized frame. Only the eye contour indices
// carry meaning for the detector; the rest just have to be in range.
func baseLandmarks() []Point {
	landmarks := make([]Point, ear.MinLandmarks)
	for i := range landmarks {
		landmarks[i] = Point{
			X: 0.1 + 0.8*float64(i%21)/20.0,
			Y: 0.1 + 0.8*float64(i/21)/float64(ear.MinLandmarks/21),
		}
	}
	return landmarks
}

// placeEye positions the six contour points of one eye so that its aspect
// ratio equals targetEAR: corners a width apart, vertical pairs separated by
// targetEAR times that width.
func placeEye(landmarks []Point, indices [6]int, center Point, targetEAR float64) {
	halfWidth := eyeWidth / 2
	halfGap := targetEAR * eyeWidth / 2

	// Horizontal corners.
	landmarks[indices[0]] = Point{X: center.X - halfWidth, Y: center.Y}
	landmarks[indices[3]] = Point{X: center.X + halfWidth, Y: center.Y}

	// Upper lid points and their lower counterparts.
	landmarks[indices[1]] = Point{X: center.X - halfWidth/2, Y: center.Y - halfGap}
	landmarks[indices[5]] = Point{X: center.X - halfWidth/2, Y: center.Y + halfGap}
	landmarks[indices[2]] = Point{X: center.X + halfWidth/2, Y: center.Y - halfGap}
	landmarks[indices[4]] = Point{X: center.X + halfWidth/2, Y: center.Y + halfGap}
}
