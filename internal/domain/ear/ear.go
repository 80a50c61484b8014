// Package ear computes the eye aspect ratio from face-mesh landmarks.
//
// The eye aspect ratio is the ratio of eyelid vertical separation to eye
// corner horizontal distance. It collapses sharply when the lid closes,
// which gives blink detection a single numeric threshold crossing without
// a trained classifier.
package ear

import (
	"fmt"
	"math"

	"github.com/okian/blinkwatch/internal/domain/model"
)

// MinLandmarks is the size of the face-mesh landmark set the contour
// indices below are defined against. Shorter sets are rejected.
const MinLandmarks = 468

// Eye contours as six landmark indices ordered p0..p5: outer corner, two
// upper-lid points, inner corner, two lower-lid points. The numbering
// follows the 468-point face-mesh convention.
var (
	LeftContour  = [6]int{362, 385, 387, 263, 373, 380}
	RightContour = [6]int{33, 160, 158, 133, 153, 144}
)

// Ratio computes the eye aspect ratio for one eye contour:
//
//	A = d(p1, p5)
//	B = d(p2, p4)
//	EAR = (A + B) / (2 * d(p0, p3))
//
// Pure function of its six input points. A degenerate contour with zero
// corner distance yields 0.
func Ratio(eye [6]model.Point) float64 {
	a := distance(eye[1], eye[5])
	b := distance(eye[2], eye[4])
	c := distance(eye[0], eye[3])
	if c == 0 {
		return 0
	}
	return (a + b) / (2 * c)
}

// Contour selects the six contour points for one eye out of a full
// landmark set. A landmark set shorter than MinLandmarks violates the
// caller contract and is rejected.
func Contour(landmarks []model.Point, indices [6]int) ([6]model.Point, error) {
	var eye [6]model.Point
	if len(landmarks) < MinLandmarks {
		return eye, fmt.Errorf("%w: got %d, need %d", ErrTooFewLandmarks, len(landmarks), MinLandmarks)
	}
	for i, idx := range indices {
		eye[i] = landmarks[idx]
	}
	return eye, nil
}

// Average computes the mean eye aspect ratio across both eyes for a full
// landmark set.
func Average(landmarks []model.Point) (float64, error) {
	left, err := Contour(landmarks, LeftContour)
	if err != nil {
		return 0, err
	}
	right, err := Contour(landmarks, RightContour)
	if err != nil {
		return 0, err
	}
	return (Ratio(left) + Ratio(right)) / 2, nil
}

func distance(a, b model.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
