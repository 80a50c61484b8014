package ear

import "errors"

// Sentinel errors for landmark preconditions.
var (
	ErrTooFewLandmarks = errors.New("too few landmarks")
)
