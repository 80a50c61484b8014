package metrics

import "errors"

// Sentinel errors for metrics registration.
var (
	ErrRegister = errors.New("metrics registration failed")
)
