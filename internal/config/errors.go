package config

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration loading and validation.
var (
	ErrEmptyAddr     = errors.New("addr must not be empty")
	ErrBadThresholds = errors.New("close_threshold must be positive and not above open_threshold")
	ErrBadWindow     = errors.New("window_seconds must be positive")
)

// WrapLoad annotates provider/unmarshal errors from the config machinery.
func WrapLoad(err error) error {
	return fmt.Errorf("config load: %w", err)
}
