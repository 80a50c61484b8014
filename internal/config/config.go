// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"

	"github.com/okian/blinkwatch/internal/domain/blink"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// FrameQueueSize bounds the in-memory frame queue.
	FrameQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of frame workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the frame deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ShardCount configures the number of shards in the session store.
	ShardCount int `koanf:"shard_count"`

	// CloseThreshold and OpenThreshold form the EAR hysteresis band: the
	// latch closes below CloseThreshold and reopens at OpenThreshold.
	CloseThreshold float64 `koanf:"close_threshold"`
	OpenThreshold  float64 `koanf:"open_threshold"`

	// WindowSeconds sets the trailing window for the current blink rate.
	WindowSeconds int `koanf:"window_seconds"`

	// IdleTTLSeconds sets how long a session survives without frames.
	// Zero disables eviction.
	IdleTTLSeconds int `koanf:"idle_ttl_seconds"`

	// PruneIntervalSeconds sets the cadence of the window/session pruner.
	PruneIntervalSeconds int `koanf:"prune_interval_seconds"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8090",
		FrameQueueSize:       10_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           50_000,
		ShardCount:           8,
		CloseThreshold:       blink.DefaultCloseBelow,
		OpenThreshold:        blink.DefaultOpenAt,
		WindowSeconds:        60,
		IdleTTLSeconds:       300,
		PruneIntervalSeconds: 5,
	}
}
