// Package repository defines the session store interface and errors.
package repository

import (
	"time"

	"github.com/okian/blinkwatch/internal/domain/blink"
	"github.com/okian/blinkwatch/pkg/logger"
)

// Option applies a configuration option to the MemStore. Shard count is
// threaded separately because the shard slice is built after options run.
type Option func(*MemStore, *int)

// WithShardCount sets the number of shards in the session store.
func WithShardCount(count int) Option {
	return func(_ *MemStore, shardCount *int) {
		if count > 0 {
			*shardCount = count
		}
	}
}

// WithDetector sets the blink detector used for every session.
func WithDetector(d *blink.Detector) Option {
	return func(s *MemStore, _ *int) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithWindowSpan sets the rolling-rate window length.
func WithWindowSpan(span time.Duration) Option {
	return func(s *MemStore, _ *int) {
		if span > 0 {
			s.windowSpan = span
		}
	}
}

// WithIdleTTL sets how long a session may go without frames before the
// pruner evicts it. Zero disables eviction.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *MemStore, _ *int) {
		if ttl >= 0 {
			s.idleTTL = ttl
		}
	}
}

// WithPruneInterval sets how often the background pruner runs.
func WithPruneInterval(interval time.Duration) Option {
	return func(s *MemStore, _ *int) {
		if interval > 0 {
			s.pruneInterval = interval
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemStore, _ *int) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *MemStore, _ *int) {
		if l != nil {
			s.logger = l
		}
	}
}
