// Package app provides the core business service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"runtime"
	"sync"
	"time"

	framequeue "github.com/okian/blinkwatch/internal/adapters/mq/queue"
	workerpool "github.com/okian/blinkwatch/internal/adapters/mq/worker"
	"github.com/okian/blinkwatch/internal/adapters/repository"
	"github.com/okian/blinkwatch/internal/domain/blink"
	"github.com/okian/blinkwatch/internal/domain/dedupe"
	"github.com/okian/blinkwatch/internal/domain/model"
	"github.com/okian/blinkwatch/internal/domain/types"
	"github.com/okian/blinkwatch/pkg/logger"
	"github.com/okian/blinkwatch/pkg/metrics"
)

// Service implements the API dependencies for the eye-health monitor.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions   repository.Store
	deduper    dedupe.Deduper
	frameQueue framequeue.Queue
	workerPool *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	dedupeSize     int
	shardCount     int
	closeThreshold float64
	openThreshold  float64
	windowSpan     time.Duration
	idleTTL        time.Duration
	pruneInterval  time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the frame queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of session store shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithThresholds sets the EAR hysteresis band.
func WithThresholds(closeBelow, openAt float64) Option {
	return func(s *Service) {
		if closeBelow > 0 && closeBelow <= openAt {
			s.closeThreshold = closeBelow
			s.openThreshold = openAt
		}
	}
}

// WithWindowSpan sets the trailing window for the current blink rate.
func WithWindowSpan(span time.Duration) Option {
	return func(s *Service) {
		if span > 0 {
			s.windowSpan = span
		}
	}
}

// WithIdleTTL sets how long idle sessions survive before eviction.
func WithIdleTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.idleTTL = ttl
		}
	}
}

// WithPruneInterval sets the cadence of the background pruner.
func WithPruneInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval > 0 {
			s.pruneInterval = interval
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      10_000,
		dedupeSize:     50_000,
		shardCount:     8,
		closeThreshold: blink.DefaultCloseBelow,
		openThreshold:  blink.DefaultOpenAt,
		windowSpan:     60 * time.Second,
		idleTTL:        5 * time.Minute,
		pruneInterval:  5 * time.Second,
		logger:         nil, // resolved at Start
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting eye-health monitor...")

	detector := blink.NewDetector(
		blink.WithThresholds(s.closeThreshold, s.openThreshold),
	)
	s.sessions = repository.NewMemStore(ctx,
		repository.WithShardCount(s.shardCount),
		repository.WithDetector(detector),
		repository.WithWindowSpan(s.windowSpan),
		repository.WithIdleTTL(s.idleTTL),
		repository.WithPruneInterval(s.pruneInterval),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.frameQueue = framequeue.NewInMemoryQueue(
		framequeue.WithCapacity(s.queueSize),
	)

	s.workerPool = workerpool.NewPool(s.workerCount, s.frameQueue, s.sessions)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "eye-health monitor started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Float64("closeThreshold", s.closeThreshold),
		logger.Float64("openThreshold", s.openThreshold),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping eye-health monitor...")

	if q, ok := s.frameQueue.(*framequeue.InMemoryQueue); ok {
		_ = q.Close()
	}

	if s.workerPool != nil {
		s.workerPool.Stop()
	}

	if closer, ok := s.sessions.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(ctx, "eye-health monitor stopped")
}

// SeenAndRecord atomically checks if a frame id was seen and records it if
// not. Returns true if the frame was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	return s.deduper.SeenAndRecord(ctx, id)
}

// Unrecord removes a frame ID from the seen list, allowing a retry.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a frame for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, f model.Frame) bool {
	s.logger.Debug(ctx, "received frame",
		logger.String("frameID", f.FrameID),
		logger.String("sessionID", f.SessionID),
		logger.Int("landmarks", len(f.Landmarks)),
	)

	ok := s.frameQueue.Enqueue(ctx, f)
	if ok {
		metrics.UpdateQueueSize(s.frameQueue.Len(ctx))
	}
	return ok
}

// Session returns the snapshot for a single monitoring session.
func (s *Service) Session(ctx context.Context, sessionID string) (types.Snapshot, error) {
	return s.sessions.Get(ctx, sessionID)
}

// Sessions returns snapshots of all live monitoring sessions.
func (s *Service) Sessions(ctx context.Context) []types.Snapshot {
	return s.sessions.List(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"closeThreshold": s.closeThreshold,
		"openThreshold":  s.openThreshold,
		"windowSeconds":  int(s.windowSpan.Seconds()),
	}

	if s.started {
		queueLen := s.frameQueue.Len(ctx)
		activeSessions := s.sessions.Count(ctx)

		stats["queueLength"] = queueLen
		stats["activeSessions"] = activeSessions

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateActiveSessions(activeSessions)
		metrics.UpdateWorkerCount(s.workerCount)
	}

	return stats
}
