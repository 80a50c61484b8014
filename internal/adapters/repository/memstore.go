// Package repository defines the session store interface and errors.
package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/blinkwatch/internal/domain/blink"
	"github.com/okian/blinkwatch/internal/domain/rate"
	"github.com/okian/blinkwatch/internal/domain/types"
	"github.com/okian/blinkwatch/pkg/logger"
	"github.com/okian/blinkwatch/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultShardCount    = 8
	defaultIdleTTL       = 5 * time.Minute
	defaultPruneInterval = 5 * time.Second
)

// session is the long-lived mutable state of one monitoring session. It is
// only touched under its shard lock, which serializes updates the way the
// original single callback sequence did.
type session struct {
	state      blink.State
	window     *rate.Window
	detected   bool
	emotion    string
	redness    float64
	seen       int64
	skipped    int64
	lastSeenAt time.Time
}

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// MemStore implements Store with sharded in-memory session state. Sessions
// live for the duration of monitoring only; a restart resets everything.
type MemStore struct {
	shards        []*shard
	detector      *blink.Detector
	windowSpan    time.Duration
	idleTTL       time.Duration
	pruneInterval time.Duration
	clock         func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}

	logger logger.Logger
}

// NewMemStore creates a session store and starts its background pruner.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		detector:      blink.NewDetector(),
		windowSpan:    rate.DefaultSpan,
		idleTTL:       defaultIdleTTL,
		pruneInterval: defaultPruneInterval,
		clock:         time.Now,
		stopCh:        make(chan struct{}),
		logger:        logger.Get().Named("sessions"),
	}

	shardCount := defaultShardCount
	for _, opt := range opts {
		opt(s, &shardCount)
	}

	s.shards = make([]*shard, shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*session)}
	}

	go s.pruneLoop(ctx)

	return s
}

// Close stops the background pruner.
func (s *MemStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	return nil
}

func (s *MemStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Apply steps one session's blink state with a frame sample.
func (s *MemStore) Apply(ctx context.Context, sample Sample) (types.Snapshot, error) {
	if sample.SessionID == "" {
		return types.Snapshot{}, ErrEmptySessionID
	}

	start := time.Now()
	defer func() {
		metrics.RecordFrameApplyLatency(float64(time.Since(start).Milliseconds()))
	}()

	ts := sample.TS
	if ts.IsZero() {
		ts = s.clock()
	}

	sh := s.shardFor(sample.SessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sess, ok := sh.sessions[sample.SessionID]
	if !ok {
		sess = &session{
			state:   blink.NewState(ts),
			window:  rate.NewWindow(rate.WithSpan(s.windowSpan)),
			redness: -1,
		}
		sh.sessions[sample.SessionID] = sess
		s.logger.Debug(ctx, "session created", logger.String("sessionID", sample.SessionID))
	}

	sess.seen++
	sess.lastSeenAt = ts
	sess.detected = sample.Detected

	if !sample.Detected {
		// No face this frame: skip the update. Absence of data is not
		// evidence of eye closure.
		sess.skipped++
		metrics.RecordFrameSkipped()
		return s.snapshotLocked(sample.SessionID, sess, ts), nil
	}

	if sample.Emotion != "" {
		sess.emotion = sample.Emotion
	}
	if sample.Redness >= 0 {
		sess.redness = sample.Redness
	}

	next, event := s.detector.Step(sess.state, sample.EAR, ts)
	sess.state = next
	if event == blink.EventClosed {
		sess.window.Add(ts)
		metrics.RecordBlink()
	}

	metrics.ObserveEAR(sample.EAR)
	metrics.RecordFrameProcessed()

	return s.snapshotLocked(sample.SessionID, sess, ts), nil
}

// Get returns the snapshot for a session.
func (s *MemStore) Get(_ context.Context, sessionID string) (types.Snapshot, error) {
	sh := s.shardFor(sessionID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	sess, ok := sh.sessions[sessionID]
	if !ok {
		return types.Snapshot{}, ErrNotFound
	}
	return s.snapshotLocked(sessionID, sess, s.clock()), nil
}

// List returns snapshots of all tracked sessions.
func (s *MemStore) List(_ context.Context) []types.Snapshot {
	now := s.clock()
	out := make([]types.Snapshot, 0)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id, sess := range sh.sessions {
			out = append(out, s.snapshotLocked(id, sess, now))
		}
		sh.mu.RUnlock()
	}
	return out
}

// Count returns the number of tracked sessions.
func (s *MemStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n
}

// Evict removes a session, reporting whether it existed.
func (s *MemStore) Evict(_ context.Context, sessionID string) bool {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.sessions[sessionID]; !ok {
		return false
	}
	delete(sh.sessions, sessionID)
	metrics.RecordSessionEvicted()
	return true
}

// snapshotLocked renders a session under its shard lock. The window count
// prunes as it reads, so the current rate decays between frames too.
func (s *MemStore) snapshotLocked(id string, sess *session, now time.Time) types.Snapshot {
	redness := sess.redness
	if redness < 0 {
		redness = 0
	}
	return types.Snapshot{
		SessionID:     id,
		BlinkCount:    sess.state.Count,
		AverageRate:   blink.AverageRate(sess.state, now),
		CurrentRate:   sess.window.Within(now),
		Blinking:      sess.state.Closed,
		Detected:      sess.detected,
		EAR:           sess.state.LastEAR,
		Emotion:       sess.emotion,
		Redness:       redness,
		FramesSeen:    sess.seen,
		FramesSkipped: sess.skipped,
		StartedAt:     sess.state.StartedAt,
		LastSeenAt:    sess.lastSeenAt,
	}
}

// pruneLoop ages rolling windows and evicts idle sessions on a timer,
// independently of frame arrival.
func (s *MemStore) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.prune(ctx)
		}
	}
}

func (s *MemStore) prune(ctx context.Context) {
	now := s.clock()
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, sess := range sh.sessions {
			sess.window.Prune(now)
			if s.idleTTL > 0 && now.Sub(sess.lastSeenAt) > s.idleTTL {
				delete(sh.sessions, id)
				metrics.RecordSessionEvicted()
				s.logger.Info(ctx, "evicted idle session",
					logger.String("sessionID", id),
					logger.Duration("idle", now.Sub(sess.lastSeenAt)),
				)
				continue
			}
			total++
		}
		sh.mu.Unlock()
	}
	metrics.UpdateActiveSessions(total)
}
