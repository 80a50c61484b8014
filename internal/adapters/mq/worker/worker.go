// Package worker defines worker contracts for asynchronous frame
// application.
//
// Workers turn raw landmark frames into samples: extract the eye contours,
// compute the average eye aspect ratio, and hand the result to the session
// store. Frames without a face become undetected samples; frames with a
// malformed landmark set are dropped as errors rather than silently
// tolerated.
package worker

import (
	"context"
	"fmt"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/blinkwatch/internal/adapters/repository"
	"github.com/okian/blinkwatch/internal/domain/ear"
	"github.com/okian/blinkwatch/internal/domain/model"
	"github.com/okian/blinkwatch/internal/domain/types"
	"github.com/okian/blinkwatch/pkg/logger"
	"github.com/okian/blinkwatch/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
	laneBuffer              = 256
)

// Frame abstracts what workers read off the queue.
type Frame = model.Frame

// Applier applies one frame sample to session state.
type Applier interface {
	Apply(ctx context.Context, s repository.Sample) (types.Snapshot, error)
}

// Queue defines how workers receive frames.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Frame
}

// Worker processes frames from the queue until stopped.
type Worker struct {
	queue   Queue
	applier Applier
	name    string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a new worker with configuration options.
func NewWorker(queue Queue, applier Applier, opts ...Option) *Worker {
	w := &Worker{
		queue:    queue,
		applier:  applier,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	frames := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := w.processFrame(ctx, frame); err != nil {
				w.logger.Error(ctx, "error processing frame", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processFrame turns one frame into a sample and applies it.
func (w *Worker) processFrame(ctx context.Context, frame Frame) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	sample := repository.Sample{
		SessionID: frame.SessionID,
		Emotion:   frame.Emotion,
		Redness:   frame.Redness,
		TS:        frame.TS,
	}

	switch {
	case len(frame.Landmarks) == 0:
		// No face this frame; apply as undetected so the session's
		// detected flag tracks reality.
		sample.Detected = false
	case !frame.Detected(ear.MinLandmarks):
		// Partial landmark set: caller contract violation, not eye closure.
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "malformed_landmarks")
		return fmt.Errorf("frame %s: %w: got %d landmarks", frame.FrameID, ear.ErrTooFewLandmarks, len(frame.Landmarks))
	default:
		avg, err := ear.Average(frame.Landmarks)
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "ear_error")
			return fmt.Errorf("frame %s: %w", frame.FrameID, err)
		}
		sample.Detected = true
		sample.EAR = avg
	}

	if _, err := w.applier.Apply(ctx, sample); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		w.logger.Error(ctx, "session update failed for frame",
			logger.String("frameID", frame.FrameID),
			logger.String("sessionID", frame.SessionID),
			logger.Error(err),
		)
		return fmt.Errorf("session update failed: %w", err)
	}

	return nil
}

// laneQueue adapts one dispatch lane to the Queue contract workers consume.
type laneQueue struct {
	frames chan Frame
}

func (q laneQueue) Dequeue(_ context.Context) <-chan Frame {
	return q.frames
}

// Pool manages multiple workers behind a session-affine dispatcher.
//
// All frames of one session must step its blink latch in arrival order, or
// a contiguous eyelid dip can be split or merged once the queue holds a
// backlog. The dispatcher reads the shared queue sequentially and routes
// each frame to a fixed per-worker lane keyed by session ID, so a session
// is only ever applied by one worker.
type Pool struct {
	workers []*Worker
	lanes   []chan Frame
	queue   Queue
	applier Applier

	dispatchDone chan struct{}
	stopped      chan struct{}
	stopOnce     sync.Once

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, queue Queue, applier Applier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:      make([]*Worker, workerCount),
		lanes:        make([]chan Frame, workerCount),
		queue:        queue,
		applier:      applier,
		dispatchDone: make(chan struct{}),
		stopped:      make(chan struct{}),
		logger:       logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.lanes[i] = make(chan Frame, laneBuffer)
		pool.workers[i] = NewWorker(
			laneQueue{frames: pool.lanes[i]},
			applier,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// laneFor maps a session ID to its fixed lane. Same FNV scheme the session
// store uses for shard selection.
func (p *Pool) laneFor(sessionID string) chan Frame {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return p.lanes[h.Sum32()%uint32(len(p.lanes))]
}

// Start starts the dispatcher and all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	go p.dispatch(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// dispatch routes frames from the shared queue onto per-worker lanes,
// closing the lanes once the queue drains after Close.
func (p *Pool) dispatch(ctx context.Context) {
	defer close(p.dispatchDone)
	defer func() {
		for _, lane := range p.lanes {
			close(lane)
		}
	}()

	frames := p.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopped:
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			select {
			case p.laneFor(frame.SessionID) <- frame:
			case <-ctx.Done():
				return
			case <-p.stopped:
				return
			}
		}
	}
}

// Stop halts the dispatcher, then signals all workers and waits for them
// with a per-worker timeout. Frames still queued are abandoned.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })

	for _, w := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
		_ = w.Shutdown(ctx)
		cancel()
	}
}

// Shutdown closes the queue, lets the dispatcher drain it onto the lanes,
// then waits for all workers to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	select {
	case <-p.dispatchDone:
	case <-shutdownCtx.Done():
		p.logger.Warn(ctx, "dispatcher shutdown timed out")
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}
