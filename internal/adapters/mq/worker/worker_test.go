package worker_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/blinkwatch/internal/adapters/mq/queue"
	worker "github.com/okian/blinkwatch/internal/adapters/mq/worker"
	"github.com/okian/blinkwatch/internal/adapters/repository"
	"github.com/okian/blinkwatch/internal/domain/ear"
	"github.com/okian/blinkwatch/internal/domain/model"
	"github.com/okian/blinkwatch/internal/domain/types"
	logging "github.com/okian/blinkwatch/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

// Mock implementations for testing.
type mockQueue struct {
	frameChan chan queue.Frame
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		frameChan: make(chan queue.Frame, 10),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Frame {
	return mq.frameChan
}

func (mq *mockQueue) Close() error {
	close(mq.frameChan)
	return nil
}

func (mq *mockQueue) addFrame(frame queue.Frame) {
	mq.frameChan <- frame
}

type mockApplier struct {
	mu      sync.Mutex
	samples []repository.Sample
	err     error
}

func (ma *mockApplier) Apply(ctx context.Context, s repository.Sample) (types.Snapshot, error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if ma.err != nil {
		return types.Snapshot{}, ma.err
	}
	ma.samples = append(ma.samples, s)
	return types.Snapshot{SessionID: s.SessionID}, nil
}

func (ma *mockApplier) setErr(err error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.err = err
}

func (ma *mockApplier) applied() []repository.Sample {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	out := make([]repository.Sample, len(ma.samples))
	copy(out, ma.samples)
	return out
}

// landmarksWithRatio builds a full landmark set with both eyes encoding r.
func landmarksWithRatio(r float64) []model.Point {
	landmarks := make([]model.Point, ear.MinLandmarks)
	for i := range landmarks {
		landmarks[i] = model.Point{X: 0.5, Y: 0.5}
	}
	place := func(indices [6]int, cx float64) {
		width := 0.1
		halfGap := r * width / 2
		landmarks[indices[0]] = model.Point{X: cx - width/2, Y: 0.4}
		landmarks[indices[3]] = model.Point{X: cx + width/2, Y: 0.4}
		landmarks[indices[1]] = model.Point{X: cx - width/4, Y: 0.4 - halfGap}
		landmarks[indices[5]] = model.Point{X: cx - width/4, Y: 0.4 + halfGap}
		landmarks[indices[2]] = model.Point{X: cx + width/4, Y: 0.4 - halfGap}
		landmarks[indices[4]] = model.Point{X: cx + width/4, Y: 0.4 + halfGap}
	}
	place(ear.LeftContour, 0.62)
	place(ear.RightContour, 0.38)
	return landmarks
}

func waitForSamples(ma *mockApplier, n int, timeout time.Duration) []repository.Sample {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if samples := ma.applied(); len(samples) >= n {
			return samples
		}
		time.Sleep(5 * time.Millisecond)
	}
	return ma.applied()
}

func TestWorker_ProcessFrames(t *testing.T) {
	convey.Convey("Given a worker wired to a queue and applier", t, func() {
		mq := newMockQueue()
		ma := &mockApplier{}
		w := worker.NewWorker(mq, ma, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a frame with a full landmark set arrives", func() {
			ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
			mq.addFrame(model.Frame{
				FrameID:   "frame-1",
				SessionID: "sess-1",
				Landmarks: landmarksWithRatio(0.3),
				Emotion:   "neutral",
				Redness:   10,
				TS:        ts,
			})
			samples := waitForSamples(ma, 1, time.Second)

			convey.Convey("Then a detected sample with the computed ratio is applied", func() {
				convey.So(len(samples), convey.ShouldEqual, 1)
				convey.So(samples[0].SessionID, convey.ShouldEqual, "sess-1")
				convey.So(samples[0].Detected, convey.ShouldBeTrue)
				convey.So(samples[0].EAR, convey.ShouldAlmostEqual, 0.3, 1e-9)
				convey.So(samples[0].Emotion, convey.ShouldEqual, "neutral")
				convey.So(samples[0].Redness, convey.ShouldEqual, 10)
				convey.So(samples[0].TS, convey.ShouldResemble, ts)
			})
		})

		convey.Convey("When a frame arrives with no landmarks", func() {
			mq.addFrame(model.Frame{
				FrameID:   "frame-2",
				SessionID: "sess-1",
				TS:        time.Now(),
			})
			samples := waitForSamples(ma, 1, time.Second)

			convey.Convey("Then an undetected sample is applied instead of a closure", func() {
				convey.So(len(samples), convey.ShouldEqual, 1)
				convey.So(samples[0].Detected, convey.ShouldBeFalse)
				convey.So(samples[0].EAR, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a frame arrives with a partial landmark set", func() {
			mq.addFrame(model.Frame{
				FrameID:   "frame-3",
				SessionID: "sess-1",
				Landmarks: landmarksWithRatio(0.3)[:50],
				TS:        time.Now(),
			})
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then the frame is dropped without reaching the store", func() {
				convey.So(len(ma.applied()), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the applier fails", func() {
			ma.setErr(errors.New("store unavailable"))
			mq.addFrame(model.Frame{
				FrameID:   "frame-4",
				SessionID: "sess-1",
				Landmarks: landmarksWithRatio(0.3),
				TS:        time.Now(),
			})
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then the worker keeps running", func() {
				ma.setErr(nil)
				mq.addFrame(model.Frame{
					FrameID:   "frame-5",
					SessionID: "sess-1",
					Landmarks: landmarksWithRatio(0.3),
					TS:        time.Now(),
				})
				samples := waitForSamples(ma, 1, time.Second)
				convey.So(len(samples), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestWorker_Shutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		ma := &mockApplier{}
		w := worker.NewWorker(mq, ma)

		ctx := context.Background()
		go w.Run(ctx)

		convey.Convey("When shutdown is requested", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then it stops promptly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a worker pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		ma := &mockApplier{}
		pool := worker.NewPool(4, q, ma)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When frames are enqueued", func() {
			for i := 0; i < 20; i++ {
				ok := q.Enqueue(ctx, model.Frame{
					FrameID:   "frame-" + string(rune('a'+i)),
					SessionID: "sess-1",
					Landmarks: landmarksWithRatio(0.3),
					TS:        time.Now(),
				})
				convey.So(ok, convey.ShouldBeTrue)
			}
			samples := waitForSamples(ma, 20, 2*time.Second)

			convey.Convey("Then every frame is applied", func() {
				convey.So(len(samples), convey.ShouldEqual, 20)
			})

			convey.Convey("And shutdown drains cleanly", func() {
				err := pool.Shutdown(ctx)
				convey.So(err, convey.ShouldBeNil)
			})
		})
	})
}

func TestPool_SessionOrdering(t *testing.T) {
	convey.Convey("Given a deep backlog of one session's scripted dips", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(1000))
		store := repository.NewMemStore(ctx)
		defer func() { _ = store.Close() }()

		// Open frame, then each dip is one closed frame followed by a
		// reopen. Every dip must count exactly once no matter how the
		// backlog is spread across workers.
		const dips = 200
		ratios := make([]float64, 0, 1+2*dips)
		ratios = append(ratios, 0.3)
		for i := 0; i < dips; i++ {
			ratios = append(ratios, 0.1, 0.3)
		}

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for i, r := range ratios {
			ok := q.Enqueue(ctx, model.Frame{
				FrameID:   "ord-" + strconv.Itoa(i),
				SessionID: "sess-ordered",
				Landmarks: landmarksWithRatio(r),
				TS:        base.Add(time.Duration(i) * 33 * time.Millisecond),
			})
			convey.So(ok, convey.ShouldBeTrue)
		}

		convey.Convey("When a wide pool drains the backlog", func() {
			pool := worker.NewPool(16, q, store)
			pool.Start(ctx)
			defer pool.Stop()

			var snap types.Snapshot
			deadline := time.Now().Add(5 * time.Second)
			for time.Now().Before(deadline) {
				s, err := store.Get(ctx, "sess-ordered")
				if err == nil && s.FramesSeen == int64(len(ratios)) {
					snap = s
					break
				}
				time.Sleep(5 * time.Millisecond)
			}

			convey.Convey("Then every dip counts exactly once", func() {
				convey.So(snap.FramesSeen, convey.ShouldEqual, len(ratios))
				convey.So(snap.BlinkCount, convey.ShouldEqual, dips)
				convey.So(snap.Blinking, convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given two sessions interleaved in the backlog", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(200))
		ma := &mockApplier{}

		const perSession = 50
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		for i := 0; i < perSession; i++ {
			for _, sess := range []string{"sess-a", "sess-b"} {
				ok := q.Enqueue(ctx, model.Frame{
					FrameID:   sess + "-" + strconv.Itoa(i),
					SessionID: sess,
					Landmarks: landmarksWithRatio(0.3),
					TS:        base.Add(time.Duration(i) * 33 * time.Millisecond),
				})
				convey.So(ok, convey.ShouldBeTrue)
			}
		}

		convey.Convey("When the pool applies them concurrently", func() {
			pool := worker.NewPool(8, q, ma)
			pool.Start(ctx)
			defer pool.Stop()

			samples := waitForSamples(ma, 2*perSession, 5*time.Second)
			convey.So(len(samples), convey.ShouldEqual, 2*perSession)

			convey.Convey("Then each session's frames arrive in submission order", func() {
				for _, sess := range []string{"sess-a", "sess-b"} {
					var prev time.Time
					n := 0
					for _, s := range samples {
						if s.SessionID != sess {
							continue
						}
						if n > 0 {
							convey.So(s.TS.After(prev), convey.ShouldBeTrue)
						}
						prev = s.TS
						n++
					}
					convey.So(n, convey.ShouldEqual, perSession)
				}
			})
		})
	})
}
