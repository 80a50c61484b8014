package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/blinkwatch/internal/adapters/repository"
	"github.com/okian/blinkwatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMemStore_Apply(t *testing.T) {
	Convey("Given a session store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx)
		defer store.Close()

		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		Convey("When applying the first sample of a session", func() {
			snap, err := store.Apply(ctx, repository.Sample{
				SessionID: "sess-1",
				EAR:       0.30,
				Detected:  true,
				TS:        base,
			})

			Convey("Then the session is created with zeroed counters", func() {
				So(err, ShouldBeNil)
				So(snap.SessionID, ShouldEqual, "sess-1")
				So(snap.BlinkCount, ShouldEqual, 0)
				So(snap.Blinking, ShouldBeFalse)
				So(snap.Detected, ShouldBeTrue)
				So(snap.FramesSeen, ShouldEqual, 1)
				So(snap.StartedAt, ShouldResemble, base)
			})
		})

		Convey("When a full blink passes through the session", func() {
			ears := []float64{0.30, 0.10, 0.30}
			last, err := store.Apply(ctx, repository.Sample{SessionID: "sess-1", EAR: ears[0], Detected: true, TS: base})
			So(err, ShouldBeNil)
			for i, e := range ears[1:] {
				last, err = store.Apply(ctx, repository.Sample{
					SessionID: "sess-1",
					EAR:       e,
					Detected:  true,
					TS:        base.Add(time.Duration(i+1) * 100 * time.Millisecond),
				})
				So(err, ShouldBeNil)
			}

			Convey("Then the blink is counted once and shows in the rolling rate", func() {
				So(last.BlinkCount, ShouldEqual, 1)
				So(last.CurrentRate, ShouldEqual, 1)
				So(last.Blinking, ShouldBeFalse)
				So(last.FramesSeen, ShouldEqual, 3)
			})
		})

		Convey("When a frame arrives without a detected face", func() {
			_, err := store.Apply(ctx, repository.Sample{SessionID: "sess-1", EAR: 0.10, Detected: true, TS: base})
			So(err, ShouldBeNil)

			snap, err := store.Apply(ctx, repository.Sample{
				SessionID: "sess-1",
				Detected:  false,
				TS:        base.Add(100 * time.Millisecond),
			})

			Convey("Then the frame is skipped and the latch stays put", func() {
				So(err, ShouldBeNil)
				So(snap.Detected, ShouldBeFalse)
				So(snap.FramesSkipped, ShouldEqual, 1)
				So(snap.FramesSeen, ShouldEqual, 2)
				// The blink from the detected frame survives untouched.
				So(snap.BlinkCount, ShouldEqual, 1)
				So(snap.Blinking, ShouldBeTrue)
			})
		})

		Convey("When emotion and redness ride along", func() {
			_, err := store.Apply(ctx, repository.Sample{
				SessionID: "sess-1", EAR: 0.30, Detected: true,
				Emotion: "tired", Redness: 12.5, TS: base,
			})
			So(err, ShouldBeNil)

			snap, err := store.Apply(ctx, repository.Sample{
				SessionID: "sess-1", EAR: 0.30, Detected: true,
				Emotion: "", Redness: -1, TS: base.Add(100 * time.Millisecond),
			})

			Convey("Then empty and negative values keep the previous observations", func() {
				So(err, ShouldBeNil)
				So(snap.Emotion, ShouldEqual, "tired")
				So(snap.Redness, ShouldEqual, 12.5)
			})
		})

		Convey("When no redness has ever been observed", func() {
			snap, err := store.Apply(ctx, repository.Sample{
				SessionID: "sess-1", EAR: 0.30, Detected: true, Redness: -1, TS: base,
			})

			Convey("Then the snapshot reports zero rather than the sentinel", func() {
				So(err, ShouldBeNil)
				So(snap.Redness, ShouldEqual, 0)
			})
		})

		Convey("When the session id is empty", func() {
			_, err := store.Apply(ctx, repository.Sample{EAR: 0.30, Detected: true, TS: base})

			Convey("Then the sample is rejected", func() {
				So(err, ShouldEqual, repository.ErrEmptySessionID)
			})
		})
	})
}

func TestMemStore_Reads(t *testing.T) {
	Convey("Given a store with a few sessions", t, func() {
		ctx := context.Background()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		store := repository.NewMemStore(ctx, repository.WithClock(func() time.Time { return base.Add(time.Second) }))
		defer store.Close()

		for _, id := range []string{"sess-a", "sess-b", "sess-c"} {
			_, err := store.Apply(ctx, repository.Sample{SessionID: id, EAR: 0.30, Detected: true, TS: base})
			So(err, ShouldBeNil)
		}

		Convey("When getting a known session", func() {
			snap, err := store.Get(ctx, "sess-b")

			Convey("Then its snapshot is returned", func() {
				So(err, ShouldBeNil)
				So(snap.SessionID, ShouldEqual, "sess-b")
				So(snap.FramesSeen, ShouldEqual, 1)
			})
		})

		Convey("When getting an unknown session", func() {
			_, err := store.Get(ctx, "sess-x")

			Convey("Then it reports not found", func() {
				So(err, ShouldEqual, repository.ErrNotFound)
			})
		})

		Convey("When listing sessions", func() {
			snaps := store.List(ctx)

			Convey("Then every tracked session appears once", func() {
				So(len(snaps), ShouldEqual, 3)
				So(store.Count(ctx), ShouldEqual, 3)
			})
		})

		Convey("When evicting a session", func() {
			ok := store.Evict(ctx, "sess-a")

			Convey("Then it disappears from the reads", func() {
				So(ok, ShouldBeTrue)
				So(store.Count(ctx), ShouldEqual, 2)
				_, err := store.Get(ctx, "sess-a")
				So(err, ShouldEqual, repository.ErrNotFound)
			})

			Convey("And evicting it again reports absence", func() {
				So(store.Evict(ctx, "sess-a"), ShouldBeFalse)
			})
		})
	})
}

func TestMemStore_RollingRateDecay(t *testing.T) {
	Convey("Given a session whose blinks age out of the window", t, func() {
		ctx := context.Background()
		base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		now := base
		store := repository.NewMemStore(ctx,
			repository.WithWindowSpan(60*time.Second),
			repository.WithClock(func() time.Time { return now }),
		)
		defer store.Close()

		// One blink at the start of the session.
		for i, e := range []float64{0.30, 0.10, 0.30} {
			_, err := store.Apply(ctx, repository.Sample{
				SessionID: "sess-1", EAR: e, Detected: true,
				TS: base.Add(time.Duration(i) * 100 * time.Millisecond),
			})
			So(err, ShouldBeNil)
		}

		Convey("When reading shortly after the blink", func() {
			now = base.Add(30 * time.Second)
			snap, err := store.Get(ctx, "sess-1")

			Convey("Then the rolling rate still includes it", func() {
				So(err, ShouldBeNil)
				So(snap.CurrentRate, ShouldEqual, 1)
				So(snap.BlinkCount, ShouldEqual, 1)
			})
		})

		Convey("When reading after the window has passed", func() {
			now = base.Add(2 * time.Minute)
			snap, err := store.Get(ctx, "sess-1")

			Convey("Then the rolling rate decays to zero while the count persists", func() {
				So(err, ShouldBeNil)
				So(snap.CurrentRate, ShouldEqual, 0)
				So(snap.BlinkCount, ShouldEqual, 1)
				So(snap.AverageRate, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestMemStore_IdleEviction(t *testing.T) {
	Convey("Given a store with a short idle TTL", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore(ctx,
			repository.WithIdleTTL(50*time.Millisecond),
			repository.WithPruneInterval(10*time.Millisecond),
		)
		defer store.Close()

		_, err := store.Apply(ctx, repository.Sample{
			SessionID: "sess-idle", EAR: 0.30, Detected: true, TS: time.Now(),
		})
		So(err, ShouldBeNil)

		Convey("When the session goes quiet past the TTL", func() {
			time.Sleep(200 * time.Millisecond)

			Convey("Then the pruner evicts it", func() {
				So(store.Count(ctx), ShouldEqual, 0)
			})
		})
	})
}
