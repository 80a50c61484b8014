package blink_test

import (
	"testing"
	"time"

	"github.com/okian/blinkwatch/internal/domain/blink"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDetector_Step(t *testing.T) {
	Convey("Given a detector with the default hysteresis band", t, func() {
		d := blink.NewDetector()
		start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		s := blink.NewState(start)

		Convey("When the eye stays open", func() {
			var ev blink.Event
			for i := 0; i < 10; i++ {
				s, ev = d.Step(s, 0.30, start.Add(time.Duration(i)*100*time.Millisecond))
			}

			Convey("Then nothing is counted", func() {
				So(ev, ShouldEqual, blink.EventNone)
				So(s.Count, ShouldEqual, 0)
				So(s.Closed, ShouldBeFalse)
			})
		})

		Convey("When the ratio dips below the closing threshold", func() {
			s, ev := d.Step(s, 0.10, start)

			Convey("Then the blink is counted on the close transition", func() {
				So(ev, ShouldEqual, blink.EventClosed)
				So(s.Count, ShouldEqual, 1)
				So(s.Closed, ShouldBeTrue)
			})

			Convey("And further closed frames do not count again", func() {
				s2, ev2 := d.Step(s, 0.05, start.Add(100*time.Millisecond))
				s2, ev3 := d.Step(s2, 0.08, start.Add(200*time.Millisecond))
				So(ev2, ShouldEqual, blink.EventNone)
				So(ev3, ShouldEqual, blink.EventNone)
				So(s2.Count, ShouldEqual, 1)
			})

			Convey("And reopening does not change the count", func() {
				s2, ev2 := d.Step(s, 0.30, start.Add(300*time.Millisecond))
				So(ev2, ShouldEqual, blink.EventOpened)
				So(s2.Count, ShouldEqual, 1)
				So(s2.Closed, ShouldBeFalse)
			})
		})

		Convey("When the ratio sits inside the hysteresis band", func() {
			Convey("And the latch is open", func() {
				s2, ev := d.Step(s, 0.23, start)

				Convey("Then the latch stays open", func() {
					So(ev, ShouldEqual, blink.EventNone)
					So(s2.Closed, ShouldBeFalse)
					So(s2.Count, ShouldEqual, 0)
				})
			})

			Convey("And the latch is closed", func() {
				s2, _ := d.Step(s, 0.10, start)
				s2, ev := d.Step(s2, 0.23, start.Add(100*time.Millisecond))

				Convey("Then the latch stays closed", func() {
					So(ev, ShouldEqual, blink.EventNone)
					So(s2.Closed, ShouldBeTrue)
					So(s2.Count, ShouldEqual, 1)
				})
			})
		})

		Convey("When the ratio hovers around a single cutoff inside the band", func() {
			ratios := []float64{0.30, 0.10, 0.22, 0.20, 0.23, 0.30}
			var ev blink.Event
			for i, r := range ratios {
				s, ev = d.Step(s, r, start.Add(time.Duration(i)*100*time.Millisecond))
			}

			Convey("Then the dip counts exactly once", func() {
				So(s.Count, ShouldEqual, 1)
				So(s.Closed, ShouldBeFalse)
				So(ev, ShouldEqual, blink.EventOpened)
			})
		})

		Convey("When several full blinks occur", func() {
			ratios := []float64{0.30, 0.10, 0.30, 0.10, 0.30, 0.10, 0.30}
			for i, r := range ratios {
				s, _ = d.Step(s, r, start.Add(time.Duration(i)*100*time.Millisecond))
			}

			Convey("Then each close transition counts once", func() {
				So(s.Count, ShouldEqual, 3)
			})
		})

		Convey("When stepping a zero-valued state", func() {
			ts := start.Add(time.Hour)
			s2, _ := d.Step(blink.State{}, 0.30, ts)

			Convey("Then the session start is backfilled from the frame", func() {
				So(s2.StartedAt, ShouldResemble, ts)
			})
		})

		Convey("When a frame is stepped", func() {
			s2, _ := d.Step(s, 0.27, start)

			Convey("Then the last observed ratio is recorded", func() {
				So(s2.LastEAR, ShouldEqual, 0.27)
			})
		})
	})

	Convey("Given a detector with custom thresholds", t, func() {
		d := blink.NewDetector(blink.WithThresholds(0.15, 0.18))
		start := time.Now()
		s := blink.NewState(start)

		Convey("When the ratio dips below the default band but above the custom one", func() {
			s, ev := d.Step(s, 0.19, start)

			Convey("Then no blink is counted", func() {
				So(ev, ShouldEqual, blink.EventNone)
				So(s.Count, ShouldEqual, 0)
			})
		})

		Convey("When the ratio dips below the custom threshold", func() {
			s, ev := d.Step(s, 0.14, start)

			Convey("Then the blink is counted", func() {
				So(ev, ShouldEqual, blink.EventClosed)
				So(s.Count, ShouldEqual, 1)
			})
		})
	})

	Convey("Given invalid threshold options", t, func() {
		Convey("When close exceeds open or is non-positive", func() {
			d1 := blink.NewDetector(blink.WithThresholds(0.30, 0.20))
			d2 := blink.NewDetector(blink.WithThresholds(0, 0.25))
			start := time.Now()

			Convey("Then the defaults stay in effect", func() {
				_, ev1 := d1.Step(blink.NewState(start), 0.22, start)
				So(ev1, ShouldEqual, blink.EventNone)

				_, ev2 := d2.Step(blink.NewState(start), 0.20, start)
				So(ev2, ShouldEqual, blink.EventClosed)
			})
		})
	})
}

func TestAverageRate(t *testing.T) {
	Convey("Given a session state", t, func() {
		start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		Convey("When no time has elapsed", func() {
			s := blink.NewState(start)
			s.Count = 5

			Convey("Then the rate is zero instead of dividing by zero", func() {
				So(blink.AverageRate(s, start), ShouldEqual, 0)
			})
		})

		Convey("When the clock would run backwards", func() {
			s := blink.NewState(start)
			s.Count = 5

			Convey("Then the rate is still zero", func() {
				So(blink.AverageRate(s, start.Add(-time.Minute)), ShouldEqual, 0)
			})
		})

		Convey("When ten blinks occur over two minutes", func() {
			s := blink.NewState(start)
			s.Count = 10

			Convey("Then the lifetime rate is five per minute", func() {
				So(blink.AverageRate(s, start.Add(2*time.Minute)), ShouldAlmostEqual, 5.0, 1e-9)
			})
		})
	})
}
