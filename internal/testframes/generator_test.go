package testframes

import (
	"testing"
	"time"

	"github.com/okian/blinkwatch/internal/domain/blink"
	"github.com/okian/blinkwatch/internal/domain/ear"
	"github.com/okian/blinkwatch/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func toModelPoints(points []Point) []model.Point {
	out := make([]model.Point, len(points))
	for i, p := range points {
		out[i] = model.Point{X: p.X, Y: p.Y}
	}
	return out
}

func TestGenerateSession(t *testing.T) {
	Convey("Given a scripted session", t, func() {
		frames := generateSession("session-test", "neutral", 5, 100*time.Millisecond)

		Convey("Then every frame carries a full in-range landmark set", func() {
			So(len(frames), ShouldBeGreaterThan, 0)
			for _, f := range frames {
				So(len(f.Landmarks), ShouldEqual, ear.MinLandmarks)
				for _, p := range f.Landmarks {
					So(p.X, ShouldBeBetweenOrEqual, 0, 1)
					So(p.Y, ShouldBeBetweenOrEqual, 0, 1)
				}
			}
		})

		Convey("When the frames run through the blink detector", func() {
			d := blink.NewDetector()
			var state blink.State
			for _, f := range frames {
				ts, err := time.Parse(time.RFC3339Nano, f.TS)
				So(err, ShouldBeNil)

				avg, err := ear.Average(toModelPoints(f.Landmarks))
				So(err, ShouldBeNil)

				state, _ = d.Step(state, avg, ts)
			}

			Convey("Then exactly the scripted number of blinks is counted", func() {
				So(state.Count, ShouldEqual, 5)
				So(state.Closed, ShouldBeFalse)
			})
		})

		Convey("Then frame timestamps are strictly increasing", func() {
			var prev time.Time
			for i, f := range frames {
				ts, err := time.Parse(time.RFC3339Nano, f.TS)
				So(err, ShouldBeNil)
				if i > 0 {
					So(ts.After(prev), ShouldBeTrue)
				}
				prev = ts
			}
		})
	})
}
