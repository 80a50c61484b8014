package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/blinkwatch/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSnapshot_WireShape(t *testing.T) {
	Convey("Given a session snapshot", t, func() {
		snap := types.Snapshot{
			SessionID:   "sess-1",
			BlinkCount:  7,
			AverageRate: 14.2,
			CurrentRate: 3,
			Blinking:    true,
			Detected:    true,
			EAR:         0.18,
			Redness:     22.5,
			FramesSeen:  120,
			StartedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}

		Convey("When rendered as JSON", func() {
			data, err := json.Marshal(snap)
			So(err, ShouldBeNil)

			var wire map[string]interface{}
			So(json.Unmarshal(data, &wire), ShouldBeNil)

			Convey("Then the dashboard field names are stable", func() {
				So(wire["session_id"], ShouldEqual, "sess-1")
				So(wire["blink_count"], ShouldEqual, 7)
				So(wire["average_rate"], ShouldEqual, 14.2)
				So(wire["current_rate"], ShouldEqual, 3)
				So(wire["blinking"], ShouldEqual, true)
				So(wire["redness_pct"], ShouldEqual, 22.5)
			})

			Convey("And an absent emotion is omitted", func() {
				_, present := wire["emotion"]
				So(present, ShouldBeFalse)
			})
		})
	})
}
