package config_test

import (
	"runtime"
	"testing"

	"github.com/okian/blinkwatch/internal/config"
	"github.com/okian/blinkwatch/internal/domain/blink"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.Addr, convey.ShouldEqual, ":8090")
			convey.So(cfg.FrameQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.ShardCount, convey.ShouldEqual, 8)
			convey.So(cfg.CloseThreshold, convey.ShouldEqual, blink.DefaultCloseBelow)
			convey.So(cfg.OpenThreshold, convey.ShouldEqual, blink.DefaultOpenAt)
			convey.So(cfg.WindowSeconds, convey.ShouldEqual, 60)
			convey.So(cfg.IdleTTLSeconds, convey.ShouldEqual, 300)
			convey.So(cfg.PruneIntervalSeconds, convey.ShouldEqual, 5)
		})
	})
}
