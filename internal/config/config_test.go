package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackscore/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 100)
			convey.So(cfg.JudgeCombiner, convey.ShouldEqual, "mean")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.QueryTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = "" },
			"unknown log level":    func(c *config.Config) { c.LogLevel = "chatty" },
			"unknown log format":   func(c *config.Config) { c.LogFormat = "xml" },
			"zero queue":           func(c *config.Config) { c.QueueSize = 0 },
			"zero workers":         func(c *config.Config) { c.WorkerCount = 0 },
			"negative dedupe":      func(c *config.Config) { c.DedupeSize = -1 },
			"zero leaderboard cap": func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"unknown combiner":     func(c *config.Config) { c.JudgeCombiner = "mode" },
			"negative rps":         func(c *config.Config) { c.RateLimitRPS = -1 },
			"rps without burst":    func(c *config.Config) { c.RateLimitRPS = 10; c.RateLimitBurst = 0 },
			"unknown store":        func(c *config.Config) { c.StoreDriver = "sqlite" },
			"postgres without dsn": func(c *config.Config) { c.StoreDriver = config.StorePostgres },
			"zero query timeout":   func(c *config.Config) { c.QueryTimeoutMS = 0 },
			"negative ttl":         func(c *config.Config) { c.CacheTTLSeconds = -1 },
			"negative redis db":    func(c *config.Config) { c.RedisDB = -2 },
		}

		convey.Convey("Then each is rejected as invalid config", func() {
			for _, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})

		convey.Convey("And a postgres store with a dsn is accepted", func() {
			cfg := config.New()
			cfg.StoreDriver = config.StorePostgres
			cfg.PostgresDSN = "postgres://localhost/hackscore?sslmode=disable"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
