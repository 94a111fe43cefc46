package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/pkg/logger"
)

func sampleEntries() []scoring.LeaderboardEntry {
	return []scoring.LeaderboardEntry{
		{
			Submission: model.Submission{ID: "s1", TeamID: "t1", ChallengeID: "c1", Status: model.StatusEvaluated},
			TeamID:     "t1",
			FinalScore: 82,
			Position:   1,
			Score:      scoring.TeamScore{TeamID: "t1", TotalScore: 82},
		},
		{
			Submission: model.Submission{ID: "s2", TeamID: "t2", ChallengeID: "c1", Status: model.StatusEvaluated},
			TeamID:     "t2",
			FinalScore: 40,
			Position:   2,
		},
	}
}

func TestMemoryCache(t *testing.T) {
	Convey("Given an in-process leaderboard cache", t, func() {
		ctx := context.Background()
		c := NewMemory(WithTTL(time.Minute))
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		c.now = func() time.Time { return now }

		Convey("When nothing is cached", func() {
			_, err := c.Get(ctx, "c1")
			So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
		})

		Convey("When a leaderboard is stored", func() {
			So(c.Set(ctx, "c1", sampleEntries()), ShouldBeNil)

			Convey("Then it is returned without the rubric breakdown", func() {
				got, err := c.Get(ctx, "c1")
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].FinalScore, ShouldEqual, 82)
				So(got[0].Position, ShouldEqual, 1)
				So(got[0].Score.Details, ShouldBeNil)
			})

			Convey("Then it expires after the ttl", func() {
				now = now.Add(time.Minute)
				_, err := c.Get(ctx, "c1")
				So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
			})

			Convey("Then invalidation drops it", func() {
				So(c.Invalidate(ctx, "c1"), ShouldBeNil)
				_, err := c.Get(ctx, "c1")
				So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
			})

			Convey("Then other challenges are unaffected", func() {
				_, err := c.Get(ctx, "c2")
				So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
			})
		})
	})
}

func TestRedisCache(t *testing.T) {
	_ = logger.Init()

	Convey("Given a redis-backed leaderboard cache", t, func() {
		ctx := context.Background()
		client, mock := redismock.NewClientMock()
		c := NewRedis(client, WithTTL(10*time.Second), WithKeyPrefix("test:"), WithBreaker(2, time.Minute))
		key := "test:leaderboard:c1"

		Convey("When the key is missing", func() {
			mock.ExpectGet(key).RedisNil()
			_, err := c.Get(ctx, "c1")

			Convey("Then it reports a miss", func() {
				So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When the key holds a leaderboard", func() {
			raw, _ := json.Marshal(sampleEntries())
			mock.ExpectGet(key).SetVal(string(raw))
			got, err := c.Get(ctx, "c1")

			Convey("Then it is decoded", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[1].TeamID, ShouldEqual, "t2")
				So(got[1].Submission.ID, ShouldEqual, "s2")
			})
		})

		Convey("When the key holds garbage", func() {
			mock.ExpectGet(key).SetVal("{not json")
			_, err := c.Get(ctx, "c1")
			So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
		})

		Convey("When a leaderboard is stored and invalidated", func() {
			raw, _ := json.Marshal(sampleEntries())
			mock.ExpectSet(key, raw, 10*time.Second).SetVal("OK")
			mock.ExpectDel(key).SetVal(1)

			So(c.Set(ctx, "c1", sampleEntries()), ShouldBeNil)
			So(c.Invalidate(ctx, "c1"), ShouldBeNil)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})

		Convey("When redis keeps failing", func() {
			mock.ExpectGet(key).SetErr(errors.New("connection refused"))
			mock.ExpectGet(key).SetErr(errors.New("connection refused"))

			_, err1 := c.Get(ctx, "c1")
			_, err2 := c.Get(ctx, "c1")
			_, err3 := c.Get(ctx, "c1")

			Convey("Then errors are unavailability and the breaker opens", func() {
				So(errors.Is(err1, ErrCacheUnavailable), ShouldBeTrue)
				So(errors.Is(err2, ErrCacheUnavailable), ShouldBeTrue)
				So(errors.Is(err3, ErrCacheUnavailable), ShouldBeTrue)
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Convey("When misses are frequent", func() {
			for i := 0; i < 3; i++ {
				mock.ExpectGet(key).RedisNil()
			}
			for i := 0; i < 3; i++ {
				_, err := c.Get(ctx, "c1")
				So(errors.Is(err, ErrCacheMiss), ShouldBeTrue)
			}

			Convey("Then the breaker stays closed", func() {
				So(mock.ExpectationsWereMet(), ShouldBeNil)
			})
		})

		Reset(func() {
			_ = c.Close()
		})
	})
}
