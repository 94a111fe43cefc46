package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/hackscore/internal/adapters/repository"
	service "github.com/okian/hackscore/internal/app"
	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/validation"
	"github.com/okian/hackscore/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return t0 }
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should report sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["maxLeaderboardLimit"], ShouldEqual, 100)
			So(stats["rubrics"], ShouldEqual, 0)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithWorkerCount(8),
			service.WithQueueSize(500),
			service.WithDedupeSize(250),
			service.WithMaxLeaderboardLimit(10),
		)

		Convey("Then the options are applied", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 8)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 250)
			So(stats["maxLeaderboardLimit"], ShouldEqual, 10)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When it is started twice and stopped twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.GetStats()["queueLength"], ShouldEqual, 0)

			So(svc.Stop(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then it is marked as stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When an evaluation is submitted before start", func() {
			_, err := svc.SubmitEvaluation(ctx, model.Evaluation{RubricID: "r1", TeamID: "t1", JudgeID: "j1"})

			Convey("Then it is refused", func() {
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})
		})
	})
}

func TestService_UpsertRubric(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New()

		Convey("When a valid rubric is stored", func() {
			r, err := svc.UpsertRubric(ctx, model.Rubric{ID: "r1", ChallengeID: "c1", Name: "Design", ScaleMax: 10, Percentage: 40})

			Convey("Then it is returned", func() {
				So(err, ShouldBeNil)
				So(r.ID, ShouldEqual, "r1")
				So(svc.GetStats()["rubrics"], ShouldEqual, 1)
			})
		})

		Convey("When the rubric is malformed", func() {
			_, err := svc.UpsertRubric(ctx, model.Rubric{ID: "r1", ChallengeID: "c1", Name: "Flat", ScaleMin: 5, ScaleMax: 5, Percentage: 40})
			So(errors.Is(err, validation.ErrInvalidRubric), ShouldBeTrue)
		})

		Convey("When the challenge weights would exceed 100", func() {
			_, err := svc.UpsertRubric(ctx, model.Rubric{ID: "r1", ChallengeID: "c1", Name: "A", ScaleMax: 10, Percentage: 70})
			So(err, ShouldBeNil)
			_, err = svc.UpsertRubric(ctx, model.Rubric{ID: "r2", ChallengeID: "c1", Name: "B", ScaleMax: 10, Percentage: 40})

			Convey("Then the second rubric is rejected", func() {
				So(errors.Is(err, validation.ErrWeightsExceeded), ShouldBeTrue)
			})

			Convey("Then replacing the first rubric with a lower weight is allowed", func() {
				_, err := svc.UpsertRubric(ctx, model.Rubric{ID: "r1", ChallengeID: "c1", Name: "A", ScaleMax: 10, Percentage: 60})
				So(err, ShouldBeNil)
				_, err = svc.UpsertRubric(ctx, model.Rubric{ID: "r2", ChallengeID: "c1", Name: "B", ScaleMax: 10, Percentage: 40})
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestService_UpsertRubric_Concurrent(t *testing.T) {
	Convey("Given many writers racing 60% rubrics into one challenge", t, func() {
		ctx := context.Background()

		for round := 0; round < 50; round++ {
			svc := service.New()
			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				accepted int
				rejected int
			)
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func(g int) {
					defer wg.Done()
					_, err := svc.UpsertRubric(ctx, model.Rubric{
						ID: fmt.Sprintf("r%d", g), ChallengeID: "c1", Name: "R", ScaleMax: 10, Percentage: 60,
					})
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						accepted++
					} else if errors.Is(err, validation.ErrWeightsExceeded) {
						rejected++
					}
				}(g)
			}
			wg.Wait()

			So(accepted, ShouldEqual, 1)
			So(rejected, ShouldEqual, 7)
			So(svc.GetStats()["rubrics"], ShouldEqual, 1)
		}
	})
}

func TestService_UpsertSubmission(t *testing.T) {
	Convey("Given a service with one rubric", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithClock(fixedClock()))
		_, err := svc.UpsertRubric(ctx, model.Rubric{ID: "r1", ChallengeID: "c1", Name: "A", ScaleMax: 10, Percentage: 100})
		So(err, ShouldBeNil)

		Convey("When a submission has no id, time or status", func() {
			sub, err := svc.UpsertSubmission(ctx, model.Submission{TeamID: "t1", ChallengeID: "c1"})

			Convey("Then they are filled in and the score starts at zero", func() {
				So(err, ShouldBeNil)
				So(sub.ID, ShouldNotBeEmpty)
				So(sub.CreatedAt, ShouldEqual, t0)
				So(sub.Status, ShouldEqual, model.StatusDraft)
				So(sub.FinalScore, ShouldNotBeNil)
				So(*sub.FinalScore, ShouldEqual, 0)
			})
		})

		Convey("When the client sends a final score", func() {
			forged := 99.0
			sub, err := svc.UpsertSubmission(ctx, model.Submission{ID: "s1", TeamID: "t1", ChallengeID: "c1", Status: model.StatusEvaluated, FinalScore: &forged})

			Convey("Then it is replaced by the computed one", func() {
				So(err, ShouldBeNil)
				So(*sub.FinalScore, ShouldEqual, 0)
			})
		})

		Convey("When the status is unknown", func() {
			_, err := svc.UpsertSubmission(ctx, model.Submission{ID: "s1", TeamID: "t1", ChallengeID: "c1", Status: "SHIPPED"})
			So(errors.Is(err, validation.ErrInvalidSubmission), ShouldBeTrue)
		})
	})
}

func TestService_SubmitEvaluation(t *testing.T) {
	Convey("Given a started service with one rubric", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(1), service.WithClock(fixedClock()))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		_, err := svc.UpsertRubric(ctx, model.Rubric{ID: "r1", ChallengeID: "c1", Name: "A", ScaleMax: 10, Percentage: 100})
		So(err, ShouldBeNil)

		Convey("When an evaluation has no id", func() {
			rc, err := svc.SubmitEvaluation(ctx, model.Evaluation{RubricID: "r1", TeamID: "t1", JudgeID: "j1", Score: 5})

			Convey("Then one is generated", func() {
				So(err, ShouldBeNil)
				So(rc.EvaluationID, ShouldNotBeEmpty)
				So(rc.Duplicate, ShouldBeFalse)
			})
		})

		Convey("When the same id is submitted twice", func() {
			e := model.Evaluation{ID: "e1", RubricID: "r1", TeamID: "t1", JudgeID: "j1", Score: 5}
			first, err1 := svc.SubmitEvaluation(ctx, e)
			second, err2 := svc.SubmitEvaluation(ctx, e)

			Convey("Then the second is reported as a duplicate", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Duplicate, ShouldBeFalse)
				So(second.Duplicate, ShouldBeTrue)
				So(second.EvaluationID, ShouldEqual, "e1")
			})
		})

		Convey("When the rubric is unknown", func() {
			_, err := svc.SubmitEvaluation(ctx, model.Evaluation{RubricID: "ghost", TeamID: "t1", JudgeID: "j1", Score: 5})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When the score is outside the rubric scale", func() {
			_, err := svc.SubmitEvaluation(ctx, model.Evaluation{RubricID: "r1", TeamID: "t1", JudgeID: "j1", Score: 11})
			So(errors.Is(err, validation.ErrScoreOutOfRange), ShouldBeTrue)
		})

		Convey("When the judge is missing", func() {
			_, err := svc.SubmitEvaluation(ctx, model.Evaluation{RubricID: "r1", TeamID: "t1", Score: 3})
			So(errors.Is(err, validation.ErrInvalidEvaluation), ShouldBeTrue)
		})
	})
}

func TestService_Leaderboard_Limit(t *testing.T) {
	Convey("Given a service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaxLeaderboardLimit(2))

		Convey("When the limit is negative", func() {
			_, err := svc.Leaderboard(ctx, "c1", -1)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("When the challenge is empty", func() {
			entries, err := svc.Leaderboard(ctx, "c1", 0)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})
}
