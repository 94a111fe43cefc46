package validation_test

import (
	"errors"
	"testing"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func validRubric() model.Rubric {
	return model.Rubric{ID: "r1", ChallengeID: "ch-1", Name: "Innovation", ScaleMin: 0, ScaleMax: 10, Percentage: 40}
}

func TestRubric(t *testing.T) {
	Convey("Given a rubric", t, func() {
		r := validRubric()

		Convey("When all fields are valid", func() {
			So(validation.Rubric(r), ShouldBeNil)
		})

		Convey("When the scale is inverted", func() {
			r.ScaleMin, r.ScaleMax = 10, 1
			err := validation.Rubric(r)
			So(errors.Is(err, validation.ErrInvalidRubric), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "ScaleMax")
		})

		Convey("When the scale has zero width", func() {
			r.ScaleMin, r.ScaleMax = 5, 5
			So(errors.Is(validation.Rubric(r), validation.ErrInvalidRubric), ShouldBeTrue)
		})

		Convey("When the minimum is negative", func() {
			r.ScaleMin = -1
			So(errors.Is(validation.Rubric(r), validation.ErrInvalidRubric), ShouldBeTrue)
		})

		Convey("When the percentage is above 100", func() {
			r.Percentage = 120
			So(errors.Is(validation.Rubric(r), validation.ErrInvalidRubric), ShouldBeTrue)
		})

		Convey("When the name is missing", func() {
			r.Name = ""
			err := validation.Rubric(r)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Name failed required")
		})
	})
}

func TestRubricSet(t *testing.T) {
	Convey("Given a challenge with rubrics weighted 50 and 30", t, func() {
		existing := []model.Rubric{
			{ID: "a", ChallengeID: "ch-1", Name: "A", ScaleMax: 10, Percentage: 50},
			{ID: "b", ChallengeID: "ch-1", Name: "B", ScaleMax: 10, Percentage: 30},
			{ID: "z", ChallengeID: "ch-2", Name: "Z", ScaleMax: 10, Percentage: 90},
		}

		Convey("When a 20% rubric is added", func() {
			c := validRubric()
			c.ID, c.Percentage = "c", 20
			So(validation.RubricSet(existing, c), ShouldBeNil)
		})

		Convey("When a 21% rubric is added", func() {
			c := validRubric()
			c.ID, c.Percentage = "c", 21
			So(errors.Is(validation.RubricSet(existing, c), validation.ErrWeightsExceeded), ShouldBeTrue)
		})

		Convey("When an existing rubric is re-weighted", func() {
			c := validRubric()
			c.ID, c.Percentage = "a", 70
			So(validation.RubricSet(existing, c), ShouldBeNil)
		})

		Convey("When thirds are summed", func() {
			thirds := []model.Rubric{
				{ID: "x", ChallengeID: "ch-3", Percentage: 33.3},
				{ID: "y", ChallengeID: "ch-3", Percentage: 33.3},
			}
			c := model.Rubric{ID: "w", ChallengeID: "ch-3", Name: "W", ScaleMax: 1, Percentage: 33.4}
			So(validation.RubricSet(thirds, c), ShouldBeNil)
			So(validation.TotalPercentage(append(thirds, c)), ShouldAlmostEqual, 100, 1e-9)
		})
	})
}

func TestSubmission(t *testing.T) {
	Convey("Given a submission", t, func() {
		s := model.Submission{ID: "s1", TeamID: "t1", ChallengeID: "ch-1", Status: model.StatusSubmitted}

		Convey("When it is valid", func() {
			So(validation.Submission(s), ShouldBeNil)
		})

		Convey("When the status is unknown", func() {
			s.Status = "WITHDRAWN"
			err := validation.Submission(s)
			So(errors.Is(err, validation.ErrInvalidSubmission), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Status")
		})

		Convey("When the team is missing", func() {
			s.TeamID = ""
			So(errors.Is(validation.Submission(s), validation.ErrInvalidSubmission), ShouldBeTrue)
		})
	})
}

func TestEvaluation(t *testing.T) {
	Convey("Given an evaluation for a 0..10 rubric", t, func() {
		r := validRubric()
		e := model.Evaluation{RubricID: "r1", TeamID: "t1", JudgeID: "j1", Score: 7}

		Convey("When it is valid", func() {
			So(validation.Evaluation(e, r), ShouldBeNil)
		})

		Convey("When the score sits on the scale bounds", func() {
			e.Score = 0
			So(validation.Evaluation(e, r), ShouldBeNil)
			e.Score = 10
			So(validation.Evaluation(e, r), ShouldBeNil)
		})

		Convey("When the score is above the scale", func() {
			e.Score = 10.5
			So(errors.Is(validation.Evaluation(e, r), validation.ErrScoreOutOfRange), ShouldBeTrue)
		})

		Convey("When it names another rubric", func() {
			e.RubricID = "r2"
			So(errors.Is(validation.Evaluation(e, r), validation.ErrRubricMismatch), ShouldBeTrue)
		})

		Convey("When the judge is missing", func() {
			e.JudgeID = ""
			So(errors.Is(validation.Evaluation(e, r), validation.ErrInvalidEvaluation), ShouldBeTrue)
		})
	})
}
