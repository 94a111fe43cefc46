package scoring_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/hackscore/internal/domain/model"
	scoring "github.com/okian/hackscore/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCombiners(t *testing.T) {
	Convey("Given judge evaluations", t, func() {
		evals := []model.Evaluation{
			{ID: "b", Score: 3, CreatedAt: base},
			{ID: "a", Score: 8, CreatedAt: base},
			{ID: "c", Score: 5, CreatedAt: base.Add(-time.Hour)},
			{ID: "d", Score: 6, CreatedAt: base.Add(-time.Minute)},
		}

		Convey("Then Mean averages all scores", func() {
			So(scoring.Mean(evals), ShouldAlmostEqual, 5.5, tolerance)
		})

		Convey("Then Mean does not depend on evaluation order", func() {
			fwd := []model.Evaluation{{Score: 0.3}, {Score: 0.2}, {Score: 0.1}}
			rev := []model.Evaluation{{Score: 0.1}, {Score: 0.2}, {Score: 0.3}}
			So(scoring.Mean(fwd), ShouldEqual, scoring.Mean(rev))
		})

		Convey("Then Median averages the two middle scores for an even count", func() {
			So(scoring.Median(evals), ShouldAlmostEqual, 5.5, tolerance)
			So(scoring.Median(evals[:3]), ShouldAlmostEqual, 5, tolerance)
		})

		Convey("Then Median does not reorder its input", func() {
			scoring.Median(evals)
			So(evals[0].ID, ShouldEqual, "b")
		})

		Convey("Then Max picks the highest score", func() {
			So(scoring.Max(evals), ShouldEqual, 8)
		})

		Convey("Then Latest resolves equal timestamps by id", func() {
			So(scoring.Latest(evals), ShouldEqual, 3)
		})

		Convey("Then a single evaluation is returned as is by every combiner", func() {
			one := evals[2:3]
			So(scoring.Mean(one), ShouldEqual, 5)
			So(scoring.Median(one), ShouldEqual, 5)
			So(scoring.Max(one), ShouldEqual, 5)
			So(scoring.Latest(one), ShouldEqual, 5)
		})
	})
}

func TestParseCombiner(t *testing.T) {
	Convey("Given combiner names", t, func() {
		evals := []model.Evaluation{{Score: 1}, {Score: 9}}

		Convey("When the name is empty or mean", func() {
			for _, name := range []string{"", "mean", " MEAN "} {
				c, err := scoring.ParseCombiner(name)
				So(err, ShouldBeNil)
				So(c(evals), ShouldEqual, 5)
			}
		})

		Convey("When the name is max", func() {
			c, err := scoring.ParseCombiner("max")
			So(err, ShouldBeNil)
			So(c(evals), ShouldEqual, 9)
		})

		Convey("When the name is median or latest", func() {
			_, err := scoring.ParseCombiner("median")
			So(err, ShouldBeNil)
			_, err = scoring.ParseCombiner("latest")
			So(err, ShouldBeNil)
		})

		Convey("When the name is unknown", func() {
			c, err := scoring.ParseCombiner("mode")
			So(c, ShouldBeNil)
			So(errors.Is(err, scoring.ErrUnknownCombiner), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "mode")
		})
	})
}
