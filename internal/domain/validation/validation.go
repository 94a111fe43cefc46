// Package validation checks rubrics, submissions and evaluations before they
// reach the repository. The scoring package assumes everything it receives
// has passed through here.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/hackscore/internal/domain/model"
)

// maxTotalPercentage caps the sum of rubric weights within one challenge.
const maxTotalPercentage = 100

// weightEpsilon absorbs float drift when summing percentages such as 33.3.
const weightEpsilon = 1e-9

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "status", func(fl validator.FieldLevel) bool {
		return model.SubmissionStatus(fl.Field().String()).Valid()
	})
	return v
}

// mustRegister adds a custom tag and panics if the validator refuses it.
func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %q: %v", tag, err))
	}
}

// Rubric checks a single rubric's fields and scale.
func Rubric(r model.Rubric) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRubric, describe(err))
	}
	return nil
}

// RubricSet checks that candidate can join the existing rubrics of its
// challenge without pushing the weight total above 100. A rubric with the
// same id as an existing one replaces it.
func RubricSet(existing []model.Rubric, candidate model.Rubric) error {
	if err := Rubric(candidate); err != nil {
		return err
	}
	total := candidate.Percentage
	for _, r := range existing {
		if r.ID == candidate.ID || r.ChallengeID != candidate.ChallengeID {
			continue
		}
		total += r.Percentage
	}
	if total > maxTotalPercentage+weightEpsilon {
		return fmt.Errorf("%w: challenge %s would total %.2f", ErrWeightsExceeded, candidate.ChallengeID, total)
	}
	return nil
}

// TotalPercentage sums rubric weights.
func TotalPercentage(rubrics []model.Rubric) float64 {
	var total float64
	for _, r := range rubrics {
		total += r.Percentage
	}
	return total
}

// Submission checks required fields and the lifecycle status.
func Submission(s model.Submission) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSubmission, describe(err))
	}
	return nil
}

// Evaluation checks an evaluation against the rubric it scores.
func Evaluation(e model.Evaluation, r model.Rubric) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidEvaluation, describe(err))
	}
	if e.RubricID != r.ID {
		return fmt.Errorf("%w: rubric %s, evaluation names %s", ErrRubricMismatch, r.ID, e.RubricID)
	}
	if !r.Contains(e.Score) {
		return fmt.Errorf("%w: %.4g not in [%.4g, %.4g]", ErrScoreOutOfRange, e.Score, r.ScaleMin, r.ScaleMax)
	}
	return nil
}

// describe flattens validator field errors into one readable line.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
