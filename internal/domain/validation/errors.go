package validation

import "errors"

// Sentinel kinds for intake validation. Callers match them with errors.Is.
var (
	ErrInvalidRubric     = errors.New("invalid rubric")
	ErrInvalidEvaluation = errors.New("invalid evaluation")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrScoreOutOfRange   = errors.New("score outside rubric scale")
	ErrWeightsExceeded   = errors.New("rubric weights exceed 100 percent")
	ErrRubricMismatch    = errors.New("evaluation does not match rubric")
)
