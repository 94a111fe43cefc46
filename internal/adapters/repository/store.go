// Package repository defines the scoring store interface and its in-memory
// implementation.
package repository

import (
	"context"

	"github.com/okian/hackscore/internal/domain/model"
)

// Counts summarizes how many records a store holds.
type Counts struct {
	Rubrics     int `json:"rubrics" db:"rubrics"`
	Submissions int `json:"submissions" db:"submissions"`
	Evaluations int `json:"evaluations" db:"evaluations"`
}

// RubricCheck vets a rubric against the current rubrics of its challenge
// before it is written. Returning an error aborts the write.
type RubricCheck func(existing []model.Rubric) error

// Store provides read/write access to rubrics, submissions and evaluations.
type Store interface {
	// PutRubric inserts or replaces a rubric by id. A non-nil check runs
	// atomically with the write, against r's challenge.
	PutRubric(ctx context.Context, r model.Rubric, check RubricCheck) error
	// Rubric returns ErrNotFound if id is unknown.
	Rubric(ctx context.Context, id string) (model.Rubric, error)
	// Rubrics lists a challenge's rubrics ordered by id.
	Rubrics(ctx context.Context, challengeID string) ([]model.Rubric, error)

	// PutSubmission inserts or replaces a submission by id.
	PutSubmission(ctx context.Context, s model.Submission) error
	// Submission returns ErrNotFound if id is unknown.
	Submission(ctx context.Context, id string) (model.Submission, error)
	// Submissions lists a challenge's submissions ordered by creation time then id.
	Submissions(ctx context.Context, challengeID string) ([]model.Submission, error)
	// SetFinalScore stores score on every submission of teamID in challengeID
	// and returns how many were updated.
	SetFinalScore(ctx context.Context, challengeID, teamID string, score float64) (int, error)

	// AddEvaluation stores e. It returns false without error if an evaluation
	// with the same id already exists, and ErrNotFound if its rubric is unknown.
	AddEvaluation(ctx context.Context, e model.Evaluation) (bool, error)
	// Evaluations lists every evaluation against a challenge's rubrics.
	Evaluations(ctx context.Context, challengeID string) ([]model.Evaluation, error)
	// TeamEvaluations lists one team's evaluations within a challenge.
	TeamEvaluations(ctx context.Context, challengeID, teamID string) ([]model.Evaluation, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (Counts, error)

	Close() error
}
