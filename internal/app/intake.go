package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/hackscore/internal/adapters/repository"
	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/validation"
	"github.com/okian/hackscore/pkg/logger"
	"github.com/okian/hackscore/pkg/metrics"
)

// Receipt acknowledges an evaluation submitted for processing.
type Receipt struct {
	EvaluationID string `json:"evaluationId"`
	// Duplicate is true when the id was already accepted; nothing was queued.
	Duplicate bool `json:"duplicate"`
}

// UpsertRubric validates r, checks the challenge's total weight and stores it.
// Existing team scores of the affected challenges are refreshed.
func (s *Service) UpsertRubric(ctx context.Context, r model.Rubric) (model.Rubric, error) {
	if err := validation.Rubric(r); err != nil {
		return model.Rubric{}, err
	}
	prev, moved, err := s.storeRubric(ctx, r)
	if err != nil {
		return model.Rubric{}, err
	}
	s.logger.Info(ctx, "rubric stored",
		logger.String("rubricID", r.ID),
		logger.String("challengeID", r.ChallengeID),
		logger.Float64("percentage", r.Percentage))

	s.refreshChallenge(ctx, r.ChallengeID)
	if moved {
		s.refreshChallenge(ctx, prev.ChallengeID)
	}
	return r, nil
}

// storeRubric writes r under its challenge lock, with the weight cap checked
// by the store in the same step. It reports the previous version and whether
// r moved from another challenge.
func (s *Service) storeRubric(ctx context.Context, r model.Rubric) (model.Rubric, bool, error) {
	mu := s.challengeLock(r.ChallengeID)
	mu.Lock()
	defer mu.Unlock()

	prev, err := s.store.Rubric(ctx, r.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return model.Rubric{}, false, fmt.Errorf("load rubric: %w", err)
	}
	moved := err == nil && prev.ChallengeID != r.ChallengeID

	check := func(existing []model.Rubric) error { return validation.RubricSet(existing, r) }
	if err := s.store.PutRubric(ctx, r, check); err != nil {
		return model.Rubric{}, false, fmt.Errorf("store rubric: %w", err)
	}
	return prev, moved, nil
}

// UpsertSubmission stores sub, filling in a missing id and creation time,
// and refreshes the team's final score.
func (s *Service) UpsertSubmission(ctx context.Context, sub model.Submission) (model.Submission, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now().UTC()
	}
	if sub.Status == "" {
		sub.Status = model.StatusDraft
	}
	if err := validation.Submission(sub); err != nil {
		return model.Submission{}, err
	}
	// The final score is derived; clients cannot set it.
	sub.FinalScore = nil

	if err := s.store.PutSubmission(ctx, sub); err != nil {
		return model.Submission{}, fmt.Errorf("store submission: %w", err)
	}
	s.logger.Info(ctx, "submission stored",
		logger.String("submissionID", sub.ID),
		logger.String("teamID", sub.TeamID),
		logger.String("status", string(sub.Status)))

	if err := s.refreshTeam(ctx, sub.ChallengeID, sub.TeamID); err != nil {
		return model.Submission{}, err
	}
	return s.Submission(ctx, sub.ID)
}

// SubmitEvaluation validates e against its rubric and queues it. An id is
// generated when absent. Resubmitting an accepted id is reported as a
// duplicate and not queued again.
func (s *Service) SubmitEvaluation(ctx context.Context, e model.Evaluation) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return Receipt{}, ErrNotStarted
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	r, err := s.store.Rubric(ctx, e.RubricID)
	if err != nil {
		return Receipt{}, err
	}
	if err := validation.Evaluation(e, r); err != nil {
		return Receipt{}, err
	}

	if s.deduper.SeenAndRecord(ctx, e.ID) {
		metrics.RecordEvaluationDuplicate()
		s.logger.Debug(ctx, "duplicate evaluation detected, skipping", logger.String("evaluationID", e.ID))
		return Receipt{EvaluationID: e.ID, Duplicate: true}, nil
	}

	if err := s.queue.Enqueue(ctx, e); err != nil {
		// Let the client retry the same id.
		s.deduper.Unrecord(ctx, e.ID)
		return Receipt{}, err
	}
	metrics.RecordEvaluationReceived()
	s.logger.Debug(ctx, "evaluation queued",
		logger.String("evaluationID", e.ID),
		logger.String("rubricID", e.RubricID),
		logger.String("teamID", e.TeamID),
		logger.Float64("score", e.Score))
	return Receipt{EvaluationID: e.ID}, nil
}
