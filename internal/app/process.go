package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/logger"
	"github.com/okian/hackscore/pkg/metrics"
)

// Process stores one queued evaluation and refreshes the team's final score.
// It is called by the worker pool.
func (s *Service) Process(ctx context.Context, e model.Evaluation) error {
	r, err := s.store.Rubric(ctx, e.RubricID)
	if err != nil {
		return fmt.Errorf("resolve rubric: %w", err)
	}

	lock := s.teamLock(r.ChallengeID, e.TeamID)
	lock.Lock()
	defer lock.Unlock()

	added, err := s.store.AddEvaluation(ctx, e)
	if err != nil {
		return fmt.Errorf("store evaluation: %w", err)
	}
	if !added {
		// Already applied, e.g. redelivered after the deduper forgot it.
		metrics.RecordEvaluationDuplicate()
		return nil
	}
	return s.refreshTeamLocked(ctx, r.ChallengeID, e.TeamID)
}

// refreshTeam recomputes and stores one team's final score.
func (s *Service) refreshTeam(ctx context.Context, challengeID, teamID string) error {
	lock := s.teamLock(challengeID, teamID)
	lock.Lock()
	defer lock.Unlock()
	return s.refreshTeamLocked(ctx, challengeID, teamID)
}

func (s *Service) refreshTeamLocked(ctx context.Context, challengeID, teamID string) error {
	ts, err := s.TeamScore(ctx, challengeID, teamID)
	if err != nil {
		return err
	}
	if _, err := s.store.SetFinalScore(ctx, challengeID, teamID, ts.TotalScore); err != nil {
		return fmt.Errorf("store final score: %w", err)
	}
	s.invalidate(ctx, challengeID)
	return nil
}

// refreshChallenge recomputes the final score of every team with a
// submission in challengeID. Failures are logged.
func (s *Service) refreshChallenge(ctx context.Context, challengeID string) {
	ctx, span := s.tracer.Start(ctx, "service.RefreshChallenge",
		trace.WithAttributes(attribute.String("challenge.id", challengeID)))
	defer span.End()

	start := time.Now()
	subs, err := s.store.Submissions(ctx, challengeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(ctx, "failed to list submissions for refresh",
			logger.String("challengeID", challengeID), logger.Error(err))
		return
	}

	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		if _, ok := seen[sub.TeamID]; ok {
			continue
		}
		seen[sub.TeamID] = struct{}{}
		if err := s.refreshTeam(ctx, challengeID, sub.TeamID); err != nil {
			s.logger.Error(ctx, "failed to refresh team score",
				logger.String("challengeID", challengeID),
				logger.String("teamID", sub.TeamID),
				logger.Error(err))
		}
	}
	s.invalidate(ctx, challengeID)
	span.SetAttributes(attribute.Int("teams", len(seen)))
	s.logger.Debug(ctx, "challenge scores refreshed",
		logger.String("challengeID", challengeID),
		logger.Int("teams", len(seen)),
		logger.Duration("took", time.Since(start)))
}

// invalidate drops the cached leaderboard. A cache failure is logged only.
func (s *Service) invalidate(ctx context.Context, challengeID string) {
	s.bumpGeneration(challengeID)
	if err := s.cache.Invalidate(ctx, challengeID); err != nil {
		metrics.RecordCacheResult(metrics.CacheError)
		s.logger.Warn(ctx, "failed to invalidate cached leaderboard",
			logger.String("challengeID", challengeID), logger.Error(err))
	}
}
