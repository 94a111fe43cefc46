package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/hackscore/internal/adapters/cache"
	"github.com/okian/hackscore/internal/adapters/repository"
	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/pkg/logger"
	"github.com/okian/hackscore/pkg/metrics"
)

// TeamScore computes a team's weighted score from the stored evaluations.
func (s *Service) TeamScore(ctx context.Context, challengeID, teamID string) (scoring.TeamScore, error) {
	ctx, span := s.tracer.Start(ctx, "service.TeamScore", trace.WithAttributes(
		attribute.String("challenge.id", challengeID),
		attribute.String("team.id", teamID),
	))
	defer span.End()

	rubrics, err := s.store.Rubrics(ctx, challengeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return scoring.TeamScore{}, fmt.Errorf("load rubrics: %w", err)
	}
	evals, err := s.store.TeamEvaluations(ctx, challengeID, teamID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return scoring.TeamScore{}, fmt.Errorf("load evaluations: %w", err)
	}

	start := time.Now()
	ts := s.aggregator.ComputeTeamScore(teamID, challengeID, rubrics, evals)
	metrics.RecordScoreComputeLatency(float64(time.Since(start).Microseconds()) / 1000)

	span.SetAttributes(attribute.Float64("score.total", ts.TotalScore), attribute.Int("evaluations", len(evals)))
	return ts, nil
}

// Leaderboard returns the ranked EVALUATED submissions of challengeID.
// limit 0 means the configured maximum; larger values are capped to it.
func (s *Service) Leaderboard(ctx context.Context, challengeID string, limit int) ([]scoring.LeaderboardEntry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: %d", repository.ErrInvalidLimit, limit)
	}
	if limit == 0 || limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}

	ctx, span := s.tracer.Start(ctx, "service.Leaderboard", trace.WithAttributes(
		attribute.String("challenge.id", challengeID),
		attribute.Int("limit", limit),
	))
	defer span.End()

	entries, err := s.cache.Get(ctx, challengeID)
	switch {
	case err == nil:
		metrics.RecordCacheResult(metrics.CacheHit)
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return truncate(entries, limit), nil
	case errors.Is(err, cache.ErrCacheMiss):
		metrics.RecordCacheResult(metrics.CacheMiss)
	default:
		metrics.RecordCacheResult(metrics.CacheError)
		s.logger.Warn(ctx, "leaderboard cache read failed", logger.String("challengeID", challengeID), logger.Error(err))
	}

	gen := s.generation(challengeID)
	entries, err = s.buildLeaderboard(ctx, challengeID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.cacheIfCurrent(ctx, challengeID, gen, entries); err != nil {
		metrics.RecordCacheResult(metrics.CacheError)
		s.logger.Warn(ctx, "leaderboard cache write failed", logger.String("challengeID", challengeID), logger.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false), attribute.Int("entries", len(entries)))
	return truncate(entries, limit), nil
}

func (s *Service) buildLeaderboard(ctx context.Context, challengeID string) ([]scoring.LeaderboardEntry, error) {
	rubrics, err := s.store.Rubrics(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("load rubrics: %w", err)
	}
	subs, err := s.store.Submissions(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	evals, err := s.store.Evaluations(ctx, challengeID)
	if err != nil {
		return nil, fmt.Errorf("load evaluations: %w", err)
	}

	start := time.Now()
	entries := s.aggregator.BuildLeaderboard(challengeID, scoring.PublicSubmissions(subs), rubrics, model.EvaluationsByTeam(evals))
	metrics.RecordScoreComputeLatency(float64(time.Since(start).Microseconds()) / 1000)
	metrics.RecordLeaderboardBuild()
	return entries, nil
}

func truncate(entries []scoring.LeaderboardEntry, limit int) []scoring.LeaderboardEntry {
	if len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// Submission returns one stored submission, including its memoized final score.
func (s *Service) Submission(ctx context.Context, id string) (model.Submission, error) {
	return s.store.Submission(ctx, id)
}
