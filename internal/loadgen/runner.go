package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/internal/snapshot"
	"github.com/okian/hackscore/pkg/logger"
)

// ErrInvalidConfig is returned for unusable load settings.
var ErrInvalidConfig = errors.New("invalid load config")

const (
	percentageMultiplier = 100
	progressInterval     = time.Second
)

// Run seeds a generated challenge into the service, posts every evaluation
// concurrently, waits for processing and verifies team scores and the
// leaderboard against an offline recompute. Verification failures are
// returned as ErrVerification together with the collected stats.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	combine, err := scoring.ParseCombiner(cfg.Combiner)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("challengeID", cfg.ChallengeID),
		logger.Int("teams", cfg.Teams),
		logger.Int("judges", cfg.Judges),
		logger.Int("rubrics", cfg.Rubrics),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	snap := generate(cfg, stats.StartTime.UTC().Truncate(time.Second))
	stats.EvaluationsGenerated = len(snap.Evaluations)

	if err := seed(ctx, c, cfg, snap); err != nil {
		return nil, fmt.Errorf("seeding failed: %w", err)
	}

	baseline, err := c.storedEvaluations(ctx)
	if err != nil {
		return nil, err
	}
	submit(ctx, log, c, cfg, snap.Evaluations, stats)

	if err := waitForProcessing(ctx, c, cfg, baseline+stats.EvaluationsAccepted); err != nil {
		return stats, err
	}

	want := offline(snap, cfg.ChallengeID, combine)
	deadline := time.Now().Add(cfg.Settle)
	for {
		stats.Mismatches, err = verify(ctx, c, cfg, want, stats)
		if err != nil {
			return stats, err
		}
		if len(stats.Mismatches) == 0 || time.Now().After(deadline) {
			break
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return stats, err
		}
	}

	if cfg.OutputFile != "" {
		if err := snap.Save(cfg.OutputFile); err != nil {
			log.Warn(ctx, "failed to save snapshot", logger.Error(err))
		} else {
			log.Info(ctx, "snapshot saved", logger.String("file", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)

	if len(stats.Mismatches) > 0 {
		for _, m := range stats.Mismatches {
			log.Error(ctx, "mismatch", logger.String("detail", m))
		}
		return stats, fmt.Errorf("%w: %d mismatches", ErrVerification, len(stats.Mismatches))
	}
	log.Info(ctx, "load run verified")
	return stats, nil
}

func normalize(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case cfg.Teams < 1, cfg.Judges < 1, cfg.Rubrics < 1:
		return fmt.Errorf("%w: teams, judges and rubrics must be positive", ErrInvalidConfig)
	case cfg.Replays < 0 || cfg.Replays > 1:
		return fmt.Errorf("%w: replays must be within 0..1", ErrInvalidConfig)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	if cfg.ChallengeID == "" {
		cfg.ChallengeID = "load-" + uuid.NewString()[:8]
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return nil
}

// seed stores rubrics in order, since weights are checked cumulatively, then
// the submissions concurrently.
func seed(ctx context.Context, c *client, cfg *Config, snap *snapshot.Snapshot) error {
	for _, r := range snap.Rubrics {
		if err := c.putRubric(ctx, r); err != nil {
			return err
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, s := range snap.Submissions {
		g.Go(func() error { return c.putSubmission(gctx, s) })
	}
	return g.Wait()
}

// submit posts every evaluation, then replays the first fraction of them.
// Failures are counted, not fatal.
func submit(ctx context.Context, log logger.Logger, c *client, cfg *Config, evals []model.Evaluation, stats *Stats) {
	batch := append([]model.Evaluation(nil), evals...)
	batch = append(batch, evals[:int(float64(len(evals))*cfg.Replays)]...)

	log.Info(ctx, "submitting evaluations", logger.Int("count", len(batch)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, failed atomic.Int64
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "progress",
					logger.Int("submitted", int(submitted.Load())),
					logger.Int("total", len(batch)),
					logger.Int("accepted", int(accepted.Load())),
					logger.Int("duplicate", int(duplicate.Load())),
					logger.Int("failed", int(failed.Load())))
			}
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(cfg.Workers)
	for _, e := range batch {
		g.Go(func() error {
			outcome, err := c.postEvaluation(ctx, e)
			submitted.Add(1)
			switch outcome {
			case outcomeAccepted:
				accepted.Add(1)
			case outcomeDuplicate:
				duplicate.Add(1)
			default:
				failed.Add(1)
				if cfg.Verbose {
					log.Warn(ctx, "evaluation rejected", logger.String("evaluationID", e.ID), logger.Error(err))
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(done)
	wg.Wait()

	stats.EvaluationsSubmitted = int(submitted.Load())
	stats.EvaluationsAccepted = int(accepted.Load())
	stats.EvaluationsDuplicate = int(duplicate.Load())
	stats.EvaluationsFailed = int(failed.Load())
}

// waitForProcessing polls /stats until the store holds target evaluations.
func waitForProcessing(ctx context.Context, c *client, cfg *Config, target int) error {
	deadline := time.Now().Add(cfg.Settle)
	for {
		n, err := c.storedEvaluations(ctx)
		if err != nil {
			return err
		}
		if n >= target {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d of %d evaluations processed after %s", ErrVerification, n, target, cfg.Settle)
		}
		if err := sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

// verify reads every team score and the leaderboard and compares them with want.
func verify(ctx context.Context, c *client, cfg *Config, want expectation, stats *Stats) ([]string, error) {
	got := make(map[string]float64, len(want.teamScores))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for team := range want.teamScores {
		g.Go(func() error {
			score, err := c.teamScore(gctx, cfg.ChallengeID, team)
			if err != nil {
				return err
			}
			mu.Lock()
			got[team] = score
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.ScoresRetrieved = len(got)

	rows, err := c.leaderboard(ctx, cfg.ChallengeID, cfg.Teams)
	if err != nil {
		return nil, err
	}
	stats.LeaderboardEntries = len(rows)

	return append(compareScores(want.teamScores, got), compareLeaderboard(want.leaderboard, rows)...), nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var acceptRate, perSecond float64
	if stats.EvaluationsSubmitted > 0 {
		acceptRate = float64(stats.EvaluationsAccepted) / float64(stats.EvaluationsSubmitted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.EvaluationsSubmitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("evaluationsGenerated", stats.EvaluationsGenerated),
		logger.Int("evaluationsSubmitted", stats.EvaluationsSubmitted),
		logger.Int("evaluationsAccepted", stats.EvaluationsAccepted),
		logger.Int("evaluationsDuplicate", stats.EvaluationsDuplicate),
		logger.Int("evaluationsFailed", stats.EvaluationsFailed),
		logger.Int("scoresRetrieved", stats.ScoresRetrieved),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.Duration("duration", stats.Duration),
		logger.Float64("acceptRate", acceptRate),
		logger.Float64("evaluationsPerSecond", perSecond))
}
