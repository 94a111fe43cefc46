package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/hackscore/internal/loadgen"
	"github.com/okian/hackscore/pkg/logger"
)

const defaultLoadDeadline = 10 * time.Minute

func newLoadtestCmd() *cobra.Command {
	cfg := loadgen.DefaultConfig()
	var (
		deadline time.Duration
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running service with a generated challenge and verify it",
		Long: `Create a challenge with generated rubrics, submissions and judge
evaluations on a running service, post the evaluations concurrently (with a
share of deliberate replays), then check every team score and the leaderboard
against an offline recompute.

Example usage:
  hackscore loadtest                                  # local service, defaults
  hackscore loadtest --url http://localhost:8080 --teams 500 --judges 5
  hackscore loadtest --seed 42 --output out/run.yaml  # reproducible, saved snapshot`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if verbose {
				level = "debug"
			}
			if err := logger.InitWithFormat(level, "text", cmd.ErrOrStderr()); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			cfg.Verbose = verbose

			ctx, cancel := context.WithTimeout(cmd.Context(), deadline)
			defer cancel()

			stats, err := loadgen.Run(ctx, cfg)
			if stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "accepted=%d duplicate=%d failed=%d mismatches=%d duration=%s\n",
					stats.EvaluationsAccepted, stats.EvaluationsDuplicate, stats.EvaluationsFailed,
					len(stats.Mismatches), stats.Duration.Round(time.Millisecond))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the service")
	f.StringVar(&cfg.ChallengeID, "challenge", "", "Challenge id to create; generated when empty")
	f.IntVar(&cfg.Teams, "teams", cfg.Teams, "Number of teams")
	f.IntVar(&cfg.Judges, "judges", cfg.Judges, "Judges per rubric")
	f.IntVar(&cfg.Rubrics, "rubrics", cfg.Rubrics, "Number of rubrics")
	f.Float64Var(&cfg.Replays, "replays", cfg.Replays, "Fraction of evaluations posted twice")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent HTTP workers")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "Maximum wait for processing")
	f.StringVar(&cfg.Combiner, "combiner", "", "Judge combiner the server is configured with")
	f.Uint64Var(&cfg.Seed, "seed", 0, "Generator seed; random when 0")
	f.StringVar(&cfg.OutputFile, "output", "", "Write the generated challenge as a YAML snapshot")
	f.DurationVar(&deadline, "deadline", defaultLoadDeadline, "Overall run deadline")
	f.BoolVarP(&verbose, "verbose", "v", false, "Log every rejected request")
	return cmd
}
