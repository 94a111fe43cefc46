package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/internal/snapshot"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
)

type scoreOptions struct {
	file      string
	challenge string
	combiner  string
	format    string
	all       bool
}

// challengeBoard is one challenge's ranked result in JSON output.
type challengeBoard struct {
	ChallengeID string              `json:"challengeId"`
	Leaderboard []boardRow          `json:"leaderboard"`
	TeamScores  []scoring.TeamScore `json:"teamScores,omitempty"`
}

type boardRow struct {
	Position     int                    `json:"position"`
	TeamID       string                 `json:"teamId"`
	SubmissionID string                 `json:"submissionId"`
	Status       model.SubmissionStatus `json:"status"`
	FinalScore   float64                `json:"puntajeFinal"`
}

func newScoreCmd() *cobra.Command {
	opts := &scoreOptions{}
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Rank a YAML snapshot offline",
		Long: `Compute team scores and leaderboards from a YAML snapshot of rubrics,
submissions and evaluations, without a running service.

Example usage:
  hackscore score --file snapshot.yaml                   # every challenge, table
  hackscore score --file snapshot.yaml --challenge c1    # one challenge
  hackscore score --file snapshot.yaml --combiner median # median of judges
  hackscore score --file snapshot.yaml --all --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScore(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Path to the YAML snapshot")
	cmd.Flags().StringVar(&opts.challenge, "challenge", "", "Challenge to rank; all when empty")
	cmd.Flags().StringVar(&opts.combiner, "combiner", scoring.CombinerMean, "Judge combiner: mean, median, max, latest")
	cmd.Flags().StringVar(&opts.format, "format", formatTable, "Output format: table, json")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Rank every submission, not only EVALUATED ones")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runScore(w io.Writer, opts *scoreOptions) error {
	if opts.format != formatTable && opts.format != formatJSON {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	combine, err := scoring.ParseCombiner(opts.combiner)
	if err != nil {
		return err
	}
	snap, err := snapshot.Load(opts.file)
	if err != nil {
		return err
	}

	challenges := snap.Challenges()
	if opts.challenge != "" {
		challenges = []string{opts.challenge}
	}

	agg := scoring.NewAggregator(scoring.WithCombiner(combine))
	boards := make([]challengeBoard, 0, len(challenges))
	for _, id := range challenges {
		rubrics, subs, evals := snap.Challenge(id)
		if len(rubrics) == 0 {
			return fmt.Errorf("challenge %q has no rubrics in %s", id, opts.file)
		}
		if !opts.all {
			subs = scoring.PublicSubmissions(subs)
		}
		entries := agg.BuildLeaderboard(id, subs, rubrics, model.EvaluationsByTeam(evals))

		board := challengeBoard{ChallengeID: id, Leaderboard: make([]boardRow, 0, len(entries))}
		for _, e := range entries {
			board.Leaderboard = append(board.Leaderboard, boardRow{
				Position:     e.Position,
				TeamID:       e.TeamID,
				SubmissionID: e.Submission.ID,
				Status:       e.Submission.Status,
				FinalScore:   e.FinalScore,
			})
			board.TeamScores = append(board.TeamScores, e.Score)
		}
		boards = append(boards, board)
	}

	if opts.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(boards)
	}
	return writeTable(w, boards)
}

func writeTable(w io.Writer, boards []challengeBoard) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, b := range boards {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "Challenge %s\n", b.ChallengeID)
		fmt.Fprintln(tw, "POS\tTEAM\tSUBMISSION\tSTATUS\tSCORE")
		for _, r := range b.Leaderboard {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n", r.Position, r.TeamID, r.SubmissionID, r.Status, r.FinalScore)
		}
	}
	return tw.Flush()
}
