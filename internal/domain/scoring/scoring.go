// Package scoring turns a challenge's rubrics and judge evaluations into
// weighted team scores and a ranked leaderboard.
//
// Everything here is a pure function of its arguments: no I/O, no shared
// mutable state, and no errors for structurally valid input. Validation of
// scales, weights and score ranges happens at intake (see package validation).
package scoring

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/hackscore/internal/domain/model"
)

// fullScale is the upper bound of the normalized score range.
const fullScale = 100

// rankPrecision is the resolution at which totals are compared for ranking.
// Totals closer than this tie and fall through to the submission order.
const rankPrecision = 1e9

// RubricScore is the per-rubric breakdown kept for audit.
type RubricScore struct {
	RubricID        string  `json:"rubricId"`
	RubricName      string  `json:"rubricName"`
	Percentage      float64 `json:"percentage"`
	Score           float64 `json:"score"`
	NormalizedScore float64 `json:"normalizedScore"`
	WeightedScore   float64 `json:"weightedScore"`
	// Judges is the number of evaluations combined into Score.
	Judges int `json:"judges"`
}

// TeamScore is a team's weighted result for one challenge.
type TeamScore struct {
	TeamID      string        `json:"teamId"`
	ChallengeID string        `json:"challengeId"`
	TotalScore  float64       `json:"totalScore"`
	Details     []RubricScore `json:"details"`
}

// LeaderboardEntry is a ranked submission. It is derived and never persisted.
type LeaderboardEntry struct {
	Submission model.Submission `json:"submission"`
	TeamID     string           `json:"teamId"`
	FinalScore float64          `json:"puntajeFinal"`
	Position   int              `json:"position"`
	Score      TeamScore        `json:"-"`
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithCombiner sets how several judges' scores on one rubric are reduced.
func WithCombiner(c Combiner) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.combine = c
		}
	}
}

// Aggregator computes team scores and leaderboards. The zero value is not
// usable; construct with NewAggregator. An Aggregator is immutable after
// construction and safe for concurrent use.
type Aggregator struct {
	combine Combiner
}

// NewAggregator creates an aggregator. The default combiner is the arithmetic mean.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{combine: Mean}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAggregator = NewAggregator()

// ComputeTeamScore scores a team with the default (mean) aggregator.
func ComputeTeamScore(teamID, challengeID string, rubrics []model.Rubric, evals []model.Evaluation) TeamScore {
	return defaultAggregator.ComputeTeamScore(teamID, challengeID, rubrics, evals)
}

// BuildLeaderboard ranks submissions with the default (mean) aggregator.
func BuildLeaderboard(challengeID string, subs []model.Submission, rubrics []model.Rubric, evalsByTeam map[string][]model.Evaluation) []LeaderboardEntry {
	return defaultAggregator.BuildLeaderboard(challengeID, subs, rubrics, evalsByTeam)
}

// ComputeTeamScore combines every judge evaluation of teamID into one weighted
// total. A rubric without evaluations contributes 0 and still counts toward
// the denominator. Weights that sum below 100 are not rescaled.
func (a *Aggregator) ComputeTeamScore(teamID, challengeID string, rubrics []model.Rubric, evals []model.Evaluation) TeamScore {
	byRubric := make(map[string][]model.Evaluation, len(rubrics))
	for _, e := range evals {
		if e.TeamID != teamID {
			continue
		}
		byRubric[e.RubricID] = append(byRubric[e.RubricID], e)
	}

	out := TeamScore{
		TeamID:      teamID,
		ChallengeID: challengeID,
		Details:     make([]RubricScore, 0, len(rubrics)),
	}
	for _, r := range rubrics {
		matched := byRubric[r.ID]
		d := RubricScore{
			RubricID:   r.ID,
			RubricName: r.Name,
			Percentage: r.Percentage,
			Judges:     len(matched),
		}
		if len(matched) > 0 {
			d.Score = a.combine(matched)
			d.NormalizedScore = Normalize(r, d.Score)
		}
		d.WeightedScore = d.NormalizedScore * r.Percentage / fullScale
		out.TotalScore += d.WeightedScore
		out.Details = append(out.Details, d)
	}
	return out
}

// BuildLeaderboard scores every submission of challengeID and ranks them by
// total descending. Ties go to the earlier submission, then to the lower id.
// Positions are distinct and 1-based. Status filtering is the caller's job;
// see PublicSubmissions.
func (a *Aggregator) BuildLeaderboard(challengeID string, subs []model.Submission, rubrics []model.Rubric, evalsByTeam map[string][]model.Evaluation) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(subs))
	for _, s := range subs {
		if s.ChallengeID != challengeID {
			continue
		}
		ts := a.ComputeTeamScore(s.TeamID, challengeID, rubrics, evalsByTeam[s.TeamID])
		entries = append(entries, LeaderboardEntry{
			Submission: s,
			TeamID:     s.TeamID,
			FinalScore: ts.TotalScore,
			Score:      ts,
		})
	}

	slices.SortStableFunc(entries, compareEntries)
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

func compareEntries(x, y LeaderboardEntry) int {
	if c := cmp.Compare(rankKey(y.FinalScore), rankKey(x.FinalScore)); c != 0 {
		return c
	}
	if c := x.Submission.CreatedAt.Compare(y.Submission.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(x.Submission.ID, y.Submission.ID)
}

func rankKey(total float64) float64 {
	return math.Round(total * rankPrecision)
}

// Normalize maps raw onto 0..100 using the rubric's scale. A zero-width scale
// yields 100 when raw reaches the minimum and 0 otherwise.
func Normalize(r model.Rubric, raw float64) float64 {
	if r.Degenerate() {
		if raw >= r.ScaleMin {
			return fullScale
		}
		return 0
	}
	return (raw - r.ScaleMin) / r.Width() * fullScale
}

// PublicSubmissions returns the submissions allowed on the public leaderboard.
func PublicSubmissions(subs []model.Submission) []model.Submission {
	out := make([]model.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status.Public() {
			out = append(out, s)
		}
	}
	return out
}
