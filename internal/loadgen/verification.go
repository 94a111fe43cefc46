package loadgen

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/internal/snapshot"
)

// ErrVerification is returned when the service disagrees with the offline recompute.
var ErrVerification = errors.New("verification failed")

const scoreTolerance = 1e-6

// expectation is the offline result the service must reproduce.
type expectation struct {
	leaderboard []scoring.LeaderboardEntry
	teamScores  map[string]float64
}

func offline(snap *snapshot.Snapshot, challengeID string, combine scoring.Combiner) expectation {
	agg := scoring.NewAggregator(scoring.WithCombiner(combine))
	rubrics, subs, evals := snap.Challenge(challengeID)
	byTeam := model.EvaluationsByTeam(evals)

	scores := make(map[string]float64, len(subs))
	for _, s := range subs {
		scores[s.TeamID] = agg.ComputeTeamScore(s.TeamID, challengeID, rubrics, byTeam[s.TeamID]).TotalScore
	}
	return expectation{
		leaderboard: agg.BuildLeaderboard(challengeID, scoring.PublicSubmissions(subs), rubrics, byTeam),
		teamScores:  scores,
	}
}

// compareLeaderboard checks got against the expected prefix of the same length.
func compareLeaderboard(want []scoring.LeaderboardEntry, got []row) []string {
	var out []string
	if len(got) == 0 && len(want) > 0 {
		return []string{"empty leaderboard"}
	}
	if len(got) > len(want) {
		out = append(out, fmt.Sprintf("leaderboard has %d entries, expected at most %d", len(got), len(want)))
		got = got[:len(want)]
	}
	for i, g := range got {
		w := want[i]
		if g.TeamID != w.TeamID || g.Position != w.Position || !near(g.FinalScore, w.FinalScore) {
			out = append(out, fmt.Sprintf("position %d: got %s (%.4f, #%d), expected %s (%.4f)",
				i+1, g.TeamID, g.FinalScore, g.Position, w.TeamID, w.FinalScore))
		}
		if i > 0 && g.FinalScore > got[i-1].FinalScore+scoreTolerance {
			out = append(out, fmt.Sprintf("leaderboard not sorted at position %d", i+1))
		}
	}
	return out
}

func compareScores(want, got map[string]float64) []string {
	var out []string
	for team, w := range want {
		g, ok := got[team]
		switch {
		case !ok:
			out = append(out, fmt.Sprintf("team %s: no score retrieved", team))
		case !near(g, w):
			out = append(out, fmt.Sprintf("team %s: got %.4f, expected %.4f", team, g, w))
		}
	}
	slices.Sort(out)
	return out
}

func near(a, b float64) bool {
	return math.Abs(a-b) <= scoreTolerance
}
