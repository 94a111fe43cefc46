package loadgen

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/internal/snapshot"
)

// performer is a band of the rubric scale a team's scores fall into.
type performer struct {
	min, span float64
}

// Score bands as fractions of the scale, weighted by how often they occur.
var performers = []performer{
	{0.30, 0.40}, // average, most common
	{0.30, 0.40},
	{0.70, 0.20}, // high
	{0.01, 0.29}, // low
	{0.90, 0.10}, // elite, rare
	{0.01, 0.09}, // very low, rare
	{0.60, 0.20}, // mid-high
	{0.20, 0.20}, // mid-low
	{0.00, 1.00}, // anywhere
}

// Rubric scales cycled across the generated rubrics.
var scales = [][2]float64{{0, 10}, {1, 5}, {0, 100}, {0, 20}}

const (
	judgeNoise         = 0.05
	hiddenSubmissionPc = 10 // every n-th submission stays SUBMITTED
	fullWeight         = 100
)

// generate builds a reproducible challenge: rubrics whose weights sum to 100,
// one submission per team and one evaluation per team, rubric and judge.
func generate(cfg *Config, start time.Time) *snapshot.Snapshot {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	snap := &snapshot.Snapshot{}

	per := round2(float64(fullWeight) / float64(cfg.Rubrics))
	total := 0.0
	for i := 0; i < cfg.Rubrics; i++ {
		scale := scales[i%len(scales)]
		weight := per
		if i == cfg.Rubrics-1 {
			weight = round2(fullWeight - total)
		}
		total += weight
		snap.Rubrics = append(snap.Rubrics, model.Rubric{
			ID:          fmt.Sprintf("%s-r%02d", cfg.ChallengeID, i),
			ChallengeID: cfg.ChallengeID,
			Name:        fmt.Sprintf("Criterion %d", i+1),
			ScaleMin:    scale[0],
			ScaleMax:    scale[1],
			Percentage:  weight,
		})
	}

	for t := 0; t < cfg.Teams; t++ {
		teamID := fmt.Sprintf("team-%04d", t)
		status := model.StatusEvaluated
		if t%hiddenSubmissionPc == hiddenSubmissionPc-1 {
			status = model.StatusSubmitted
		}
		snap.Submissions = append(snap.Submissions, model.Submission{
			ID:          fmt.Sprintf("%s-sub-%04d", cfg.ChallengeID, t),
			TeamID:      teamID,
			ChallengeID: cfg.ChallengeID,
			Status:      status,
			CreatedAt:   start.Add(time.Duration(t) * time.Second),
		})

		band := performers[rng.IntN(len(performers))]
		for _, r := range snap.Rubrics {
			for j := 0; j < cfg.Judges; j++ {
				frac := band.min + rng.Float64()*band.span + (rng.Float64()*2-1)*judgeNoise
				frac = math.Min(1, math.Max(0, frac))
				snap.Evaluations = append(snap.Evaluations, model.Evaluation{
					ID:        fmt.Sprintf("%s-%s-j%02d", r.ID, teamID, j),
					RubricID:  r.ID,
					TeamID:    teamID,
					JudgeID:   fmt.Sprintf("judge-%02d", j),
					Score:     round2(r.ScaleMin + frac*r.Width()),
					CreatedAt: start.Add(time.Duration(j) * time.Millisecond),
				})
			}
		}
	}
	return snap
}

// round2 rounds to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
