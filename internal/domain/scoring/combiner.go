package scoring

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/hackscore/internal/domain/model"
)

// Combiner reduces several judges' evaluations of one rubric for one team to
// a single raw score. It is only called with a non-empty slice.
type Combiner func(evals []model.Evaluation) float64

// Combiner names accepted by ParseCombiner.
const (
	CombinerMean   = "mean"
	CombinerMedian = "median"
	CombinerMax    = "max"
	CombinerLatest = "latest"
)

// Mean is the arithmetic mean of the judges' scores. Scores are summed in
// ascending order so the result does not depend on arrival order.
func Mean(evals []model.Evaluation) float64 {
	var sum float64
	for _, v := range sortedScores(evals) {
		sum += v
	}
	return sum / float64(len(evals))
}

// Median is the middle score, or the mean of the two middle scores.
func Median(evals []model.Evaluation) float64 {
	scores := sortedScores(evals)
	mid := len(scores) / 2
	if len(scores)%2 == 1 {
		return scores[mid]
	}
	return (scores[mid-1] + scores[mid]) / 2
}

func sortedScores(evals []model.Evaluation) []float64 {
	scores := make([]float64, len(evals))
	for i, e := range evals {
		scores[i] = e.Score
	}
	slices.Sort(scores)
	return scores
}

// Max is the highest judge score.
func Max(evals []model.Evaluation) float64 {
	best := evals[0].Score
	for _, e := range evals[1:] {
		if e.Score > best {
			best = e.Score
		}
	}
	return best
}

// Latest is the most recently created evaluation's score. Equal timestamps
// resolve to the greater evaluation id so the result does not depend on order.
func Latest(evals []model.Evaluation) float64 {
	last := evals[0]
	for _, e := range evals[1:] {
		switch c := e.CreatedAt.Compare(last.CreatedAt); {
		case c > 0, c == 0 && e.ID > last.ID:
			last = e
		}
	}
	return last.Score
}

// ParseCombiner resolves a combiner by name. Empty selects the mean.
func ParseCombiner(name string) (Combiner, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CombinerMean:
		return Mean, nil
	case CombinerMedian:
		return Median, nil
	case CombinerMax:
		return Max, nil
	case CombinerLatest:
		return Latest, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCombiner, name)
	}
}
