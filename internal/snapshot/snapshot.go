// Package snapshot reads and writes a challenge's scoring inputs as YAML so
// leaderboards can be recomputed offline.
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/okian/hackscore/internal/domain/model"
)

// ErrEmpty is returned when a snapshot holds no rubrics.
var ErrEmpty = errors.New("snapshot has no rubrics")

const filePermission = 0o600

// Snapshot is every input the aggregator needs, for one or more challenges.
type Snapshot struct {
	Rubrics     []model.Rubric     `yaml:"rubrics"`
	Submissions []model.Submission `yaml:"submissions"`
	Evaluations []model.Evaluation `yaml:"evaluations"`
}

// Decode reads a YAML snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(s.Rubrics) == 0 {
		return nil, ErrEmpty
	}
	return &s, nil
}

// Load reads the snapshot stored at path.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Decode(f)
}

// Save writes s to path, creating parent directories as needed.
func (s *Snapshot) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, out, filePermission); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Challenges lists the distinct challenge ids in rubric order.
func (s *Snapshot) Challenges() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Rubrics {
		if !seen[r.ChallengeID] {
			seen[r.ChallengeID] = true
			out = append(out, r.ChallengeID)
		}
	}
	return out
}

// Challenge returns the inputs that belong to challengeID. Evaluations are
// kept when their rubric belongs to the challenge.
func (s *Snapshot) Challenge(challengeID string) ([]model.Rubric, []model.Submission, []model.Evaluation) {
	var rubrics []model.Rubric
	ids := make(map[string]bool)
	for _, r := range s.Rubrics {
		if r.ChallengeID == challengeID {
			rubrics = append(rubrics, r)
			ids[r.ID] = true
		}
	}
	var subs []model.Submission
	for _, sub := range s.Submissions {
		if sub.ChallengeID == challengeID {
			subs = append(subs, sub)
		}
	}
	var evals []model.Evaluation
	for _, e := range s.Evaluations {
		if ids[e.RubricID] {
			evals = append(evals, e)
		}
	}
	return rubrics, subs, evals
}
