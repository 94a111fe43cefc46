package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/hackscore/internal/domain/model"
	"github.com/okian/hackscore/pkg/metrics"
)

// MemoryStore is a mutex-guarded, map-backed Store.
type MemoryStore struct {
	mu sync.RWMutex

	rubrics     map[string]model.Rubric
	submissions map[string]model.Submission
	evaluations map[string]model.Evaluation
	// evaluation ids per rubric, in insertion order
	byRubric map[string][]string

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store. The background metrics updater
// stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		rubrics:               make(map[string]model.Rubric),
		submissions:           make(map[string]model.Submission),
		evaluations:           make(map[string]model.Evaluation),
		byRubric:              make(map[string][]string),
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) PutRubric(_ context.Context, r model.Rubric, check RubricCheck) error {
	defer observe("put_rubric", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if check != nil {
		if err := check(s.challengeRubrics(r.ChallengeID)); err != nil {
			return err
		}
	}
	s.rubrics[r.ID] = r
	return nil
}

func (s *MemoryStore) Rubric(_ context.Context, id string) (model.Rubric, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rubrics[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Rubric{}, fmt.Errorf("rubric %q: %w", id, ErrNotFound)
	}
	return r, nil
}

func (s *MemoryStore) Rubrics(_ context.Context, challengeID string) ([]model.Rubric, error) {
	defer observe("rubrics", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.challengeRubrics(challengeID), nil
}

// challengeRubrics assumes the lock is held.
func (s *MemoryStore) challengeRubrics(challengeID string) []model.Rubric {
	out := make([]model.Rubric, 0)
	for _, r := range s.rubrics {
		if r.ChallengeID == challengeID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.Rubric) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *MemoryStore) PutSubmission(_ context.Context, sub model.Submission) error {
	defer observe("put_submission", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	// A replacement keeps the computed score unless it carries its own.
	if prev, ok := s.submissions[sub.ID]; ok && sub.FinalScore == nil {
		sub.FinalScore = prev.FinalScore
	}
	s.submissions[sub.ID] = sub
	return nil
}

func (s *MemoryStore) Submission(_ context.Context, id string) (model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Submission{}, fmt.Errorf("submission %q: %w", id, ErrNotFound)
	}
	return sub, nil
}

func (s *MemoryStore) Submissions(_ context.Context, challengeID string) ([]model.Submission, error) {
	defer observe("submissions", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Submission, 0)
	for _, sub := range s.submissions {
		if sub.ChallengeID == challengeID {
			out = append(out, sub)
		}
	}
	slices.SortFunc(out, func(a, b model.Submission) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) SetFinalScore(_ context.Context, challengeID, teamID string, score float64) (int, error) {
	defer observe("set_final_score", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sub := range s.submissions {
		if sub.ChallengeID != challengeID || sub.TeamID != teamID {
			continue
		}
		v := score
		sub.FinalScore = &v
		s.submissions[id] = sub
		n++
	}
	return n, nil
}

func (s *MemoryStore) AddEvaluation(_ context.Context, e model.Evaluation) (bool, error) {
	defer observe("add_evaluation", time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rubrics[e.RubricID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return false, fmt.Errorf("rubric %q: %w", e.RubricID, ErrNotFound)
	}
	if _, ok := s.evaluations[e.ID]; ok {
		return false, nil
	}
	s.evaluations[e.ID] = e
	s.byRubric[e.RubricID] = append(s.byRubric[e.RubricID], e.ID)
	return true, nil
}

func (s *MemoryStore) Evaluations(_ context.Context, challengeID string) ([]model.Evaluation, error) {
	defer observe("evaluations", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectEvaluations(challengeID, func(model.Evaluation) bool { return true }), nil
}

func (s *MemoryStore) TeamEvaluations(_ context.Context, challengeID, teamID string) ([]model.Evaluation, error) {
	defer observe("team_evaluations", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectEvaluations(challengeID, func(e model.Evaluation) bool { return e.TeamID == teamID }), nil
}

// collectEvaluations assumes the lock is held.
func (s *MemoryStore) collectEvaluations(challengeID string, keep func(model.Evaluation) bool) []model.Evaluation {
	out := make([]model.Evaluation, 0)
	for _, r := range s.challengeRubrics(challengeID) {
		for _, id := range s.byRubric[r.ID] {
			if e := s.evaluations[id]; keep(e) {
				out = append(out, e)
			}
		}
	}
	return out
}

func (s *MemoryStore) Count(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Rubrics:     len(s.rubrics),
		Submissions: len(s.submissions),
		Evaluations: len(s.evaluations),
	}, nil
}

// startMetricsUpdater periodically publishes record counts.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				c, _ := s.Count(ctx)
				PublishCounts(c)
			}
		}
	}()
}

// PublishCounts exports record counts as gauges.
func PublishCounts(c Counts) {
	metrics.UpdateRepositoryRecords("rubrics", c.Rubrics)
	metrics.UpdateRepositoryRecords("submissions", c.Submissions)
	metrics.UpdateRepositoryRecords("evaluations", c.Evaluations)
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
