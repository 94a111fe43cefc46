package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/hackscore/internal/domain/scoring"
)

type memoryItem struct {
	entries []scoring.LeaderboardEntry
	expires time.Time
}

// Memory is a process-local LeaderboardCache.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

var _ LeaderboardCache = (*Memory)(nil)

// NewMemory creates an in-process cache.
func NewMemory(opts ...Option) *Memory {
	s := newSettings(opts)
	return &Memory{items: make(map[string]memoryItem), ttl: s.ttl, now: time.Now}
}

func (m *Memory) Get(_ context.Context, challengeID string) ([]scoring.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[challengeID]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !m.now().Before(it.expires) {
		delete(m.items, challengeID)
		return nil, ErrCacheMiss
	}
	return stripDetails(it.entries), nil
}

func (m *Memory) Set(_ context.Context, challengeID string, entries []scoring.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[challengeID] = memoryItem{entries: slices.Clone(entries), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, challengeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, challengeID)
	return nil
}

func (m *Memory) Close() error { return nil }

// stripDetails copies entries without the per-rubric breakdown so both
// implementations return the same shape.
func stripDetails(in []scoring.LeaderboardEntry) []scoring.LeaderboardEntry {
	out := make([]scoring.LeaderboardEntry, len(in))
	for i, e := range in {
		e.Score = scoring.TeamScore{}
		out[i] = e
	}
	return out
}
