// Package cache stores computed leaderboards so reads can skip recomputation
// until the next evaluation for that challenge lands.
package cache

import (
	"context"
	"time"

	"github.com/okian/hackscore/internal/domain/scoring"
)

const (
	defaultTTL       = 30 * time.Second
	defaultKeyPrefix = "hackscore:"
)

// LeaderboardCache holds ranked entries per challenge. Cached entries carry
// the submission, team, final score and position but not the per-rubric
// breakdown.
type LeaderboardCache interface {
	// Get returns ErrCacheMiss when nothing is cached for challengeID.
	Get(ctx context.Context, challengeID string) ([]scoring.LeaderboardEntry, error)
	Set(ctx context.Context, challengeID string, entries []scoring.LeaderboardEntry) error
	Invalidate(ctx context.Context, challengeID string) error
	Close() error
}
