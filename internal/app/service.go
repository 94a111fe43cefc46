// Package service wires the scoring domain to storage, caching and the
// evaluation queue, and implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"hash/fnv"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/hackscore/internal/adapters/cache"
	"github.com/okian/hackscore/internal/adapters/mq/queue"
	"github.com/okian/hackscore/internal/adapters/mq/worker"
	"github.com/okian/hackscore/internal/adapters/repository"
	"github.com/okian/hackscore/internal/domain/dedupe"
	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/pkg/logger"
	"github.com/okian/hackscore/pkg/metrics"
)

const (
	defaultQueueSize           = 10_000
	defaultDedupeSize          = 50_000
	defaultMaxLeaderboardLimit = 100
	shutdownTimeout            = 30 * time.Second

	// teamLockStripes bounds the mutexes serializing score refreshes per team.
	teamLockStripes = 64
	// challengeLockStripes bounds the mutexes serializing rubric writes per challenge.
	challengeLockStripes = 16
)

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	cache      cache.LeaderboardCache
	deduper    dedupe.Deduper
	queue      queue.Queue
	pool       *worker.Pool
	aggregator *scoring.Aggregator
	tracer     trace.Tracer

	// Refreshes of one team's score must not interleave.
	teamLocks [teamLockStripes]sync.Mutex
	// Rubric writes to one challenge must not interleave with its weight check.
	challengeLocks [challengeLockStripes]sync.Mutex

	// generations counts invalidations per challenge.
	genMu       sync.Mutex
	generations map[string]uint64

	// Configuration
	workerCount         int
	queueSize           int
	dedupeSize          int
	maxLeaderboardLimit int
	now                 func() time.Time

	// State
	started bool

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:         runtime.NumCPU() * 2,
		queueSize:           defaultQueueSize,
		dedupeSize:          defaultDedupeSize,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		now:                 time.Now,
		tracer:              otel.Tracer("hackscore/app"),
		generations:         make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = repository.NewMemoryStore(context.Background())
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.aggregator == nil {
		s.aggregator = scoring.NewAggregator()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start creates the evaluation queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoring service...")

	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop closes intake, lets the workers drain the queue and releases the
// store and cache.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping scoring service...")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := s.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
	return errors.Join(errs...)
}

// teamLock returns the mutex guarding score refreshes of one team in one challenge.
func (s *Service) teamLock(challengeID, teamID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(challengeID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(teamID))
	return &s.teamLocks[h.Sum32()%teamLockStripes]
}

// challengeLock returns the mutex guarding rubric writes of one challenge.
func (s *Service) challengeLock(challengeID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(challengeID))
	return &s.challengeLocks[h.Sum32()%challengeLockStripes]
}

func (s *Service) generation(challengeID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[challengeID]
}

func (s *Service) bumpGeneration(challengeID string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[challengeID]++
}

// cacheIfCurrent stores entries unless the challenge was invalidated after
// gen was read. The check and the write happen under genMu so a concurrent
// invalidation either prevents the write or deletes it afterwards.
func (s *Service) cacheIfCurrent(ctx context.Context, challengeID string, gen uint64, entries []scoring.LeaderboardEntry) error {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[challengeID] != gen {
		return nil
	}
	return s.cache.Set(ctx, challengeID, entries)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":             s.started,
		"workerCount":         s.workerCount,
		"queueSize":           s.queueSize,
		"dedupeSize":          s.dedupeSize,
		"dedupeEntries":       s.deduper.Size(),
		"maxLeaderboardLimit": s.maxLeaderboardLimit,
	}

	if s.started {
		queueLen := s.queue.Len()
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}

	if counts, err := s.store.Count(ctx); err == nil {
		stats["rubrics"] = counts.Rubrics
		stats["submissions"] = counts.Submissions
		stats["evaluations"] = counts.Evaluations
		repository.PublishCounts(counts)
	} else {
		s.logger.Warn(ctx, "failed to count records", logger.Error(err))
	}

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}
