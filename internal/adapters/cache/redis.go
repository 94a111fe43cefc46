package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"

	"github.com/okian/hackscore/internal/domain/scoring"
	"github.com/okian/hackscore/pkg/logger"
	"github.com/okian/hackscore/pkg/metrics"
)

// Redis is a LeaderboardCache on a redis server, guarded by a circuit breaker
// so an unhealthy server costs one fast failure instead of a timeout per read.
type Redis struct {
	client    redis.UniversalClient
	breaker   *gobreaker.CircuitBreaker
	ttl       time.Duration
	keyPrefix string
}

var _ LeaderboardCache = (*Redis)(nil)

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr string, db int, opts ...Option) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedis(client, opts...), nil
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...Option) *Redis {
	s := newSettings(opts)
	st := gobreaker.Settings{
		Name:    "redis-leaderboard-cache",
		Timeout: s.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Named("cache").Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}
	return &Redis{
		client:    client,
		breaker:   gobreaker.NewCircuitBreaker(st),
		ttl:       s.ttl,
		keyPrefix: s.keyPrefix,
	}
}

func (r *Redis) key(challengeID string) string {
	return r.keyPrefix + "leaderboard:" + challengeID
}

func (r *Redis) Get(ctx context.Context, challengeID string) ([]scoring.LeaderboardEntry, error) {
	res, err := r.breaker.Execute(func() (any, error) {
		val, err := r.client.Get(ctx, r.key(challengeID)).Bytes()
		if errors.Is(err, redis.Nil) {
			// A miss is a healthy answer.
			return nil, nil
		}
		return val, err
	})
	if err != nil {
		return nil, r.unavailable("get", err)
	}
	raw, _ := res.([]byte)
	if raw == nil {
		return nil, ErrCacheMiss
	}

	var entries []scoring.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		metrics.RecordErrorByComponent("cache", "decode")
		return nil, fmt.Errorf("decode cached leaderboard: %w", ErrCacheMiss)
	}
	return entries, nil
}

func (r *Redis) Set(ctx context.Context, challengeID string, entries []scoring.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode leaderboard: %w", err)
	}
	_, err = r.breaker.Execute(func() (any, error) {
		return nil, r.client.Set(ctx, r.key(challengeID), raw, r.ttl).Err()
	})
	if err != nil {
		return r.unavailable("set", err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, challengeID string) error {
	_, err := r.breaker.Execute(func() (any, error) {
		return nil, r.client.Del(ctx, r.key(challengeID)).Err()
	})
	if err != nil {
		return r.unavailable("invalidate", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) unavailable(op string, err error) error {
	metrics.RecordErrorByComponent("cache", op)
	return fmt.Errorf("redis %s: %w: %w", op, ErrCacheUnavailable, err)
}
