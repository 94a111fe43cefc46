package cache

import "time"

type settings struct {
	ttl       time.Duration
	keyPrefix string
	// consecutive failures before the redis breaker opens
	maxFailures uint32
	openTimeout time.Duration
}

// Option applies a configuration option to a cache.
type Option func(*settings)

// WithTTL sets how long an entry stays valid without invalidation.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces redis keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *settings) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// WithBreaker sets how many consecutive redis failures open the breaker and
// how long it stays open.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(s *settings) {
		if maxFailures > 0 {
			s.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			s.openTimeout = openTimeout
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:         defaultTTL,
		keyPrefix:   defaultKeyPrefix,
		maxFailures: 3,
		openTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
