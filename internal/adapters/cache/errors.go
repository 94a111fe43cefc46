package cache

import "errors"

// Sentinel kinds for cache errors. Callers treat both as a miss.
var (
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("cache unavailable")
)
