package cache

import (
	"time"
)

// CacheService stores short-lived flags shared across batch runs, most
// importantly block markers: when a host sends a block signal, a marker is
// set so the worker stops scheduling that host's URLs until it expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}

// BlockKey builds the cache key marking a host as blocked
func BlockKey(host string) string {
	return "blocked:" + host
}
