// Package cache provides a read-through response cache over a key/value
// store with TTL. The store interface is deliberately small so a
// single-process map and a distributed backend are interchangeable.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Store is a key/value store with per-entry TTL and glob-pattern deletion.
// Implementations must be safe for concurrent use and must never serve an
// entry past its expiry instant.
type Store interface {
	// Get returns the value for key, or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// DeletePattern removes every key matching a glob-style pattern,
	// e.g. "portfolio:42:*".
	DeletePattern(ctx context.Context, pattern string) error
}
