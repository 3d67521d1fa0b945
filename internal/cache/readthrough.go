package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the value for a key on a cache miss.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// ReadThrough memoizes idempotent reads: a hit is returned without invoking
// compute, a miss runs compute once (concurrent callers on a cold key share a
// single computation) and stores the result. The backing store is a
// performance optimization only: if it is unreachable, requests fall back to
// direct computation.
type ReadThrough struct {
	store Store
	group singleflight.Group
}

// NewReadThrough creates a ReadThrough over the given store.
func NewReadThrough(store Store) *ReadThrough {
	return &ReadThrough{store: store}
}

// GetOrCompute returns the cached value for key, computing and caching it
// with ttl on a miss. Callers never observe partially-cached state: the value
// is returned only after the store write has been attempted.
func (r *ReadThrough) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) ([]byte, error) {
	if val, err := r.store.Get(ctx, key); err == nil {
		return val, nil
	}

	val, err, _ := r.group.Do(key, func() (any, error) {
		// Another caller may have filled the key while we waited.
		if val, err := r.store.Get(ctx, key); err == nil {
			return val, nil
		}
		val, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		// A store failure here degrades to an uncached response.
		_ = r.store.Set(ctx, key, val, ttl)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}

// Invalidate removes every cached entry matching the glob pattern. Mutating
// handlers call this for the resources they changed; a store failure is
// swallowed since stale entries still expire by TTL.
func (r *ReadThrough) Invalidate(ctx context.Context, pattern string) {
	_ = r.store.DeletePattern(ctx, pattern)
}
