package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

type shard struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// MemoryLimiter implements Limiter with per-key attempt timestamps kept in
// sharded maps, so contention stays scoped to keys that hash to the same
// shard instead of a single process-wide lock.
type MemoryLimiter struct {
	cfg    Config
	shards [shardCount]*shard
	now    func() time.Time
}

// NewMemoryLimiter creates an in-process sliding-window limiter.
func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	l := &MemoryLimiter{cfg: cfg, now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{attempts: make(map[string][]time.Time)}
	}
	return l
}

func (l *MemoryLimiter) shardFor(key string) *shard {
	return l.shards[xxhash.Sum64String(key)%shardCount]
}

// Allow prunes attempts older than the trailing window and admits the call
// unless the retained count has reached MaxAttempts. Prune and append are
// atomic per key under the shard lock.
func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	sh := l.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	attempts := sh.attempts[key]
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if len(kept) >= l.cfg.MaxAttempts {
		sh.attempts[key] = kept
		return Result{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: kept[0].Add(l.cfg.Window).Sub(now),
		}, nil
	}

	kept = append(kept, now)
	sh.attempts[key] = kept
	return Result{
		Allowed:   true,
		Remaining: l.cfg.MaxAttempts - len(kept),
	}, nil
}

// Prune drops every key whose attempts have all left the window. Called
// periodically so idle client keys do not accumulate forever.
func (l *MemoryLimiter) Prune() {
	cutoff := l.now().Add(-l.cfg.Window)
	for _, sh := range l.shards {
		sh.mu.Lock()
		for key, attempts := range sh.attempts {
			if len(attempts) == 0 || !attempts[len(attempts)-1].After(cutoff) {
				delete(sh.attempts, key)
			}
		}
		sh.mu.Unlock()
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
