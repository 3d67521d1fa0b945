package ratelimit

import (
	"context"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ProgressiveConfig tunes the delay variant.
type ProgressiveConfig struct {
	// Window is the trailing interval attempts are counted in.
	Window time.Duration
	// DelayAfter is the attempt count past which delays start.
	DelayAfter int
	// DelayStep is added per attempt beyond DelayAfter.
	DelayStep time.Duration
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// HardCap is the attempt count past which the variant rejects outright.
	// Zero means never reject.
	HardCap int
}

// ProgressiveDelay trades latency for availability: below the hard cap it
// never rejects, it only computes a growing artificial delay once attempts
// exceed DelayAfter. Used on login so password guessing slows down without
// locking out a user who mistyped a few times.
type ProgressiveDelay struct {
	cfg    ProgressiveConfig
	shards [shardCount]*shard
	now    func() time.Time
}

// NewProgressiveDelay creates an in-process progressive-delay limiter.
func NewProgressiveDelay(cfg ProgressiveConfig) *ProgressiveDelay {
	if cfg.DelayStep <= 0 {
		cfg.DelayStep = 500 * time.Millisecond
	}
	p := &ProgressiveDelay{cfg: cfg, now: time.Now}
	for i := range p.shards {
		p.shards[i] = &shard{attempts: make(map[string][]time.Time)}
	}
	return p
}

// Check records an attempt and returns the artificial delay the caller
// should impose before responding. allowed is false only when the hard cap
// is exceeded.
func (p *ProgressiveDelay) Check(ctx context.Context, key string) (delay time.Duration, allowed bool) {
	now := p.now()
	cutoff := now.Add(-p.cfg.Window)

	sh := p.shards[xxhash.Sum64String(key)%shardCount]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	attempts := sh.attempts[key]
	kept := attempts[:0]
	for _, at := range attempts {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}

	if p.cfg.HardCap > 0 && len(kept) >= p.cfg.HardCap {
		sh.attempts[key] = kept
		return 0, false
	}

	kept = append(kept, now)
	sh.attempts[key] = kept

	over := len(kept) - p.cfg.DelayAfter
	if over <= 0 {
		return 0, true
	}
	delay = time.Duration(over) * p.cfg.DelayStep
	if delay > p.cfg.MaxDelay {
		delay = p.cfg.MaxDelay
	}
	return delay, true
}

// Reset clears the attempt history for a key, e.g. after a successful login.
func (p *ProgressiveDelay) Reset(key string) {
	sh := p.shards[xxhash.Sum64String(key)%shardCount]
	sh.mu.Lock()
	delete(sh.attempts, key)
	sh.mu.Unlock()
}
