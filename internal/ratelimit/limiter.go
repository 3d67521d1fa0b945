// Package ratelimit provides sliding-window admission control. Each limiter
// instance carries its own window/threshold pair and shares no state with
// other instances, so auth traffic, general API traffic, and expensive
// endpoints can be throttled independently.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Config is one limiter instance: at most MaxAttempts admissions per client
// key within the trailing Window.
type Config struct {
	Window      time.Duration
	MaxAttempts int
}

// Result is the outcome of an admission check.
type Result struct {
	// Allowed indicates whether the attempt was admitted.
	Allowed bool

	// Remaining is the number of attempts left in the current window.
	Remaining int

	// RetryAfter is the time until the oldest retained attempt exits the
	// window. Only meaningful when Allowed is false.
	RetryAfter time.Duration
}

// Limiter admits or rejects attempts per client key. Implementations must be
// safe for concurrent checks against the same key: window pruning and the
// append of the new attempt happen atomically per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// KeyType identifies what a rate limit key is derived from.
type KeyType string

const (
	// KeyTypeIP is for network-address keys.
	KeyTypeIP KeyType = "ip"

	// KeyTypeUser is for authenticated-principal keys.
	KeyTypeUser KeyType = "user"
)

// FormatKey returns a structured rate limit key, e.g.
// FormatKey(KeyTypeIP, "192.0.2.1") -> "ratelimit:ip:192.0.2.1".
func FormatKey(keyType KeyType, value string) string {
	return fmt.Sprintf("ratelimit:%s:%s", keyType, value)
}
