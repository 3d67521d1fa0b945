package cache

import (
	"context"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultCleanupInterval is how often the background janitor sweeps expired
// entries.
const DefaultCleanupInterval = 1 * time.Minute

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryStore implements Store with an in-process map. Thread-safe. Expired
// entries are rejected on read immediately; the janitor only reclaims memory.
type MemoryStore struct {
	entries         map[string]memoryEntry
	mu              sync.RWMutex
	stopChan        chan struct{}
	wg              sync.WaitGroup
	once            sync.Once
	cleanupInterval time.Duration
}

// NewMemoryStore creates a MemoryStore with the default cleanup interval.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(DefaultCleanupInterval)
}

// NewMemoryStoreWithConfig creates a MemoryStore with a custom cleanup interval.
func NewMemoryStoreWithConfig(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:         make(map[string]memoryEntry),
		stopChan:        make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}
}

// Get returns the value for key, or ErrMiss if absent or past expiry.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || entry.expired(time.Now()) {
		return nil, ErrMiss
	}
	return entry.value, nil
}

// Set stores value under key for ttl, overwriting any previous entry.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// DeletePattern removes every key matching the glob pattern.
func (s *MemoryStore) DeletePattern(ctx context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			return err
		}
		if ok {
			delete(s.entries, key)
		}
	}
	return nil
}

// StartCleanup starts the background janitor. It stops when ctx is cancelled
// or Stop is called.
func (s *MemoryStore) StartCleanup(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()
}

func (s *MemoryStore) cleanup() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Stop stops the janitor and waits for it to exit. Safe to call multiple times.
func (s *MemoryStore) Stop() {
	s.once.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Size returns the number of stored entries, including not-yet-swept expired
// ones. Useful for tests.
func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemoryStore)(nil)
