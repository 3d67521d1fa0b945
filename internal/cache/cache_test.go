package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	val, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMemoryStore_ExpiredEntryNeverServed(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), -time.Second))

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStore_DeletePattern(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	keys := []string{
		"portfolio:42:view",
		"portfolio:42:meta",
		"portfolio:43:view",
		"public:ada:profile",
	}
	for _, k := range keys {
		require.NoError(t, s.Set(ctx, k, []byte("x"), time.Minute))
	}

	require.NoError(t, s.DeletePattern(ctx, "portfolio:42:*"))

	_, err := s.Get(ctx, "portfolio:42:view")
	assert.ErrorIs(t, err, ErrMiss)
	_, err = s.Get(ctx, "portfolio:42:meta")
	assert.ErrorIs(t, err, ErrMiss)

	// Non-matching keys survive.
	_, err = s.Get(ctx, "portfolio:43:view")
	assert.NoError(t, err)
	_, err = s.Get(ctx, "public:ada:profile")
	assert.NoError(t, err)
}

func TestMemoryStore_CleanupSweepsExpired(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewMemoryStoreWithConfig(10 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "gone", []byte("x"), time.Millisecond))
	require.NoError(t, s.Set(ctx, "kept", []byte("x"), time.Minute))

	s.StartCleanup(ctx)
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return s.Size() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestReadThrough_GetOrCompute(t *testing.T) {
	ctx := context.Background()
	rt := NewReadThrough(NewMemoryStore())

	var calls int32
	compute := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		return []byte("computed"), nil
	}

	val, err := rt.GetOrCompute(ctx, "key", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), val)

	// Second call served from cache.
	val, err = rt.GetOrCompute(ctx, "key", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, []byte("computed"), val)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestReadThrough_ColdKeyComputesOnce(t *testing.T) {
	ctx := context.Background()
	rt := NewReadThrough(NewMemoryStore())

	var calls int32
	release := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return []byte("value"), nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([][]byte, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = rt.GetOrCompute(ctx, "cold", time.Minute, compute)
		}(i)
	}

	// Let all callers pile onto the cold key before the computation finishes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("value"), results[i])
	}
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("backend unreachable")
}

func (failingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("backend unreachable")
}

func (failingStore) DeletePattern(ctx context.Context, pattern string) error {
	return errors.New("backend unreachable")
}

func TestReadThrough_StoreFailureDegradesToCompute(t *testing.T) {
	ctx := context.Background()
	rt := NewReadThrough(failingStore{})

	val, err := rt.GetOrCompute(ctx, "key", time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte("direct"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("direct"), val)

	// Invalidate against a dead backend must not panic or error out.
	rt.Invalidate(ctx, "portfolio:*")
}

func TestReadThrough_ComputeErrorPropagates(t *testing.T) {
	ctx := context.Background()
	rt := NewReadThrough(NewMemoryStore())

	wantErr := errors.New("boom")
	_, err := rt.GetOrCompute(ctx, "key", time.Minute, func(ctx context.Context) ([]byte, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// The failed computation must not be cached.
	val, err := rt.GetOrCompute(ctx, "key", time.Minute, func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), val)
}
