package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quotePolicy(ttl time.Duration, serveStale bool) TTLPolicy {
	return TTLPolicy{Category: "quote", TTL: ttl, ServeStale: serveStale}
}

func TestGetOrFetchCoalescesConcurrentFetches(t *testing.T) {
	s := NewStore()
	defer s.Close()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42.5, "yahoo", nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]any, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := s.GetOrFetch(context.Background(), "quote:TCS:", quotePolicy(time.Minute, false), fetch)
			results[i] = v
			errs[i] = err
		}(i)
	}

	// Let all goroutines pile up behind the single in-flight fetch.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "concurrent callers must share one upstream fetch")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42.5, results[i])
	}
}

func TestGetOrFetchSharesFailure(t *testing.T) {
	s := NewStore()
	defer s.Close()

	boom := errors.New("upstream down")
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil, "", boom
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = s.GetOrFetch(context.Background(), "quote:INFY:", quotePolicy(time.Minute, false), fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		assert.ErrorIs(t, errs[i], boom)
	}
}

func TestTTLExpiryTriggersRefetch(t *testing.T) {
	s := NewStore()
	defer s.Close()

	var calls int32
	fetch := func(ctx context.Context) (any, string, error) {
		return atomic.AddInt32(&calls, 1), "nse", nil
	}

	policy := quotePolicy(80*time.Millisecond, false)

	v, _, err := s.GetOrFetch(context.Background(), "quote:SBIN:", policy, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	// Within TTL: cached, no refetch.
	v, _, err = s.GetOrFetch(context.Background(), "quote:SBIN:", policy, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Past TTL: refetch.
	time.Sleep(100 * time.Millisecond)
	v, _, err = s.GetOrFetch(context.Background(), "quote:SBIN:", policy, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestServeStaleOnError(t *testing.T) {
	s := NewStore()
	defer s.Close()

	good := func(ctx context.Context) (any, string, error) { return "v1", "yahoo", nil }
	bad := func(ctx context.Context) (any, string, error) { return nil, "", errors.New("down") }

	policy := quotePolicy(30*time.Millisecond, true)

	_, _, err := s.GetOrFetch(context.Background(), "quote:ITC:", policy, good)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	v, stale, err := s.GetOrFetch(context.Background(), "quote:ITC:", policy, bad)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, "v1", v)

	// Without serve-stale the failure propagates.
	strict := quotePolicy(30*time.Millisecond, false)
	_, _, err = s.GetOrFetch(context.Background(), "quote:LT:", strict, good)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, _, err = s.GetOrFetch(context.Background(), "quote:LT:", strict, bad)
	assert.Error(t, err)
}

func TestInvalidatePrefix(t *testing.T) {
	s := NewStore()
	defer s.Close()

	fetch := func(ctx context.Context) (any, string, error) { return 1, "nse", nil }
	policy := quotePolicy(time.Minute, false)

	for _, sym := range []string{"TCS", "INFY", "SBIN"} {
		_, _, err := s.GetOrFetch(context.Background(), "quote:"+sym+":", policy, fetch)
		require.NoError(t, err)
	}
	_, _, err := s.GetOrFetch(context.Background(), "history:TCS:1d", TTLPolicy{Category: "history", TTL: time.Hour}, fetch)
	require.NoError(t, err)

	n := s.InvalidatePrefix("quote:")
	assert.Equal(t, 3, n)

	_, ok := s.Peek("quote:TCS:")
	assert.False(t, ok)
	_, ok = s.Peek("history:TCS:1d")
	assert.True(t, ok)
}

func TestLRUEvictionOverCapacity(t *testing.T) {
	s := NewStore(WithMaxEntries(3))
	defer s.Close()

	fetch := func(v int) FetchFunc {
		return func(ctx context.Context) (any, string, error) { return v, "nse", nil }
	}
	policy := quotePolicy(time.Minute, false)

	for i := 0; i < 3; i++ {
		_, _, err := s.GetOrFetch(context.Background(), fmt.Sprintf("quote:S%d:", i), policy, fetch(i))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond) // distinct access times
	}

	// Touch S0 so S1 becomes least recently used.
	_, _, err := s.GetOrFetch(context.Background(), "quote:S0:", policy, fetch(0))
	require.NoError(t, err)

	_, _, err = s.GetOrFetch(context.Background(), "quote:S3:", policy, fetch(3))
	require.NoError(t, err)

	_, ok := s.Peek("quote:S1:")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = s.Peek("quote:S0:")
	assert.True(t, ok)

	st := s.Stats()
	assert.Equal(t, 3, st.Entries)
	assert.GreaterOrEqual(t, st.Evictions, int64(1))
}

func TestStatsHitRate(t *testing.T) {
	s := NewStore()
	defer s.Close()

	fetch := func(ctx context.Context) (any, string, error) { return "x", "nse", nil }
	policy := quotePolicy(time.Minute, false)

	_, _, err := s.GetOrFetch(context.Background(), "quote:TCS:", policy, fetch)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err = s.GetOrFetch(context.Background(), "quote:TCS:", policy, fetch)
		require.NoError(t, err)
	}

	st := s.Stats()
	assert.Equal(t, int64(3), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.75, st.HitRate, 1e-9)
}
