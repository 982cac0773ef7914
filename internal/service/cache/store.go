package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// TTLPolicy controls freshness for one cache category.
type TTLPolicy struct {
	Category   string
	TTL        time.Duration
	ServeStale bool // return an expired entry when the refresh fetch fails
}

// FetchFunc loads a value from upstream. It returns the value and the id of
// the source that produced it.
type FetchFunc func(ctx context.Context) (value any, sourceID string, err error)

type entry struct {
	value     any
	fetchedAt time.Time
	ttl       time.Duration
	sourceID  string
	category  string
	accessed  time.Time
}

func (e *entry) fresh(now time.Time) bool {
	return now.Sub(e.fetchedAt) < e.ttl
}

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	Entries     int     `json:"entries"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	StaleServed int64   `json:"stale_served"`
	Evictions   int64   `json:"evictions"`
	HitRate     float64 `json:"hit_rate"`
}

// Observer receives cache events. It is satisfied by the metrics recorder.
type Observer interface {
	RecordCacheHit(category string)
	RecordCacheMiss(category string)
	RecordCacheEviction(reason string)
}

type nopObserver struct{}

func (nopObserver) RecordCacheHit(string)      {}
func (nopObserver) RecordCacheMiss(string)     {}
func (nopObserver) RecordCacheEviction(string) {}

// Store is a typed TTL cache with fetch coalescing: concurrent GetOrFetch
// calls for the same missing key share a single upstream fetch and observe
// the same value or the same error. All mutation goes through GetOrFetch
// and the invalidation methods; readers never see a half-written entry.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	maxEntries int
	sweepEvery time.Duration
	stopSweep  chan struct{}
	sweepOnce  sync.Once
	observer   Observer

	hits, misses, staleServed, evictions int64
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries bounds the store; LRU eviction applies above the bound.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.maxEntries = n }
}

// WithSweepInterval sets how often expired entries are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) { s.sweepEvery = d }
}

// WithObserver routes cache events to an external recorder.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// NewStore creates a cache store and starts its background sweep.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*entry),
		maxEntries: 2000,
		sweepEvery: 5 * time.Minute,
		stopSweep:  make(chan struct{}),
		observer:   nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweepLoop()
	return s
}

// GetOrFetch returns the cached value for key if fresh, otherwise runs
// fetch (coalesced per key) and caches the result. stale reports whether an
// expired entry was served under the policy's serve-stale-on-error rule.
func (s *Store) GetOrFetch(ctx context.Context, key string, policy TTLPolicy, fetch FetchFunc) (value any, stale bool, err error) {
	now := time.Now()

	s.mu.Lock()
	if e, ok := s.entries[key]; ok && e.fresh(now) {
		e.accessed = now
		s.hits++
		v := e.value
		s.mu.Unlock()
		s.observer.RecordCacheHit(policy.Category)
		return v, false, nil
	}
	s.misses++
	s.mu.Unlock()
	s.observer.RecordCacheMiss(policy.Category)

	type fetched struct {
		value any
		stale bool
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// A waiter queued behind the winning fetch sees the entry it wrote.
		s.mu.Lock()
		if e, ok := s.entries[key]; ok && e.fresh(time.Now()) {
			e.accessed = time.Now()
			v := e.value
			s.mu.Unlock()
			return fetched{value: v}, nil
		}
		s.mu.Unlock()

		val, sourceID, ferr := fetch(ctx)
		if ferr != nil {
			if policy.ServeStale {
				s.mu.Lock()
				if e, ok := s.entries[key]; ok {
					e.accessed = time.Now()
					s.staleServed++
					v := e.value
					s.mu.Unlock()
					return fetched{value: v, stale: true}, nil
				}
				s.mu.Unlock()
			}
			return nil, ferr
		}

		s.put(key, val, sourceID, policy)
		return fetched{value: val}, nil
	})
	if err != nil {
		return nil, false, err
	}
	f := v.(fetched)
	return f.value, f.stale, nil
}

// Peek returns the cached value without fetching or counting a hit.
func (s *Store) Peek(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !e.fresh(time.Now()) {
		return nil, false
	}
	return e.value, true
}

// Invalidate drops a single key.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// InvalidatePrefix drops all keys under a prefix, e.g. every quote when the
// market closes.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.entries {
		if strings.HasPrefix(k, prefix) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Entries:     len(s.entries),
		Hits:        s.hits,
		Misses:      s.misses,
		StaleServed: s.staleServed,
		Evictions:   s.evictions,
	}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	return st
}

// Close stops the background sweep.
func (s *Store) Close() error {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
	return nil
}

func (s *Store) put(key string, value any, sourceID string, policy TTLPolicy) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLRU()
	}
	s.entries[key] = &entry{
		value:     value,
		fetchedAt: now,
		ttl:       policy.TTL,
		sourceID:  sourceID,
		category:  policy.Category,
		accessed:  now,
	}
}

// evictLRU removes the least recently accessed entry. Caller holds the lock.
func (s *Store) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.accessed.Before(oldest) {
			oldestKey = k
			oldest = e.accessed
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
		s.evictions++
		s.observer.RecordCacheEviction("lru")
	}
}

func (s *Store) sweepLoop() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops expired entries, keeping ones a serve-stale policy might
// still hand out only until double their TTL has elapsed.
func (s *Store) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.entries {
		if now.Sub(e.fetchedAt) > 2*e.ttl {
			delete(s.entries, k)
			s.evictions++
			s.observer.RecordCacheEviction("expired")
		}
	}
	for len(s.entries) > s.maxEntries {
		s.evictLRU()
	}
	s.mu.Unlock()
}
