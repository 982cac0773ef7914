package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/cache"
	"FinSage/pkg/logger"
)

type fakeSource struct {
	name    string
	calls   atomic.Int64
	quote   func(ctx context.Context, symbol string) (*models.MarketFact, error)
	index   func(ctx context.Context, indexID string) (*models.MarketFact, error)
	history func(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error)
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchQuote(ctx context.Context, symbol string) (*models.MarketFact, error) {
	f.calls.Add(1)
	if f.quote == nil {
		return nil, drepo.NewSourceError(f.name, drepo.ReasonUnavailable, nil)
	}
	return f.quote(ctx, symbol)
}

func (f *fakeSource) FetchIndex(ctx context.Context, indexID string) (*models.MarketFact, error) {
	f.calls.Add(1)
	if f.index == nil {
		return nil, drepo.NewSourceError(f.name, drepo.ReasonUnavailable, nil)
	}
	return f.index(ctx, indexID)
}

func (f *fakeSource) FetchHistory(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
	f.calls.Add(1)
	if f.history == nil {
		return nil, drepo.NewSourceError(f.name, drepo.ReasonUnavailable, nil)
	}
	return f.history(ctx, symbol, rng, interval)
}

type nopMetrics struct{}

func (nopMetrics) RecordCacheHit(string)              {}
func (nopMetrics) RecordCacheMiss(string)             {}
func (nopMetrics) RecordCacheEviction(string)         {}
func (nopMetrics) RecordSourceAttempt(_, _, _ string) {}
func (nopMetrics) RecordContextLatency(float64)       {}
func (nopMetrics) RecordFindings(string, int)         {}
func (nopMetrics) RecordError(string)                 {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func quoteFact(symbol, source string, price float64) *models.MarketFact {
	return &models.MarketFact{
		Symbol: symbol,
		Kind:   models.KindQuote,
		Quote:  &models.QuotePayload{Price: price},
		AsOf:   time.Now(),
		Source: source,
	}
}

func newTestClient(t *testing.T, cfg ClientConfig, sources ...drepo.Source) *Client {
	t.Helper()
	store := cache.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	if cfg.QuoteTTL == 0 {
		cfg.QuoteTTL = time.Minute
	}
	if cfg.IndexTTL == 0 {
		cfg.IndexTTL = time.Minute
	}
	if cfg.HistoryTTL == 0 {
		cfg.HistoryTTL = time.Minute
	}
	return NewClient(cfg, sources, store, NewCalendar(nil), nopMetrics{}, testLogger(t))
}

func TestQuoteFallsBackInPriorityOrder(t *testing.T) {
	primary := &fakeSource{name: "nse"}
	secondary := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			return quoteFact(symbol, "yahoo", 2950.10), nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{"quote": {"nse", "yahoo"}},
	}, primary, secondary)

	fact, stale, err := client.Quote(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.False(t, stale)
	assert.Equal(t, "yahoo", fact.Source)
	assert.Equal(t, 2950.10, fact.Quote.Price)
	assert.Equal(t, int64(1), primary.calls.Load())
	assert.Equal(t, int64(1), secondary.calls.Load())
}

func TestQuoteSkipsSourcesLaterInOrderOnSuccess(t *testing.T) {
	primary := &fakeSource{
		name: "nse",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			return quoteFact(symbol, "nse", 2951.00), nil
		},
	}
	secondary := &fakeSource{name: "yahoo"}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{"quote": {"nse", "yahoo"}},
	}, primary, secondary)

	fact, _, err := client.Quote(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, "nse", fact.Source)
	assert.Zero(t, secondary.calls.Load())
}

func TestQuoteAllSourcesFailed(t *testing.T) {
	a := &fakeSource{name: "nse"}
	b := &fakeSource{name: "yahoo"}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{"quote": {"nse", "yahoo"}},
	}, a, b)

	_, _, err := client.Quote(context.Background(), "RELIANCE")
	require.Error(t, err)
	assert.ErrorIs(t, err, drepo.ErrMarketDataUnavailable)
	assert.Contains(t, err.Error(), "nse")
	assert.Contains(t, err.Error(), "yahoo")
}

func TestQuoteRejectsStaleUpstreamTimestamp(t *testing.T) {
	yesterday := &fakeSource{
		name: "nse",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			f := quoteFact(symbol, "nse", 100)
			f.AsOf = time.Now().Add(-48 * time.Hour)
			return f, nil
		},
	}
	fresh := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			return quoteFact(symbol, "yahoo", 101), nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority:      map[string][]string{"quote": {"nse", "yahoo"}},
		StaleQuoteMax: 24 * time.Hour,
	}, yesterday, fresh)

	fact, _, err := client.Quote(context.Background(), "TCS")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", fact.Source)
}

func TestQuoteCachesAcrossCalls(t *testing.T) {
	src := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			return quoteFact(symbol, "yahoo", 3200), nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{"quote": {"yahoo"}},
	}, src)

	for i := 0; i < 5; i++ {
		_, _, err := client.Quote(context.Background(), "INFY")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), src.calls.Load())

	stats := client.CacheStats()
	assert.Equal(t, int64(4), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestQuoteServesStaleWhenSourcesGoDark(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)
	src := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			if !healthy.Load() {
				return nil, drepo.NewSourceError("yahoo", drepo.ReasonUnavailable, errors.New("down"))
			}
			return quoteFact(symbol, "yahoo", 512.5), nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority:   map[string][]string{"quote": {"yahoo"}},
		QuoteTTL:   10 * time.Millisecond,
		ServeStale: true,
	}, src)

	_, stale, err := client.Quote(context.Background(), "ITC")
	require.NoError(t, err)
	assert.False(t, stale)

	healthy.Store(false)
	time.Sleep(20 * time.Millisecond)

	fact, stale, err := client.Quote(context.Background(), "ITC")
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, 512.5, fact.Quote.Price)
}

func TestPerSourceTimeoutAdvancesFallback(t *testing.T) {
	slow := &fakeSource{
		name: "nse",
		quote: func(ctx context.Context, symbol string) (*models.MarketFact, error) {
			<-ctx.Done()
			return nil, drepo.NewSourceError("nse", drepo.ReasonTimeout, ctx.Err())
		},
	}
	fast := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			return quoteFact(symbol, "yahoo", 99), nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority:       map[string][]string{"quote": {"nse", "yahoo"}},
		AdapterTimeout: 20 * time.Millisecond,
	}, slow, fast)

	start := time.Now()
	fact, _, err := client.Quote(context.Background(), "SBIN")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", fact.Source)
	assert.Less(t, time.Since(start), time.Second)
}

func TestHistoryUsesOwnPriorityList(t *testing.T) {
	nse := &fakeSource{name: "nse"} // never called for history
	yahoo := &fakeSource{
		name: "yahoo",
		history: func(_ context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
			return &models.MarketFact{
				Symbol: symbol,
				Kind:   models.KindHistory,
				Bars:   []models.Bar{{Time: time.Now(), Close: 100}},
				AsOf:   time.Now(),
				Source: "yahoo",
			}, nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{
			"quote":   {"nse", "yahoo"},
			"history": {"yahoo"},
		},
	}, nse, yahoo)

	fact, _, err := client.History(context.Background(), "RELIANCE", models.Range1M, "1d")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", fact.Source)
	assert.Len(t, fact.Bars, 1)
	assert.Zero(t, nse.calls.Load())
}

func TestInvalidateSymbolDropsQuoteAndHistory(t *testing.T) {
	src := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			return quoteFact(symbol, "yahoo", 1), nil
		},
		history: func(_ context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
			return &models.MarketFact{
				Symbol: symbol, Kind: models.KindHistory,
				Bars: []models.Bar{{Close: 1}}, AsOf: time.Now(), Source: "yahoo",
			}, nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{
			"quote":   {"yahoo"},
			"history": {"yahoo"},
		},
	}, src)

	ctx := context.Background()
	_, _, err := client.Quote(ctx, "TCS")
	require.NoError(t, err)
	_, _, err = client.History(ctx, "TCS", models.Range1M, "1d")
	require.NoError(t, err)
	_, _, err = client.Quote(ctx, "INFY")
	require.NoError(t, err)

	removed := client.InvalidateSymbol("TCS")
	assert.Equal(t, 2, removed)

	before := src.calls.Load()
	_, _, err = client.Quote(ctx, "INFY")
	require.NoError(t, err)
	assert.Equal(t, before, src.calls.Load(), "unrelated symbol should stay cached")
}

func TestNoSourcesConfiguredForKind(t *testing.T) {
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{"quote": {"yahoo"}},
	}, &fakeSource{name: "yahoo"})

	_, _, err := client.Index(context.Background(), "NIFTY")
	require.Error(t, err)
	assert.ErrorIs(t, err, drepo.ErrMarketDataUnavailable)
}

func TestUnknownSourceNamesAreSkipped(t *testing.T) {
	src := &fakeSource{
		name: "yahoo",
		index: func(_ context.Context, indexID string) (*models.MarketFact, error) {
			f := quoteFact(indexID, "yahoo", 24890.5)
			f.Kind = models.KindIndex
			return f, nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority: map[string][]string{"index": {"bloomberg", "yahoo"}},
	}, src)

	fact, _, err := client.Index(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", fact.Source)
}

func TestConcurrentQuotesCoalesceIntoOneFetch(t *testing.T) {
	block := make(chan struct{})
	src := &fakeSource{
		name: "yahoo",
		quote: func(_ context.Context, symbol string) (*models.MarketFact, error) {
			<-block
			return quoteFact(symbol, "yahoo", 7), nil
		},
	}
	client := newTestClient(t, ClientConfig{
		Priority:       map[string][]string{"quote": {"yahoo"}},
		AdapterTimeout: time.Second,
	}, src)

	const n = 16
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _, err := client.Quote(context.Background(), "HDFCBANK")
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(block)
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int64(1), src.calls.Load(), fmt.Sprintf("expected one upstream call, got %d", src.calls.Load()))
}
