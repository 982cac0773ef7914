package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/cache"
	"FinSage/internal/service/compliance"
	"FinSage/internal/service/embeddings"
	"FinSage/internal/service/lexicon"
	"FinSage/internal/service/marketdata"
	"FinSage/internal/service/retrieval"
	pcache "FinSage/pkg/cache"
	"FinSage/pkg/logger"
)

type stubSource struct {
	name  string
	calls atomic.Int64
	fail  bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) FetchQuote(ctx context.Context, symbol string) (*models.MarketFact, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, drepo.NewSourceError(s.name, drepo.ReasonUnavailable, nil)
	}
	return &models.MarketFact{
		Symbol: symbol,
		Kind:   models.KindQuote,
		Quote:  &models.QuotePayload{Price: 100},
		AsOf:   time.Now(),
		Source: s.name,
	}, nil
}

func (s *stubSource) FetchIndex(ctx context.Context, indexID string) (*models.MarketFact, error) {
	s.calls.Add(1)
	if s.fail {
		return nil, drepo.NewSourceError(s.name, drepo.ReasonUnavailable, nil)
	}
	return &models.MarketFact{
		Symbol: indexID,
		Kind:   models.KindIndex,
		Quote:  &models.QuotePayload{Price: 25000},
		AsOf:   time.Now(),
		Source: s.name,
	}, nil
}

func (s *stubSource) FetchHistory(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error) {
	s.calls.Add(1)
	return nil, drepo.NewSourceError(s.name, drepo.ReasonUnavailable, nil)
}

type captureAudit struct {
	mu      sync.Mutex
	entries []*models.AnalyticsEntry
}

func (c *captureAudit) Publish(_ context.Context, e *models.AnalyticsEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureAudit) Close() error { return nil }

func (c *captureAudit) all() []*models.AnalyticsEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*models.AnalyticsEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

type nopMetrics struct{}

func (nopMetrics) RecordCacheHit(string)              {}
func (nopMetrics) RecordCacheMiss(string)             {}
func (nopMetrics) RecordCacheEviction(string)         {}
func (nopMetrics) RecordSourceAttempt(_, _, _ string) {}
func (nopMetrics) RecordContextLatency(float64)       {}
func (nopMetrics) RecordFindings(string, int)         {}
func (nopMetrics) RecordError(string)                 {}

type fixture struct {
	orch   *Orchestrator
	source *stubSource
	audit  *captureAudit
}

func corpus() []models.DocumentChunk {
	return []models.DocumentChunk{
		{ID: "c1", SourceDocID: "d1", Text: "Insider trading is prohibited under SEBI regulations with penalties up to twenty five crore.", Metadata: models.ChunkMetadata{Regulator: "SEBI"}},
		{ID: "c2", SourceDocID: "d2", Text: "KYC verification is mandatory before opening a trading account.", Metadata: models.ChunkMetadata{Regulator: "SEBI"}},
		{ID: "c3", SourceDocID: "d3", Text: "Margin requirements for intraday trading are reviewed periodically.", Metadata: models.ChunkMetadata{Regulator: "SEBI"}},
	}
}

func newFixture(t *testing.T, sourceFails, withSnapshot bool) *fixture {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	store := cache.NewStore()
	t.Cleanup(func() { _ = store.Close() })

	src := &stubSource{name: "yahoo", fail: sourceFails}
	cal := marketdata.NewCalendar(nil)
	market := marketdata.NewClient(marketdata.ClientConfig{
		AdapterTimeout: time.Second,
		Priority: map[string][]string{
			"quote": {"yahoo"},
			"index": {"yahoo"},
		},
		QuoteTTL: time.Minute,
		IndexTTL: time.Minute,
	}, []drepo.Source{src}, store, cal, nopMetrics{}, log)

	index := retrieval.NewIndex(retrieval.Config{}, embeddings.NewHashing(0), log)
	if withSnapshot {
		require.NoError(t, index.InstallSnapshot(context.Background(), corpus()))
	}

	engine, err := compliance.NewEngine("", "")
	require.NoError(t, err)

	audit := &captureAudit{}
	orch := NewOrchestrator(
		OrchestratorConfig{Deadline: 2 * time.Second, ContextTTL: time.Minute},
		market,
		lexicon.Default(nil),
		index,
		engine,
		pcache.NewMemoryCache(),
		audit,
		nopMetrics{},
		log,
	)
	return &fixture{orch: orch, source: src, audit: audit}
}

func TestBuildContextAssemblesAllFacets(t *testing.T) {
	f := newFixture(t, false, true)

	out, err := f.orch.BuildContext(context.Background(), "What is the current price of RELIANCE and the penalty for insider trading?", 3)
	require.NoError(t, err)

	require.Len(t, out.MarketFacts, 1)
	assert.Equal(t, "RELIANCE", out.MarketFacts[0].Symbol)
	require.NotNil(t, out.MarketStatus)

	assert.NotEmpty(t, out.Retrieved)
	assert.Equal(t, 1, out.Retrieved[0].Rank)

	require.NotEmpty(t, out.Findings)
	assert.Equal(t, models.SeverityIllegal, out.Findings[0].Severity)
	assert.False(t, out.GeneratedAt.IsZero())
}

func TestBuildContextDegradesWhenMarketDataFails(t *testing.T) {
	f := newFixture(t, true, true)

	out, err := f.orch.BuildContext(context.Background(), "current price of TCS and margin rules for intraday trading", 3)
	require.NoError(t, err)

	assert.Empty(t, out.MarketFacts)
	assert.NotEmpty(t, out.Retrieved, "retrieval must survive a market outage")
	assert.Positive(t, f.source.calls.Load())
}

func TestBuildContextSkipsMarketFetchWithoutKeywords(t *testing.T) {
	f := newFixture(t, false, true)

	out, err := f.orch.BuildContext(context.Background(), "explain SEBI regulations on bonus issues by RELIANCE", 3)
	require.NoError(t, err)

	assert.Empty(t, out.MarketFacts)
	assert.Zero(t, f.source.calls.Load(), "no market keywords, no upstream fetch")
	assert.NotEmpty(t, out.Retrieved)
}

func TestBuildContextFailsWithoutSnapshot(t *testing.T) {
	f := newFixture(t, false, false)

	_, err := f.orch.BuildContext(context.Background(), "kyc rules for brokers", 3)
	assert.ErrorIs(t, err, drepo.ErrIndexNotReady)
}

func TestBuildContextCachesAssembledContext(t *testing.T) {
	f := newFixture(t, false, true)
	ctx := context.Background()
	query := "current price of INFY today"

	first, err := f.orch.BuildContext(ctx, query, 3)
	require.NoError(t, err)
	callsAfterFirst := f.source.calls.Load()

	second, err := f.orch.BuildContext(ctx, query, 3)
	require.NoError(t, err)
	assert.Equal(t, first.Retrieved, second.Retrieved)
	assert.Equal(t, callsAfterFirst, f.source.calls.Load(), "cache hit must not refetch")

	entries := f.audit.all()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].CacheHit)
	assert.True(t, entries[1].CacheHit)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestBuildContextResolvesIndicesThroughIndexPath(t *testing.T) {
	f := newFixture(t, false, true)

	out, err := f.orch.BuildContext(context.Background(), "what is the nifty level today", 3)
	require.NoError(t, err)

	require.Len(t, out.MarketFacts, 1)
	assert.Equal(t, "NIFTY", out.MarketFacts[0].Symbol)
	assert.Equal(t, models.KindIndex, out.MarketFacts[0].Kind)
}

func TestBuildContextAuditEntryShape(t *testing.T) {
	f := newFixture(t, false, true)

	_, err := f.orch.BuildContext(context.Background(), "guaranteed returns on the RELIANCE share price?", 3)
	require.NoError(t, err)

	entries := f.audit.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, []string{"RELIANCE"}, e.SymbolsFound)
	assert.Positive(t, e.FindingsCount)
	assert.False(t, e.CacheHit)
	assert.GreaterOrEqual(t, e.LatencyMs, int64(0))
}
