package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/compliance"
	"FinSage/internal/service/lexicon"
	"FinSage/internal/service/marketdata"
	"FinSage/internal/service/retrieval"
	"FinSage/pkg/cache"
	"FinSage/pkg/logger"
)

// maxFactSymbols caps how many extracted symbols get a market fetch in
// one query.
const maxFactSymbols = 5

// OrchestratorConfig bounds one BuildContext call.
type OrchestratorConfig struct {
	Deadline   time.Duration
	ContextTTL time.Duration
}

// Orchestrator assembles one AugmentationContext per query: symbol
// extraction, market fan-out, hybrid retrieval, and compliance scan,
// the independent facets running concurrently under a soft deadline.
// Market data failures degrade to an empty facts facet; retrieval and
// compliance problems fail the call.
type Orchestrator struct {
	cfg      OrchestratorConfig
	market   *marketdata.Client
	lex      *lexicon.Lexicon
	index    *retrieval.Index
	engine   *compliance.Engine
	ctxCache cache.Service
	audit    drepo.AuditPublisher
	metrics  drepo.Metrics
	log      *logger.Logger
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	market *marketdata.Client,
	lex *lexicon.Lexicon,
	index *retrieval.Index,
	engine *compliance.Engine,
	ctxCache cache.Service,
	audit drepo.AuditPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Orchestrator {
	if cfg.Deadline <= 0 {
		cfg.Deadline = 4 * time.Second
	}
	if cfg.ContextTTL <= 0 {
		cfg.ContextTTL = 2 * time.Minute
	}
	return &Orchestrator{
		cfg:      cfg,
		market:   market,
		lex:      lex,
		index:    index,
		engine:   engine,
		ctxCache: ctxCache,
		audit:    audit,
		metrics:  metrics,
		log:      log,
	}
}

// BuildContext returns the assembled context for query, from cache when
// a recent identical query exists. k <= 0 takes the retrieval default.
func (o *Orchestrator) BuildContext(ctx context.Context, query string, k int) (*models.AugmentationContext, error) {
	start := time.Now()
	key := contextKey(query, k)

	// Stored as a JSON string so memory, redis, and layered backends
	// all round-trip it identically.
	var raw string
	if err := o.ctxCache.Get(ctx, key, &raw); err == nil {
		var cached models.AugmentationContext
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			o.metrics.RecordCacheHit("context")
			o.emitAudit(query, cached.Findings, nil, true, start)
			return &cached, nil
		}
	}
	o.metrics.RecordCacheMiss("context")

	symbols := o.lex.Extract(query)

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	out := &models.AugmentationContext{Query: query}
	g, gctx := errgroup.WithContext(runCtx)

	if len(symbols) > 0 && o.lex.NeedsMarketData(query) {
		g.Go(func() error {
			facts, status := o.collectFacts(gctx, symbols)
			out.MarketFacts = facts
			out.MarketStatus = status
			return nil
		})
	}

	g.Go(func() error {
		retrieved, err := o.index.Retrieve(gctx, query, k)
		if err != nil {
			return err
		}
		out.Retrieved = retrieved
		return nil
	})

	g.Go(func() error {
		out.Findings = o.engine.Evaluate(query)
		return nil
	})

	if err := g.Wait(); err != nil {
		o.metrics.RecordError("build_context")
		o.emitAudit(query, nil, symbols, false, start)
		return nil, err
	}

	out.GeneratedAt = time.Now()

	if b, err := json.Marshal(out); err == nil {
		if err := o.ctxCache.Set(ctx, key, string(b), o.cfg.ContextTTL); err != nil {
			o.log.Warn("context cache set failed", logger.Error(err))
		}
	}

	for _, sev := range []models.Severity{models.SeverityIllegal, models.SeverityHighRisk, models.SeverityMediumRisk} {
		n := 0
		for _, f := range out.Findings {
			if f.Severity == sev {
				n++
			}
		}
		if n > 0 {
			o.metrics.RecordFindings(string(sev), n)
		}
	}
	o.metrics.RecordContextLatency(time.Since(start).Seconds())
	o.emitAudit(query, out.Findings, symbols, false, start)

	return out, nil
}

// collectFacts fans one fetch per symbol, indices and equities on their
// own paths. Failures are logged and dropped; the context carries
// whatever arrived.
func (o *Orchestrator) collectFacts(ctx context.Context, symbols []string) ([]models.MarketFact, *models.MarketStatus) {
	if len(symbols) > maxFactSymbols {
		symbols = symbols[:maxFactSymbols]
	}

	facts := make([]*models.MarketFact, len(symbols))
	var g errgroup.Group
	for i, id := range symbols {
		g.Go(func() error {
			sym, _ := o.lex.Lookup(id)
			var fact *models.MarketFact
			var err error
			if sym.IsIndex {
				fact, _, err = o.market.Index(ctx, id)
			} else {
				fact, _, err = o.market.Quote(ctx, id)
			}
			if err != nil {
				o.log.Debug("market facet degraded",
					logger.String("symbol", id),
					logger.Error(err))
				return nil
			}
			facts[i] = fact
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.MarketFact, 0, len(facts))
	for _, f := range facts {
		if f != nil {
			out = append(out, *f)
		}
	}
	status := o.market.MarketStatus()
	return out, &status
}

// emitAudit publishes one analytics entry, best effort.
func (o *Orchestrator) emitAudit(query string, findings []models.ComplianceFinding, symbols []string, cacheHit bool, start time.Time) {
	if o.audit == nil {
		return
	}
	entry := &models.AnalyticsEntry{
		ID:            uuid.NewString(),
		Query:         query,
		Timestamp:     time.Now().UTC(),
		SymbolsFound:  symbols,
		FindingsCount: len(findings),
		CacheHit:      cacheHit,
		LatencyMs:     time.Since(start).Milliseconds(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := o.audit.Publish(ctx, entry); err != nil {
		o.metrics.RecordError("audit_publish")
		o.log.Warn("audit publish failed", logger.Error(err))
	}
}

func contextKey(query string, k int) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return cache.GenerateKeyWithParams("context", cache.HashKey(normalized), k)
}
