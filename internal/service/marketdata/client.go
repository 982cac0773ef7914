package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinSage/internal/domain/models"
	drepo "FinSage/internal/domain/repository"
	"FinSage/internal/service/cache"
	"FinSage/pkg/logger"
)

// ClientConfig wires cache policy and fallback order into the fan-out
// client. Priority maps a fact kind ("quote", "index", "history") to an
// ordered list of source names; unknown names are skipped.
type ClientConfig struct {
	AdapterTimeout time.Duration
	Priority       map[string][]string
	StaleQuoteMax  time.Duration

	QuoteTTL   time.Duration
	IndexTTL   time.Duration
	HistoryTTL time.Duration
	ServeStale bool
}

// Client fans a fact request out across upstream sources in priority
// order, behind a read-through TTL cache. One upstream fetch per cache
// key is in flight at a time; concurrent callers share its result.
type Client struct {
	cfg     ClientConfig
	sources map[string]drepo.Source
	store   *cache.Store
	cal     *Calendar
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewClient(cfg ClientConfig, sources []drepo.Source, store *cache.Store, cal *Calendar, m drepo.Metrics, log *logger.Logger) *Client {
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 3 * time.Second
	}
	byName := make(map[string]drepo.Source, len(sources))
	for _, s := range sources {
		byName[s.Name()] = s
	}
	return &Client{
		cfg:     cfg,
		sources: byName,
		store:   store,
		cal:     cal,
		metrics: m,
		log:     log,
	}
}

// Quote returns the latest quote for an equity symbol. The stale flag
// is set when the cache served an expired entry because every source
// failed.
func (c *Client) Quote(ctx context.Context, symbol string) (*models.MarketFact, bool, error) {
	key := fmt.Sprintf("quote:%s", symbol)
	policy := cache.TTLPolicy{Category: "quote", TTL: c.cfg.QuoteTTL, ServeStale: c.cfg.ServeStale}
	return c.fetch(ctx, key, policy, "quote", func(ctx context.Context, s drepo.Source) (*models.MarketFact, error) {
		return s.FetchQuote(ctx, symbol)
	})
}

// Index returns the latest level for a canonical index id.
func (c *Client) Index(ctx context.Context, indexID string) (*models.MarketFact, bool, error) {
	key := fmt.Sprintf("index:%s", indexID)
	policy := cache.TTLPolicy{Category: "index", TTL: c.cfg.IndexTTL, ServeStale: c.cfg.ServeStale}
	return c.fetch(ctx, key, policy, "index", func(ctx context.Context, s drepo.Source) (*models.MarketFact, error) {
		return s.FetchIndex(ctx, indexID)
	})
}

// History returns an OHLCV series for the symbol over the given range.
func (c *Client) History(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, bool, error) {
	if interval == "" {
		interval = "1d"
	}
	key := fmt.Sprintf("history:%s:%s:%s", symbol, rng, interval)
	policy := cache.TTLPolicy{Category: "history", TTL: c.cfg.HistoryTTL, ServeStale: c.cfg.ServeStale}
	return c.fetch(ctx, key, policy, "history", func(ctx context.Context, s drepo.Source) (*models.MarketFact, error) {
		return s.FetchHistory(ctx, symbol, rng, interval)
	})
}

// MarketStatus reports exchange session state from the trading
// calendar. It never hits upstream sources.
func (c *Client) MarketStatus() models.MarketStatus {
	return c.cal.Status(time.Now())
}

func (c *Client) fetch(ctx context.Context, key string, policy cache.TTLPolicy, kind string,
	call func(context.Context, drepo.Source) (*models.MarketFact, error)) (*models.MarketFact, bool, error) {

	v, stale, err := c.store.GetOrFetch(ctx, key, policy, func(ctx context.Context) (any, string, error) {
		fact, err := c.fanOut(ctx, kind, call)
		if err != nil {
			return nil, "", err
		}
		return fact, fact.Source, nil
	})
	if err != nil {
		return nil, false, err
	}
	fact, ok := v.(*models.MarketFact)
	if !ok {
		return nil, false, fmt.Errorf("cache entry %s holds %T, want market fact", key, v)
	}
	return fact, stale, nil
}

// fanOut walks the priority list for a kind, giving each source its own
// timeout, and returns the first usable fact. Per-source failures are
// collected so the terminal error names every reason.
func (c *Client) fanOut(ctx context.Context, kind string,
	call func(context.Context, drepo.Source) (*models.MarketFact, error)) (*models.MarketFact, error) {

	order := c.cfg.Priority[kind]
	if len(order) == 0 {
		return nil, fmt.Errorf("no sources configured for %s: %w", kind, drepo.ErrMarketDataUnavailable)
	}

	var failures []error
	for _, name := range order {
		src, ok := c.sources[name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.AdapterTimeout)
		fact, err := call(attemptCtx, src)
		cancel()

		if err != nil {
			c.metrics.RecordSourceAttempt(name, kind, string(drepo.ReasonOf(err)))
			c.log.Debug("source attempt failed",
				logger.String("source", name),
				logger.String("kind", kind),
				logger.Error(err))
			failures = append(failures, err)
			continue
		}
		if kind != "history" && c.tooOld(fact) {
			err := drepo.NewSourceError(name, drepo.ReasonUnavailable,
				fmt.Errorf("quote as of %s is beyond freshness window", fact.AsOf.Format(time.RFC3339)))
			c.metrics.RecordSourceAttempt(name, kind, string(drepo.ReasonUnavailable))
			failures = append(failures, err)
			continue
		}

		c.metrics.RecordSourceAttempt(name, kind, "ok")
		return fact, nil
	}

	return nil, fmt.Errorf("%w: %w", drepo.ErrMarketDataUnavailable, errors.Join(failures...))
}

// tooOld rejects facts whose exchange timestamp predates the freshness
// window, e.g. a quote from the previous session served mid-day.
func (c *Client) tooOld(fact *models.MarketFact) bool {
	if c.cfg.StaleQuoteMax <= 0 || fact.AsOf.IsZero() {
		return false
	}
	return time.Since(fact.AsOf) > c.cfg.StaleQuoteMax
}

// InvalidateSymbol drops cached quote and history entries for one
// symbol. Returns the number of entries removed.
func (c *Client) InvalidateSymbol(symbol string) int {
	n := c.store.InvalidatePrefix("quote:" + symbol)
	n += c.store.InvalidatePrefix("history:" + symbol + ":")
	n += c.store.InvalidatePrefix("index:" + symbol)
	return n
}

// InvalidateKind drops all cached entries of one fact kind.
func (c *Client) InvalidateKind(kind string) int {
	return c.store.InvalidatePrefix(kind + ":")
}

// InvalidateAll empties the market fact cache.
func (c *Client) InvalidateAll() int {
	n := 0
	for _, kind := range []string{"quote", "index", "history"} {
		n += c.store.InvalidatePrefix(kind + ":")
	}
	return n
}

// CacheStats exposes hit and eviction counters for the admin surface.
func (c *Client) CacheStats() cache.Stats {
	return c.store.Stats()
}
