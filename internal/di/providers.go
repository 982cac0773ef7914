package di

import (
	"context"
	"fmt"
	"time"

	"FinSage/internal/domain/repository"
	"FinSage/internal/middleware"
	internalrepo "FinSage/internal/repository"
	"FinSage/internal/service/cache"
	"FinSage/internal/service/compliance"
	"FinSage/internal/service/embeddings"
	"FinSage/internal/service/lexicon"
	"FinSage/internal/service/marketdata"
	"FinSage/internal/service/ratelimit"
	"FinSage/internal/service/retrieval"
	"FinSage/internal/usecase"
	pkgcache "FinSage/pkg/cache"
	pkgch "FinSage/pkg/clickhouse"
	"FinSage/pkg/config"
	pkgkafka "FinSage/pkg/kafka"
	"FinSage/pkg/logger"
	"FinSage/pkg/metrics"
	"FinSage/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	// Aggregate warn/error logs for the admin logs endpoint.
	l.AddCollector(&logger.CollectionConfig{
		TimeInterval:   10 * time.Minute,
		CountThreshold: 256,
	})
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCacheStore creates the market data TTL cache.
func ProvideCacheStore(cfg *config.Config, m repository.Metrics) *cache.Store {
	return cache.NewStore(
		cache.WithMaxEntries(cfg.Cache.MaxEntries),
		cache.WithSweepInterval(cfg.Cache.SweepInterval),
		cache.WithObserver(m),
	)
}

// ProvideCalendar creates the exchange session calendar.
func ProvideCalendar(cfg *config.Config) *marketdata.Calendar {
	return marketdata.NewCalendar(cfg.Market.Holidays)
}

// ProvideRateLimiter creates a shared per-source token bucket limiter.
func ProvideRateLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideStream creates the WebSocket stream source, or nil when disabled.
func ProvideStream(cfg *config.Config, cal *marketdata.Calendar, log *logger.Logger) *marketdata.Stream {
	if !cfg.Market.Stream.Enabled {
		return nil
	}
	return marketdata.NewStream(marketdata.StreamConfig{
		APIKey:         cfg.Market.Stream.APIKey,
		WebSocketURL:   cfg.Market.Stream.WebSocketURL,
		Symbols:        cfg.Market.Stream.Symbols,
		ReconnectDelay: cfg.Market.Stream.ReconnectDelay,
		PingInterval:   cfg.Market.Stream.PingInterval,
		MaxTradeAge:    cfg.Market.Stream.MaxTradeAge,
	}, cal, log)
}

// ProvideSources assembles the enabled market data sources.
func ProvideSources(cfg *config.Config, limiter *ratelimit.Limiter, cal *marketdata.Calendar, stream *marketdata.Stream) []repository.Source {
	var sources []repository.Source
	if cfg.Market.Yahoo.Enabled {
		sources = append(sources, marketdata.NewYahoo(marketdata.YahooConfig{
			BaseURL:      cfg.Market.Yahoo.BaseURL,
			SymbolSuffix: cfg.Market.Yahoo.Suffix,
			Timeout:      cfg.Market.AdapterTimeout,
			RateCapacity: cfg.Market.Yahoo.Capacity,
			RateRefill:   cfg.Market.Yahoo.Refill,
		}, limiter, cal))
	}
	if cfg.Market.NSE.Enabled {
		sources = append(sources, marketdata.NewNSE(marketdata.NSEConfig{
			BaseURL:      cfg.Market.NSE.BaseURL,
			Timeout:      cfg.Market.AdapterTimeout,
			RateCapacity: cfg.Market.NSE.Capacity,
			RateRefill:   cfg.Market.NSE.Refill,
		}, limiter, cal))
	}
	if stream != nil {
		sources = append(sources, stream)
	}
	return sources
}

// ProvideMarketClient creates the fan-out market data client.
func ProvideMarketClient(
	cfg *config.Config,
	sources []repository.Source,
	store *cache.Store,
	cal *marketdata.Calendar,
	m repository.Metrics,
	log *logger.Logger,
) *marketdata.Client {
	return marketdata.NewClient(marketdata.ClientConfig{
		AdapterTimeout: cfg.Market.AdapterTimeout,
		Priority:       cfg.Market.Priority,
		StaleQuoteMax:  cfg.Market.StaleQuoteMax,
		QuoteTTL:       cfg.Cache.TTL.Quote,
		IndexTTL:       cfg.Cache.TTL.Index,
		HistoryTTL:     cfg.Cache.TTL.History,
		ServeStale:     cfg.Cache.ServeStale,
	}, sources, store, cal, m, log)
}

// ProvideLexicon loads the symbol lexicon, falling back to the built-in
// table when no override path is configured.
func ProvideLexicon(cfg *config.Config) (*lexicon.Lexicon, error) {
	lex, err := lexicon.Load(cfg.Lexicon.Path, cfg.Lexicon.Denylist)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	return lex, nil
}

// ProvideEmbedder creates the embedding provider.
func ProvideEmbedder(cfg *config.Config, log *logger.Logger) embeddings.Provider {
	return embeddings.New(embeddings.Config{
		Model:    cfg.Retrieval.Embeddings.Model,
		CacheDir: cfg.Retrieval.Embeddings.CacheDir,
	}, log)
}

// ProvideIndex creates the hybrid retrieval index and installs the initial
// snapshot when a corpus path is configured.
func ProvideIndex(cfg *config.Config, embedder embeddings.Provider, log *logger.Logger) (*retrieval.Index, error) {
	idx := retrieval.NewIndex(retrieval.Config{
		K:                cfg.Retrieval.K,
		LexicalWeight:    cfg.Retrieval.LexicalWeight,
		SemanticWeight:   cfg.Retrieval.SemanticWeight,
		MMRLambda:        cfg.Retrieval.MMRLambda,
		MMRSimilarityMax: cfg.Retrieval.MMRSimilarityMax,
		CandidateFactor:  cfg.Retrieval.CandidateFactor,
	}, embedder, log)

	if cfg.Retrieval.ChunksPath != "" {
		chunks, err := retrieval.LoadChunks(cfg.Retrieval.ChunksPath)
		if err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := idx.InstallSnapshot(ctx, chunks); err != nil {
			return nil, fmt.Errorf("install snapshot: %w", err)
		}
	}
	return idx, nil
}

// ProvideComplianceEngine creates the rule engine from the configured
// pattern and broker registry files.
func ProvideComplianceEngine(cfg *config.Config) (*compliance.Engine, error) {
	eng, err := compliance.NewEngine(cfg.Compliance.PatternsPath, cfg.Compliance.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("compliance engine: %w", err)
	}
	return eng, nil
}

// ProvideContextCache creates the assembled-context cache. With Redis
// enabled it is layered (memory in front of Redis), otherwise in-process.
func ProvideContextCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Cache.Redis.Host),
		pkgcache.WithRedisPort(cfg.Cache.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
		pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideKafkaProducer creates the audit Kafka producer, or nil when the
// audit pipeline is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Audit.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Audit.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Audit.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Audit.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Audit.Kafka.WriteTimeout, cfg.Audit.Kafka.ReadTimeout),
		pkgkafka.WithAsync(cfg.Audit.Kafka.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideAuditPublisher selects the audit sink (Kafka when the pipeline is
// enabled, the structured log otherwise) and wraps it in the buffered async
// pipeline so publishing never blocks a query.
func ProvideAuditPublisher(cfg *config.Config, producer *pkgkafka.Producer, m repository.Metrics, log *logger.Logger) repository.AuditPublisher {
	var sink repository.AuditPublisher
	if producer == nil {
		sink = internalrepo.NewLogAuditPublisher(log)
	} else {
		sink = internalrepo.NewKafkaAuditPublisher(producer, cfg.Audit.Kafka.Topic)
	}
	return middleware.NewAuditPipeline(sink, m)
}

// ProvideClickHouseClient creates the audit warehouse client, or nil when
// ClickHouse persistence is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Audit.Enabled || !cfg.Audit.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Audit.ClickHouse.Host),
		pkgch.WithPort(cfg.Audit.ClickHouse.Port),
		pkgch.WithDatabase(cfg.Audit.ClickHouse.Database),
		pkgch.WithCredentials(cfg.Audit.ClickHouse.User, cfg.Audit.ClickHouse.Password),
		pkgch.WithTimeouts(cfg.Audit.ClickHouse.DialTimeout, cfg.Audit.ClickHouse.ReadTimeout, cfg.Audit.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideAuditStorage creates the ClickHouse audit store and runs its schema
// migration. Nil when ClickHouse persistence is disabled.
func ProvideAuditStorage(cfg *config.Config, chClient *pkgch.Client) (repository.AuditStorage, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseAuditStorage(chClient.DB(), cfg.Audit.ClickHouse.Database+".audit_entries")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return store, nil
}

// ProvideKafkaConsumer creates the audit consumer, or nil when the consumer
// side of the pipeline is disabled.
func ProvideKafkaConsumer(cfg *config.Config, storage repository.AuditStorage) (*pkgkafka.Consumer, error) {
	if !cfg.Audit.Enabled || !cfg.Audit.Kafka.Consumer.Enabled || storage == nil {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Audit.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Audit.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Audit.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Audit.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Audit.Kafka.Consumer.RetryMax, cfg.Audit.Kafka.Consumer.BackoffMin, cfg.Audit.Kafka.Consumer.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaAuditHandler registers the handler for the audit topic.
func ProvideKafkaAuditHandler(cfg *config.Config, storage repository.AuditStorage, m repository.Metrics) *usecase.KafkaAuditHandler {
	if storage == nil {
		return nil
	}
	return usecase.NewKafkaAuditHandler(cfg.Audit.Kafka.Topic, storage, m)
}

// ProvideOrchestrator creates the context assembly use case.
func ProvideOrchestrator(
	cfg *config.Config,
	market *marketdata.Client,
	lex *lexicon.Lexicon,
	index *retrieval.Index,
	engine *compliance.Engine,
	ctxCache pkgcache.Service,
	audit repository.AuditPublisher,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(usecase.OrchestratorConfig{
		Deadline:   cfg.Orchestrator.Deadline,
		ContextTTL: cfg.Orchestrator.ContextTTL,
	}, market, lex, index, engine, ctxCache, audit, m, log)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	orch *usecase.Orchestrator,
	market *marketdata.Client,
	engine *compliance.Engine,
	index *retrieval.Index,
	store *cache.Store,
	stream *marketdata.Stream,
	audit repository.AuditPublisher,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaAuditHandler,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, orch, market, engine, index, store, stream, audit, consumer, kh, chClient)
}
