package repository

import (
	"context"

	"FinSage/internal/domain/models"
)

// Source is a single upstream market data provider. Implementations
// normalize responses into models.MarketFact and never touch the cache;
// caching is owned by the fan-out client.
type Source interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (*models.MarketFact, error)
	FetchIndex(ctx context.Context, indexID string) (*models.MarketFact, error)
	FetchHistory(ctx context.Context, symbol string, rng models.HistoryRange, interval string) (*models.MarketFact, error)
}

// AuditPublisher appends analytics entries to the audit log transport.
type AuditPublisher interface {
	Publish(ctx context.Context, e *models.AnalyticsEntry) error
	Close() error
}

// AuditStorage persists analytics entries for offline analysis.
type AuditStorage interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, entries []*models.AnalyticsEntry) error
	Health(ctx context.Context) error
	Close() error
}

// Metrics records operational metrics without binding the domain to a
// specific metrics backend.
type Metrics interface {
	RecordCacheHit(category string)
	RecordCacheMiss(category string)
	RecordCacheEviction(reason string)
	RecordSourceAttempt(source, kind, outcome string)
	RecordContextLatency(seconds float64)
	RecordFindings(severity string, n int)
	RecordError(kind string)
}
