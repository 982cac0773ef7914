package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"FinSage/internal/domain/models"
	"FinSage/internal/domain/repository"
)

// ClickHouseAuditStorage batch-inserts analytics entries for offline
// analysis of query traffic.
type ClickHouseAuditStorage struct {
	db    *sql.DB
	table string
}

func NewClickHouseAuditStorage(db *sql.DB, table string) repository.AuditStorage {
	if table == "" {
		table = "audit_entries"
	}
	return &ClickHouseAuditStorage{db: db, table: table}
}

func (s *ClickHouseAuditStorage) Init(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id String,
		query String,
		ts DateTime64(3),
		symbols Array(String),
		findings_count UInt32,
		cache_hit UInt8,
		latency_ms Int64
	) ENGINE = MergeTree() ORDER BY (ts, id)`, s.table)
	_, err := s.db.ExecContext(ctx, q)
	return err
}

func (s *ClickHouseAuditStorage) StoreBatch(ctx context.Context, entries []*models.AnalyticsEntry) error {
	if len(entries) == 0 {
		return nil
	}

	values := make([]string, 0, len(entries))
	args := make([]interface{}, 0, len(entries)*7)
	for _, e := range entries {
		if e == nil || e.ID == "" {
			continue
		}
		cacheHit := uint8(0)
		if e.CacheHit {
			cacheHit = 1
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.ID,
			e.Query,
			e.Timestamp,
			e.SymbolsFound,
			uint32(e.FindingsCount),
			cacheHit,
			e.LatencyMs,
		)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf("INSERT INTO %s (id, query, ts, symbols, findings_count, cache_hit, latency_ms) VALUES %s",
		s.table, strings.Join(values, ","))
	_, err := s.db.ExecContext(ctx, q, args...)
	return err
}

func (s *ClickHouseAuditStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAuditStorage) Close() error {
	return nil // connection owned by pkg/clickhouse
}
