package repository

import (
	"context"

	"FinSage/internal/domain/models"
	"FinSage/internal/domain/repository"
	pkgkafka "FinSage/pkg/kafka"
	"FinSage/pkg/logger"
)

// KafkaAuditPublisher appends analytics entries to a Kafka topic, keyed
// by entry id so replays land on the same partition.
type KafkaAuditPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaAuditPublisher(producer *pkgkafka.Producer, topic string) repository.AuditPublisher {
	return &KafkaAuditPublisher{producer: producer, topic: topic}
}

func (p *KafkaAuditPublisher) Publish(ctx context.Context, e *models.AnalyticsEntry) error {
	return p.producer.Publish(ctx, p.topic, []byte(e.ID), e)
}

func (p *KafkaAuditPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// LogAuditPublisher is the sink used when the Kafka pipeline is
// disabled: entries go to the structured log and nowhere else.
type LogAuditPublisher struct {
	log *logger.Logger
}

func NewLogAuditPublisher(log *logger.Logger) repository.AuditPublisher {
	return &LogAuditPublisher{log: log}
}

func (p *LogAuditPublisher) Publish(_ context.Context, e *models.AnalyticsEntry) error {
	p.log.Info("audit entry",
		logger.String("id", e.ID),
		logger.String("query", e.Query),
		logger.Strings("symbols", e.SymbolsFound),
		logger.Int("findings", e.FindingsCount),
		logger.Bool("cache_hit", e.CacheHit),
		logger.Int64("latency_ms", e.LatencyMs))
	return nil
}

func (p *LogAuditPublisher) Close() error { return nil }
