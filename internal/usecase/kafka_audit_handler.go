package usecase

import (
	"context"
	"encoding/json"
	"time"

	"FinSage/internal/domain/models"
	domrepo "FinSage/internal/domain/repository"
	pkgkafka "FinSage/pkg/kafka"
)

// KafkaAuditHandler consumes audit entries off Kafka and writes them to
// storage. One entry per message; the consumer's worker pool provides
// the concurrency.
type KafkaAuditHandler struct {
	topic   string
	storage domrepo.AuditStorage
	metrics domrepo.Metrics
}

func NewKafkaAuditHandler(topic string, storage domrepo.AuditStorage, metrics domrepo.Metrics) *KafkaAuditHandler {
	return &KafkaAuditHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaAuditHandler) Topic() string { return h.topic }

func (h *KafkaAuditHandler) Handle(ctx context.Context, b []byte) error {
	var e models.AnalyticsEntry
	if err := json.Unmarshal(b, &e); err != nil {
		h.metrics.RecordError("audit_unmarshal")
		return err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	if err := h.storage.StoreBatch(ctx, []*models.AnalyticsEntry{&e}); err != nil {
		h.metrics.RecordError("audit_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaAuditHandler)(nil)
