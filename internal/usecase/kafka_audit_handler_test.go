package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
)

type fakeStorage struct {
	mu      sync.Mutex
	batches [][]*models.AnalyticsEntry
	fail    bool
}

func (s *fakeStorage) Init(context.Context) error { return nil }

func (s *fakeStorage) StoreBatch(_ context.Context, entries []*models.AnalyticsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("storage down")
	}
	s.batches = append(s.batches, entries)
	return nil
}

func (s *fakeStorage) Health(context.Context) error { return nil }
func (s *fakeStorage) Close() error                 { return nil }

func TestKafkaAuditHandlerStoresEntry(t *testing.T) {
	store := &fakeStorage{}
	h := NewKafkaAuditHandler("audit.entries", store, nopMetrics{})

	in := models.AnalyticsEntry{
		ID:            "e1",
		Query:         "reliance price today",
		Timestamp:     time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		SymbolsFound:  []string{"RELIANCE"},
		FindingsCount: 0,
		CacheHit:      false,
		LatencyMs:     42,
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)

	require.NoError(t, h.Handle(context.Background(), b))
	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 1)
	got := store.batches[0][0]
	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, []string{"RELIANCE"}, got.SymbolsFound)
	assert.Equal(t, int64(42), got.LatencyMs)
}

func TestKafkaAuditHandlerDefaultsMissingTimestamp(t *testing.T) {
	store := &fakeStorage{}
	h := NewKafkaAuditHandler("audit.entries", store, nopMetrics{})

	require.NoError(t, h.Handle(context.Background(), []byte(`{"id":"e2","query":"q"}`)))
	require.Len(t, store.batches, 1)
	assert.False(t, store.batches[0][0].Timestamp.IsZero())
}

func TestKafkaAuditHandlerRejectsMalformedPayload(t *testing.T) {
	store := &fakeStorage{}
	h := NewKafkaAuditHandler("audit.entries", store, nopMetrics{})

	assert.Error(t, h.Handle(context.Background(), []byte("{not json")))
	assert.Empty(t, store.batches)
}

func TestKafkaAuditHandlerPropagatesStorageErrors(t *testing.T) {
	store := &fakeStorage{fail: true}
	h := NewKafkaAuditHandler("audit.entries", store, nopMetrics{})

	assert.Error(t, h.Handle(context.Background(), []byte(`{"id":"e3","query":"q"}`)))
}

func TestKafkaAuditHandlerTopic(t *testing.T) {
	h := NewKafkaAuditHandler("finsage.audit.entries", &fakeStorage{}, nopMetrics{})
	assert.Equal(t, "finsage.audit.entries", h.Topic())
}
