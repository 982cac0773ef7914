package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinSage/internal/domain/models"
)

type captureSink struct {
	mu      sync.Mutex
	entries []*models.AnalyticsEntry
	failN   int
	closed  bool
}

func (s *captureSink) Publish(_ context.Context, e *models.AnalyticsEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("sink down")
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *captureSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type pipeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *pipeMetrics) RecordCacheHit(string)              {}
func (m *pipeMetrics) RecordCacheMiss(string)             {}
func (m *pipeMetrics) RecordCacheEviction(string)         {}
func (m *pipeMetrics) RecordSourceAttempt(_, _, _ string) {}
func (m *pipeMetrics) RecordContextLatency(float64)       {}
func (m *pipeMetrics) RecordFindings(string, int)         {}
func (m *pipeMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[kind]++
}

func (m *pipeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func entry(id string) *models.AnalyticsEntry {
	return &models.AnalyticsEntry{ID: id, Query: "what is the nifty level", Timestamp: time.Now()}
}

func TestAuditPipelineFlushesToSink(t *testing.T) {
	sink := &captureSink{}
	p := NewAuditPipeline(sink, &pipeMetrics{})
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), entry("a")))
	require.NoError(t, p.Publish(context.Background(), entry("b")))

	assert.Eventually(t, func() bool { return sink.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestAuditPipelinePublishNeverBlocks(t *testing.T) {
	sink := &captureSink{failN: 1 << 30} // sink permanently down
	m := &pipeMetrics{}
	p := NewAuditPipeline(sink, m, WithBufferSize(2))
	defer p.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			_ = p.Publish(context.Background(), entry("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full buffer")
	}
	assert.Greater(t, m.errorCount("audit_buffer_full"), 0)
}

func TestAuditPipelineRejectsInvalidEntries(t *testing.T) {
	sink := &captureSink{}
	m := &pipeMetrics{}
	p := NewAuditPipeline(sink, m)
	defer p.Close()

	assert.Error(t, p.Publish(context.Background(), nil))
	assert.Error(t, p.Publish(context.Background(), &models.AnalyticsEntry{Query: "q"}))
	assert.Error(t, p.Publish(context.Background(), &models.AnalyticsEntry{ID: "a"}))
	assert.Equal(t, 3, m.errorCount("audit_validate"))
}

func TestAuditPipelineRetriesAfterSinkRecovers(t *testing.T) {
	sink := &captureSink{failN: 1}
	p := NewAuditPipeline(sink, &pipeMetrics{})
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), entry("a")))

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 3*time.Second, 10*time.Millisecond)
}

func TestAuditPipelineCloseDrainsAndClosesSink(t *testing.T) {
	sink := &captureSink{}
	p := NewAuditPipeline(sink, &pipeMetrics{})

	require.NoError(t, p.Publish(context.Background(), entry("a")))
	require.NoError(t, p.Close())

	assert.True(t, sink.closed)
	assert.Equal(t, 1, sink.count())
}
