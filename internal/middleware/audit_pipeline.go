package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FinSage/internal/domain/models"
	domrepo "FinSage/internal/domain/repository"
)

// AuditPipeline sits between the orchestrator and the audit sink. It
// validates entries, buffers them in a bounded channel, and flushes to the
// sink from a background worker so publishing never blocks a request.
// When the buffer is full the entry is dropped and counted; audit loss is
// preferable to backpressure on the query path.
type AuditPipeline struct {
	sink    domrepo.AuditPublisher
	metrics domrepo.Metrics

	bufCh  chan *models.AnalyticsEntry
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	started bool
}

type PipelineOption func(*AuditPipeline)

// WithBufferSize sets how many entries may wait for the sink.
func WithBufferSize(n int) PipelineOption {
	return func(p *AuditPipeline) {
		if n > 0 {
			p.bufCh = make(chan *models.AnalyticsEntry, n)
		}
	}
}

// NewAuditPipeline wraps sink with a buffered async pipeline and starts
// its flush worker.
func NewAuditPipeline(sink domrepo.AuditPublisher, metrics domrepo.Metrics, opts ...PipelineOption) *AuditPipeline {
	p := &AuditPipeline{
		sink:    sink,
		metrics: metrics,
		bufCh:   make(chan *models.AnalyticsEntry, 1000),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.start()
	return p
}

func (p *AuditPipeline) start() {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				p.drain()
				return
			case e := <-p.bufCh:
				if e == nil {
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := p.sink.Publish(ctx, e)
				cancel()
				if err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("audit_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- e:
					default:
						p.metrics.RecordError("audit_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// drain makes one best-effort pass over whatever is still buffered.
func (p *AuditPipeline) drain() {
	for {
		select {
		case e := <-p.bufCh:
			if e == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := p.sink.Publish(ctx, e); err != nil {
				p.metrics.RecordError("audit_drop")
			}
			cancel()
		default:
			return
		}
	}
}

// Publish validates and enqueues an entry. It never blocks: a full buffer
// drops the entry and records the loss.
func (p *AuditPipeline) Publish(_ context.Context, e *models.AnalyticsEntry) error {
	if err := validateEntry(e); err != nil {
		p.metrics.RecordError("audit_validate")
		return err
	}
	select {
	case p.bufCh <- e:
		return nil
	default:
		p.metrics.RecordError("audit_buffer_full")
		return nil
	}
}

// Close stops the flush worker, drains the buffer, and closes the sink.
func (p *AuditPipeline) Close() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return p.sink.Close()
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopCh)
	select {
	case <-p.doneCh:
	case <-time.After(5 * time.Second):
	}
	return p.sink.Close()
}

func validateEntry(e *models.AnalyticsEntry) error {
	if e == nil {
		return fmt.Errorf("entry nil")
	}
	if e.ID == "" {
		return fmt.Errorf("entry id empty")
	}
	if e.Query == "" {
		return fmt.Errorf("entry query empty")
	}
	return nil
}
