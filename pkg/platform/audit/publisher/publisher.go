// Package publisher emits audit events to a store, optionally through an
// async buffer so hot paths never block on audit persistence.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	id "veriterra/pkg/domain"
	"veriterra/pkg/platform/audit"
)

// Publisher writes audit events to a store. In sync mode Emit persists
// inline; with an async buffer events are drained by a background goroutine
// and Close flushes what remains.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	wg    sync.WaitGroup
	once  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
// When the buffer is full events are dropped rather than blocking callers.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger attaches a logger for drop and persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher backed by the given store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an audit event, stamping the timestamp if unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		// Audit must never block verdict computation. A full buffer drops
		// the event and logs the loss.
		if p.logger != nil {
			p.logger.Warn("audit buffer full, event dropped",
				"action", event.Action,
				"project_id", event.ProjectID,
			)
		}
	}
	return nil
}

// List returns the audit trail for a project.
func (p *Publisher) List(ctx context.Context, projectID id.ProjectID) ([]audit.Event, error) {
	return p.store.ListByProject(ctx, projectID)
}

// Close stops the async drainer, flushing buffered events first.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("audit append failed",
				"action", event.Action,
				"project_id", event.ProjectID,
				"error", err,
			)
		}
	}
}
