package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher captures trial-log entries. It is append-only and writes through
// the Store so tests can swap sinks. Optional secondary sinks (Kafka) get a
// best-effort copy of every entry and can never fail a request.
type Publisher struct {
	store   Store
	sinks   []Sink
	entries chan Entry
	wg      sync.WaitGroup
	logger  *slog.Logger
	async   bool
}

// Sink receives a best-effort copy of every published entry.
type Sink interface {
	Publish(entry Entry)
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Entries are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.entries = make(chan Entry, size)
			p.async = true
		}
	}
}

// WithSink attaches a secondary best-effort sink.
func WithSink(sink Sink) PublisherOption {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// NewPublisher builds a Publisher over the given store.
func NewPublisher(store Store, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEntries()
	}
	return p
}

// processEntries runs in a goroutine and persists entries from the channel.
func (p *Publisher) processEntries() {
	defer p.wg.Done()
	for entry := range p.entries {
		p.persist(entry)
	}
}

func (p *Publisher) persist(entry Entry) {
	if err := p.store.Append(context.Background(), entry); err != nil {
		if p.logger != nil {
			p.logger.Error("failed to persist trial log entry",
				"error", err,
				"event", entry.Event,
				"user_id", entry.UserID,
			)
		}
	}
	for _, sink := range p.sinks {
		sink.Publish(entry)
	}
}

// Close shuts down the async publisher and waits for pending entries to drain.
func (p *Publisher) Close() {
	if p.async && p.entries != nil {
		close(p.entries)
		p.wg.Wait()
	}
}

// Emit records an entry, filling ID and timestamp if unset. In async mode a
// full buffer drops the entry with a warning rather than blocking the
// request path.
func (p *Publisher) Emit(ctx context.Context, entry Entry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if p.async {
		select {
		case p.entries <- entry:
		default:
			if p.logger != nil {
				p.logger.Warn("trial log buffer full, entry dropped",
					"event", entry.Event,
					"user_id", entry.UserID,
				)
			}
		}
		return
	}
	p.persist(entry)
}

// List returns all persisted entries, oldest first.
func (p *Publisher) List(ctx context.Context) ([]Entry, error) {
	return p.store.List(ctx)
}
