package audit

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (s *recordingSink) Publish(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestPublisherSyncEmitFillsDefaults(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, slog.New(slog.DiscardHandler))

	p.Emit(context.Background(), Entry{Event: EventStep1Passed, UserID: 12345})

	entries, err := p.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestPublisherAsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	p := NewPublisher(store, slog.New(slog.DiscardHandler), WithAsyncBuffer(16))

	for range 5 {
		p.Emit(context.Background(), Entry{Event: EventVPNRejected})
	}
	p.Close()

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

// gatedStore blocks Append until released so a test can hold the worker
// mid-write and fill the buffer behind it.
type gatedStore struct {
	inner   *InMemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Append(ctx context.Context, entry Entry) error {
	s.entered <- struct{}{}
	<-s.release
	return s.inner.Append(ctx, entry)
}

func (s *gatedStore) List(ctx context.Context) ([]Entry, error) {
	return s.inner.List(ctx)
}

// warnCountHandler counts Warn-level records.
type warnCountHandler struct {
	mu    sync.Mutex
	warns int
}

func (h *warnCountHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *warnCountHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Level == slog.LevelWarn {
		h.mu.Lock()
		h.warns++
		h.mu.Unlock()
	}
	return nil
}

func (h *warnCountHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *warnCountHandler) WithGroup(string) slog.Handler { return h }

func (h *warnCountHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.warns
}

func TestPublisherAsyncWarnsOnFullBufferDrop(t *testing.T) {
	store := &gatedStore{
		inner:   NewInMemoryStore(),
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	logs := &warnCountHandler{}
	p := NewPublisher(store, slog.New(logs), WithAsyncBuffer(1))

	p.Emit(context.Background(), Entry{Event: EventStep1Passed})
	<-store.entered // worker is mid-write
	p.Emit(context.Background(), Entry{Event: EventStep1Passed}) // fills the buffer

	// A canceled request context must not silence the drop warning.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Emit(ctx, Entry{Event: EventVPNRejected})

	close(store.release)
	p.Close()

	entries, err := store.inner.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, 1, logs.count())
}

func TestPublisherFansOutToSinks(t *testing.T) {
	store := NewInMemoryStore()
	sink := &recordingSink{}
	p := NewPublisher(store, slog.New(slog.DiscardHandler), WithSink(sink))

	p.Emit(context.Background(), Entry{Event: EventStep1Passed})
	p.Emit(context.Background(), Entry{Event: EventCountryBlocked})

	assert.Equal(t, 2, sink.count())
}
