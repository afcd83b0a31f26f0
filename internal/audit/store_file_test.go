package audit

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(event string, userID int64) Entry {
	return Entry{
		ID:        "test-id",
		Event:     event,
		UserID:    userID,
		IP:        "203.0.113.7",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileStoreAppendPreservesOrder(t *testing.T) {
	s := NewFileStore(t.TempDir(), slog.New(slog.DiscardHandler))

	require.NoError(t, s.Append(context.Background(), testEntry(EventStep1Passed, 1)))
	require.NoError(t, s.Append(context.Background(), testEntry(EventVPNRejected, 2)))
	require.NoError(t, s.Append(context.Background(), testEntry(EventCountryBlocked, 3)))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, EventStep1Passed, entries[0].Event)
	assert.Equal(t, EventVPNRejected, entries[1].Event)
	assert.Equal(t, EventCountryBlocked, entries[2].Event)
}

func TestFileStoreEmptyLog(t *testing.T) {
	s := NewFileStore(t.TempDir(), slog.New(slog.DiscardHandler))

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStoreCorruptedLogTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, trialLogFileName), []byte("garbage"), 0o600))

	s := NewFileStore(dir, slog.New(slog.DiscardHandler))
	entries, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Appending recovers the log.
	require.NoError(t, s.Append(context.Background(), testEntry(EventStep1Passed, 1)))
	entries, err = s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, s.Append(context.Background(), testEntry(EventStep1Passed, 42)))

	reopened := NewFileStore(dir, slog.New(slog.DiscardHandler))
	entries, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(42), entries[0].UserID)
}
