package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreRoundTrip(t *testing.T) {
	s := NewInMemoryStore()

	want := record(12345, "Alice")
	require.NoError(t, s.Save(context.Background(), want))

	got, err := s.Find(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInMemoryStoreNotFound(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Find(context.Background(), 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreClear(t *testing.T) {
	s := NewInMemoryStore()

	require.NoError(t, s.Save(context.Background(), record(12345, "Alice")))
	require.NoError(t, s.Clear(context.Background(), 12345))

	_, err := s.Find(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrNotFound)

	// Clearing an absent record stays a no-op.
	require.NoError(t, s.Clear(context.Background(), 12345))
}

func TestInMemoryStoreReturnsCopy(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Save(context.Background(), record(12345, "Alice")))

	got, err := s.Find(context.Background(), 12345)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Find(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Name)
}
