package store

import (
	"context"
	"sync"

	"trialgate/internal/verification/models"
)

// InMemoryStore keeps verification records in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[int64]models.Record
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[int64]models.Record)}
}

func (s *InMemoryStore) Find(_ context.Context, userID int64) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[userID]; ok {
		return &record, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = *record
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
