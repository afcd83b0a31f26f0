package store

import (
	"context"
	"fmt"

	"trialgate/internal/verification/models"
	"trialgate/pkg/platform/sentinel"
)

// ErrNotFound is returned when no record exists for a user ID.
var ErrNotFound = fmt.Errorf("verification record not found: %w", sentinel.ErrNotFound)

// Error Contract:
// All store methods follow this error pattern:
// - Find returns ErrNotFound when no record exists for the user ID
// - Return nil for successful operations
// - Return wrapped errors with context for infrastructure failures (disk, DB)
//
// A corrupted or unreadable backing store is NOT an infrastructure failure
// for reads: implementations treat it as an empty store and log it, so the
// gate stays available after a bad deploy or partial disk restore.
type Store interface {
	Find(ctx context.Context, userID int64) (*models.Record, error)
	Save(ctx context.Context, record *models.Record) error
	Clear(ctx context.Context, userID int64) error
}
