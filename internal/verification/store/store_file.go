package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"trialgate/internal/verification/models"
)

// recordsFileName is the canonical document holding the full user ID ->
// record mapping as a single JSON object.
const recordsFileName = "pending_verifications.json"

// FileStore persists verification records in a single JSON document with
// write-to-temp-then-rename replacement, so a reader never observes a
// partially written store even if the process dies mid-write.
//
// The mutex serializes every read-modify-write cycle within this process.
// It provides no cross-process coordination: if two processes share one data
// directory, the last successful rename wins with no merge. Deploy one
// writer process per data directory.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStore constructs a file-backed store rooted at dir. The backing file
// is created lazily on first write.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   filepath.Join(dir, recordsFileName),
		logger: logger,
	}
}

func (s *FileStore) Find(_ context.Context, userID int64) (*models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	record, ok := data[strconv.FormatInt(userID, 10)]
	if !ok {
		s.logger.Debug("verification record lookup miss", "user_id", userID, "path", s.path)
		return nil, ErrNotFound
	}
	s.logger.Debug("verification record lookup hit", "user_id", userID)
	return &record, nil
}

func (s *FileStore) Save(_ context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	data[strconv.FormatInt(record.UserID, 10)] = *record
	if err := s.replace(data); err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	s.logger.Debug("verification record saved", "user_id", record.UserID, "path", s.path)
	return nil
}

func (s *FileStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := s.load()
	key := strconv.FormatInt(userID, 10)
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	if err := s.replace(data); err != nil {
		return fmt.Errorf("clear verification record: %w", err)
	}
	s.logger.Debug("verification record cleared", "user_id", userID)
	return nil
}

// load reads the full mapping from disk. A missing file is an empty store; a
// corrupted one is logged and also treated as empty, favoring availability
// over surfacing corruption to the request path. Callers must hold s.mu.
func (s *FileStore) load() map[string]models.Record {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("verification store unreadable, treating as empty",
				"path", s.path,
				"error", err,
			)
		}
		return make(map[string]models.Record)
	}

	data := make(map[string]models.Record)
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Warn("verification store corrupted, treating as empty",
			"path", s.path,
			"error", err,
		)
		return make(map[string]models.Record)
	}
	return data
}

// replace writes the full mapping to a temp file in the same directory and
// renames it over the canonical path. Rename is atomic on POSIX filesystems
// when source and target share a directory, which is why the temp file is
// not created in os.TempDir. Callers must hold s.mu.
func (s *FileStore) replace(data map[string]models.Record) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write temp store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
