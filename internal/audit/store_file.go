package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// trialLogFileName holds the append-only trial log as a single JSON array.
const trialLogFileName = "trial_users.json"

// FileStore appends trial-log entries with the same read-all,
// write-temp-then-rename discipline as the verification store, under its own
// in-process lock. Same deployment constraint: one writer process per file.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewFileStore constructs a file-backed trial log rooted at dir.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   filepath.Join(dir, trialLogFileName),
		logger: logger,
	}
}

func (s *FileStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entries = append(entries, entry)

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trial log: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("write temp trial log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace trial log: %w", err)
	}
	s.logger.Debug("trial log entry appended", "event", entry.Event, "user_id", entry.UserID)
	return nil
}

func (s *FileStore) List(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// load reads the full log. Missing or corrupted files are treated as an
// empty log, logged, never an error. Callers must hold s.mu.
func (s *FileStore) load() []Entry {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("trial log unreadable, treating as empty", "path", s.path, "error", err)
		}
		return []Entry{}
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn("trial log corrupted, treating as empty", "path", s.path, "error", err)
		return []Entry{}
	}
	return entries
}
