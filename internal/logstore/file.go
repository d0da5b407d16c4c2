package logstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lights-api/internal/domain"
)

// MaxEntries caps the stored log. Older entries fall off the end.
const MaxEntries = 1000

// FileStore implements domain.ActivityLog as a single JSON array file,
// newest entry first, rewritten in full on every append. Two concurrent
// appends race read-modify-write and the second write wins; the store is
// meant for a single low-traffic instance.
type FileStore struct {
	path   string
	logger domain.Logger
}

// NewFileStore builds a store backed by the JSON document at path. The
// file and its parent directory are created lazily on first append.
func NewFileStore(path string, logger domain.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Append inserts entry at the front and truncates to MaxEntries.
func (s *FileStore) Append(ctx context.Context, entry domain.LogEntry) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	logs := s.load()

	logs = append([]domain.LogEntry{entry}, logs...)
	if len(logs) > MaxEntries {
		logs = logs[:MaxEntries]
	}

	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal activity log: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write activity log: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Activity log entry appended", map[string]interface{}{
			"visitor": entry.Visitor,
			"total":   len(logs),
		})
	}

	return nil
}

// Recent returns up to n newest entries plus the total stored count.
// A missing or unreadable file reads as an empty log.
func (s *FileStore) Recent(ctx context.Context, n int) ([]domain.LogEntry, int, error) {
	logs := s.load()

	total := len(logs)
	if n < len(logs) {
		logs = logs[:n]
	}

	return logs, total, nil
}

// load reads the full stored sequence, degrading to empty on any read or
// parse failure. A corrupt log never fails a request.
func (s *FileStore) load() []domain.LogEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return []domain.LogEntry{}
	}

	var logs []domain.LogEntry
	if err := json.Unmarshal(data, &logs); err != nil {
		if s.logger != nil {
			s.logger.Warn("Activity log unreadable, treating as empty", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return []domain.LogEntry{}
	}

	return logs
}

func (s *FileStore) ensureDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	return nil
}
