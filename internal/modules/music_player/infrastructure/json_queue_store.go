package infrastructure

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

	"github.com/disgoorg/snowflake/v2"

	"github.com/sglre6355/musicbot/internal/modules/music_player/domain"
)

// queueFile is the whole on-disk document: guild id -> ordered entries.
type queueFile map[string][]storedEntry

// JSONQueueStore persists every guild's queue in one pretty-printed JSON file.
// Each mutation is a read-modify-write of the whole file, serialized by a mutex
// and written atomically. A missing or corrupt file reads as empty.
type JSONQueueStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONQueueStore creates a store backed by path. The file and its directory
// are created on the first write.
func NewJSONQueueStore(path string) *JSONQueueStore {
	return &JSONQueueStore{path: path}
}

// Path returns the backing file path.
func (s *JSONQueueStore) Path() string {
	return s.path
}

func (s *JSONQueueStore) Get(_ context.Context, guildID snowflake.ID) []domain.QueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	return toDomainEntries(s.read()[guildID.String()])
}

func (s *JSONQueueStore) Len(_ context.Context, guildID snowflake.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.read()[guildID.String()])
}

func (s *JSONQueueStore) Append(_ context.Context, guildID snowflake.ID, entry domain.QueueEntry) error {
	return s.update(guildID, func(entries []storedEntry) ([]storedEntry, bool) {
		return append(entries, toStoredEntry(entry)), true
	})
}

func (s *JSONQueueStore) RemoveAt(_ context.Context, guildID snowflake.ID, index int) (bool, error) {
	removed := false
	err := s.update(guildID, func(entries []storedEntry) ([]storedEntry, bool) {
		if index < 1 || index > len(entries) {
			return entries, false
		}
		removed = true
		return append(entries[:index-1], entries[index:]...), true
	})
	return removed, err
}

func (s *JSONQueueStore) Truncate(_ context.Context, guildID snowflake.ID, keep int) error {
	return s.update(guildID, func(entries []storedEntry) ([]storedEntry, bool) {
		keep = max(keep, 0)
		if keep >= len(entries) {
			return entries, false
		}
		return entries[:keep], true
	})
}

func (s *JSONQueueStore) Clear(ctx context.Context, guildID snowflake.ID) error {
	return s.Truncate(ctx, guildID, 0)
}

func (s *JSONQueueStore) PopFront(_ context.Context, guildID snowflake.ID) (*domain.QueueEntry, error) {
	var head *domain.QueueEntry
	err := s.update(guildID, func(entries []storedEntry) ([]storedEntry, bool) {
		if len(entries) == 0 {
			return entries, false
		}
		entry := entries[0].toDomain()
		head = &entry
		return entries[1:], true
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// update applies fn to the guild's entries and writes the file back if fn reports a change.
// Empty guild queues are dropped from the document.
func (s *JSONQueueStore) update(
	guildID snowflake.ID,
	fn func([]storedEntry) ([]storedEntry, bool),
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	key := guildID.String()

	entries, changed := fn(doc[key])
	if !changed {
		return nil
	}
	if len(entries) == 0 {
		delete(doc, key)
	} else {
		doc[key] = entries
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode queue file: %w", err)
	}
	if err := s.writeFileAtomic(data); err != nil {
		return fmt.Errorf("failed to save queue file: %w", err)
	}
	return nil
}

// read loads the document. Callers must hold s.mu.
func (s *JSONQueueStore) read() queueFile {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read queue file", "path", s.path, "error", err)
		}
		return queueFile{}
	}

	var doc queueFile
	if err := json.Unmarshal(data, &doc); err != nil || doc == nil {
		slog.Warn("queue file is corrupt, treating as empty", "path", s.path, "error", err)
		return queueFile{}
	}
	return doc
}

// writeFileAtomic writes to a temp file in the same directory, syncs it and renames it over the target.
func (s *JSONQueueStore) writeFileAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Ensure JSONQueueStore implements domain.QueueRepository.
var _ domain.QueueRepository = (*JSONQueueStore)(nil)
