package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/config"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/lepinkainen/gameaugment/internal/fileutil"
)

// JSONStore keeps the whole cache in memory and rewrites the backing file on
// every Put.
type JSONStore struct {
	mu      sync.Mutex
	path    string
	entries map[string]catalog.Bundle
	lock    *flock.Flock
}

// OpenJSON loads the cache file at path. A missing file is an empty cache;
// an unreadable one is moved aside to <path>.corrupt and also starts empty.
func OpenJSON(path string) (*JSONStore, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	s := &JSONStore{
		path:    path,
		entries: make(map[string]catalog.Bundle),
		lock:    lock,
	}

	if err := s.load(); err != nil {
		if !apperrors.IsCacheCorruptionError(err) {
			return nil, errors.Join(err, lock.Unlock())
		}
		slog.Warn("Cache file unreadable, starting with an empty cache", "path", path, "error", err)
		s.entries = make(map[string]catalog.Bundle)
		moveAside(path)
	}

	slog.Debug("Cache loaded", "backend", config.BackendJSON, "path", path, "entries", len(s.entries))
	return s, nil
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.NewCacheCorruptionError(s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return apperrors.NewCacheCorruptionError(s.path, err)
	}

	for key, value := range raw {
		var b catalog.Bundle
		if err := json.Unmarshal(value, &b); err != nil {
			slog.Warn("Skipping unreadable cache entry", "key", key, "error", err)
			continue
		}
		s.entries[catalog.NormalizeKey(key)] = b
	}
	return nil
}

// Get returns the cached bundle for key.
func (s *JSONStore) Get(key string) (catalog.Bundle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.entries[catalog.NormalizeKey(key)]
	return b, ok
}

// Put stores the bundle and rewrites the cache file before returning.
func (s *JSONStore) Put(key string, bundle catalog.Bundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[catalog.NormalizeKey(key)] = bundle.Normalize()
	return s.flush()
}

// Len returns the number of cached entries.
func (s *JSONStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes every entry and writes an empty cache file.
func (s *JSONStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]catalog.Bundle)
	return s.flush()
}

// Backend returns config.BackendJSON.
func (s *JSONStore) Backend() string { return config.BackendJSON }

// Path returns the cache file path.
func (s *JSONStore) Path() string { return s.path }

// Close releases the cache lock.
func (s *JSONStore) Close() error {
	return s.lock.Unlock()
}

// flush writes all entries, keys sorted, so unchanged caches stay byte-identical.
func (s *JSONStore) flush() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.entries); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// moveAside keeps an unreadable cache file for inspection instead of
// silently overwriting it on the next Put.
func moveAside(path string) {
	dest := path + ".corrupt"
	if err := os.Rename(path, dest); err != nil {
		slog.Warn("Could not move unreadable cache aside", "path", path, "error", err)
		return
	}
	slog.Info("Moved unreadable cache aside", "from", path, "to", dest)
}
