// Package cache persists attribute bundles keyed by normalized game name so
// repeated runs skip provider calls. Every backend is write-through: Put
// returns only after the entry is durable.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/config"
)

// ErrLocked is returned when another process holds the cache.
var ErrLocked = errors.New("cache is in use by another process")

// Store is a durable name → bundle mapping.
type Store interface {
	// Get returns the cached bundle for key.
	Get(key string) (catalog.Bundle, bool)
	// Put stores bundle under key and flushes it before returning.
	Put(key string, bundle catalog.Bundle) error
	// Len returns the number of cached entries.
	Len() int
	// Clear removes every entry.
	Clear() error
	// Backend names the storage implementation.
	Backend() string
	// Path is the backing file.
	Path() string
	Close() error
}

// Open opens the cache at path with the named backend. An empty backend
// means JSON.
func Open(backend, path string) (Store, error) {
	backend = strings.ToLower(backend)
	if backend == "" {
		backend = config.BackendJSON
	}
	if err := config.CheckBackend(backend); err != nil {
		return nil, err
	}
	if backend == config.BackendSQLite {
		return OpenSQLite(path)
	}
	return OpenJSON(path)
}

// acquireLock takes an exclusive advisory lock next to the cache file. Only
// one process may hold a cache open.
func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return lock, nil
}
