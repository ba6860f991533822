package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gofrs/flock"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/config"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps cache entries in a SQLite table. Each Put is its own
// committed statement, which makes it durable on return.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
	lock *flock.Flock
}

// OpenSQLite opens (or creates) the cache database at path. A database that
// cannot be initialised is moved aside to <path>.corrupt and recreated.
func OpenSQLite(path string) (*SQLiteStore, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	db, err := openCacheDB(path)
	if err != nil {
		slog.Warn("Cache database unreadable, starting with an empty cache", "path", path, "error", err)
		moveAside(path)
		db, err = openCacheDB(path)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to open cache database: %w", err), lock.Unlock())
		}
	}

	s := &SQLiteStore{db: db, path: path, lock: lock}
	slog.Debug("Cache loaded", "backend", config.BackendSQLite, "path", path, "entries", s.Len())
	return s, nil
}

func openCacheDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// Single writer; one connection keeps statements strictly ordered.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), db.Close())
	}
	if _, err := db.Exec(GameCacheSchema); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), db.Close())
	}
	return db, nil
}

// Get returns the cached bundle for key. Rows that fail to decode are
// treated as misses.
func (s *SQLiteStore) Get(key string) (catalog.Bundle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT data FROM game_cache WHERE cache_key = ?`, catalog.NormalizeKey(key)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Bundle{}, false
	}
	if err != nil {
		slog.Warn("Failed to query cache", "key", key, "error", err)
		return catalog.Bundle{}, false
	}

	var b catalog.Bundle
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		slog.Warn("Failed to unmarshal cached data, will refetch", "key", key, "error", err)
		return catalog.Bundle{}, false
	}
	return b, true
}

// Put stores the bundle, replacing any previous entry for key.
func (s *SQLiteStore) Put(key string, bundle catalog.Bundle) error {
	data, err := json.Marshal(bundle.Normalize())
	if err != nil {
		return fmt.Errorf("failed to marshal bundle: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO game_cache (cache_key, data, cached_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, catalog.NormalizeKey(key), string(data))
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *SQLiteStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM game_cache`).Scan(&n); err != nil {
		slog.Warn("Failed to count cache entries", "error", err)
		return 0
	}
	return n
}

// Clear removes every entry.
func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM game_cache`)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	rows, _ := result.RowsAffected()
	slog.Debug("Cache table cleared", "rows_deleted", rows)
	return nil
}

// Backend returns config.BackendSQLite.
func (s *SQLiteStore) Backend() string { return config.BackendSQLite }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database and releases the cache lock.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dbErr error
	if s.db != nil {
		dbErr = s.db.Close()
		s.db = nil
	}
	return errors.Join(dbErr, s.lock.Unlock())
}
