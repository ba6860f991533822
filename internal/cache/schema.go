package cache

// GameCacheSchema defines the SQLite table for cached game bundles.
// Entries never expire; cached_at is informational.
const GameCacheSchema = `
CREATE TABLE IF NOT EXISTS game_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_game_cached_at ON game_cache(cached_at);
`
