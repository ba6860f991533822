package cache

import (
	"testing"

	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_CorruptDatabaseIsRecovered(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("cache.db", "this is definitely not a sqlite database, just some text padding it out")

	s, err := OpenSQLite(env.Path("cache.db"))
	require.NoError(t, err, "a corrupt cache is not fatal")
	defer func() { _ = s.Close() }()

	assert.Equal(t, 0, s.Len())
	env.RequireFileExists("cache.db.corrupt")

	require.NoError(t, s.Put("chrono trigger", catalog.Bundle{Year: "1995"}))
	got, ok := s.Get("chrono trigger")
	require.True(t, ok)
	assert.Equal(t, "1995", got.Year)
}

func TestSQLiteStore_UndecodableRowIsMiss(t *testing.T) {
	env := testutil.NewTestEnv(t)

	s, err := OpenSQLite(env.Path("cache.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.db.Exec(`INSERT INTO game_cache (cache_key, data) VALUES (?, ?)`, "earthbound", "{not json")
	require.NoError(t, err)

	_, ok := s.Get("earthbound")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestSQLiteStore_LegacyTagRow(t *testing.T) {
	env := testutil.NewTestEnv(t)

	s, err := OpenSQLite(env.Path("cache.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.db.Exec(`INSERT INTO game_cache (cache_key, data) VALUES (?, ?)`, "super metroid", `["Exploration"]`)
	require.NoError(t, err)

	got, ok := s.Get("Super Metroid")
	require.True(t, ok)
	assert.Equal(t, []string{"Exploration"}, got.Tags)
}
