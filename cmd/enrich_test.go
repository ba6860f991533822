package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/lepinkainen/gameaugment/internal/catalog"
	"github.com/lepinkainen/gameaugment/internal/config"
	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/lepinkainen/gameaugment/internal/provider"
	"github.com/lepinkainen/gameaugment/internal/testutil"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	bundles map[string]catalog.Bundle
	calls   int
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Fetch(_ context.Context, name string) (catalog.Bundle, error) {
	s.calls++
	return s.bundles[catalog.NormalizeKey(name)], nil
}

func useStubProvider(t *testing.T, bundles map[string]catalog.Bundle) *stubProvider {
	t.Helper()
	stub := &stubProvider{bundles: bundles}
	orig := newProvider
	newProvider = func(*config.Config) (provider.Provider, error) { return stub, nil }
	t.Cleanup(func() { newProvider = orig })
	return stub
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestEnrich_EndToEnd(t *testing.T) {
	env := resetCmdState(t)
	testutil.SetCredentialEnv(t, "rawg-key", "", "")
	stub := useStubProvider(t, map[string]catalog.Bundle{
		"chrono trigger": {Image: "https://x/chrono.jpg?w=1&h=2", Year: "1995"},
	})
	env.WriteFileString("games.json", `[{"name": "Chrono Trigger", "platform": "SNES", "year": "N/A"}, {"name": "Chrono Trigger"}]`)

	out, err := runCLI(t, "enrich", "--interval", "0s")
	require.NoError(t, err)

	assert.Contains(t, out, "Done. Output written to games_enriched.json")
	assert.Contains(t, out, "RECORDS 2")
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, `[
  {
    "name": "Chrono Trigger",
    "platform": "SNES",
    "year": "1995",
    "image": "https://x/chrono.jpg?w=1&h=2"
  },
  {
    "name": "Chrono Trigger",
    "image": "https://x/chrono.jpg?w=1&h=2",
    "year": "1995"
  }
]
`, env.ReadFileString("games_enriched.json"))
	assert.True(t, env.FileExists("game_cache.json"))
	assert.True(t, env.FileExists("games.json"), "input is left alone")

	// A second run over the output is served from the cache and changes nothing.
	first := env.ReadFileString("games_enriched.json")
	_, err = runCLI(t, "enrich", "-f", "games_enriched.json", "-o", "again.json", "--interval", "0s")
	require.NoError(t, err)
	assert.Equal(t, first, env.ReadFileString("again.json"))
	assert.Equal(t, 1, stub.calls)
}

func TestEnrich_InvalidInputWritesNothing(t *testing.T) {
	env := resetCmdState(t)
	testutil.SetCredentialEnv(t, "rawg-key", "", "")
	useStubProvider(t, nil)
	env.WriteFileString("games.json", `{"name": "not an array"}`)

	_, err := runCLI(t, "enrich")
	require.Error(t, err)
	assert.True(t, apperrors.IsFatalLoadError(err))
	assert.False(t, env.FileExists("games_enriched.json"))
}

func TestEnrich_OutputMustNotOverwriteInput(t *testing.T) {
	env := resetCmdState(t)
	testutil.SetCredentialEnv(t, "rawg-key", "", "")
	stub := useStubProvider(t, map[string]catalog.Bundle{"zelda": {Year: "1986"}})
	env.WriteFileString("games.json", `[{"name": "Zelda"}]`)

	_, err := runCLI(t, "enrich", "-o", "games.json")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "must differ from input")
	assert.Equal(t, `[{"name": "Zelda"}]`, env.ReadFileString("games.json"))
	assert.Equal(t, 0, stub.calls)
}

func TestEnrich_MissingCredentials(t *testing.T) {
	env := resetCmdState(t)
	env.WriteFileString("games.json", `[]`)

	_, err := runCLI(t, "enrich")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
	assert.Contains(t, err.Error(), "RAWG_API_KEY is not set")
	assert.False(t, env.FileExists("games_enriched.json"))
}

func TestEnrich_DryRunAndMetrics(t *testing.T) {
	env := resetCmdState(t)
	testutil.SetCredentialEnv(t, "rawg-key", "", "")
	useStubProvider(t, map[string]catalog.Bundle{"zelda": {Year: "1986"}})
	env.WriteFileString("games.json", `[{"name": "Zelda"}]`)

	out, err := runCLI(t, "enrich", "--dry-run", "--interval", "0s", "--metrics-file", env.Path("run.prom"))
	require.NoError(t, err)

	assert.Contains(t, out, "Dry run, output not written.")
	assert.False(t, env.FileExists("games_enriched.json"))
	assert.Contains(t, env.ReadFileString("run.prom"), `gameaugment_records_total{outcome="cache_miss"} 1`)
}

func TestEnrichCmd_Apply(t *testing.T) {
	cfg := &config.Config{Input: "a.json", Output: "b.json", Interval: config.DefaultInterval}
	cmd := &EnrichCmd{Output: "c.json", Interval: "250ms", CacheBackend: "sqlite"}

	require.NoError(t, cmd.apply(cfg))
	assert.Equal(t, "a.json", cfg.Input)
	assert.Equal(t, "c.json", cfg.Output)
	assert.Equal(t, "sqlite", cfg.Cache.Backend)
	assert.Equal(t, int64(250e6), int64(cfg.Interval))

	err := (&EnrichCmd{Timeout: "soon"}).apply(cfg)
	assert.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}
