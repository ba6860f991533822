package catalog

import (
	"os"
	"testing"

	apperrors "github.com/lepinkainen/gameaugment/internal/errors"
	"github.com/lepinkainen/gameaugment/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file", content: nil},
		{name: "truncated JSON", content: strPtr(`[{"name": "Chrono Trigger"`)},
		{name: "object instead of array", content: strPtr(`{"name": "Chrono Trigger"}`)},
		{name: "null document", content: strPtr(`null`)},
		{name: "non-object element", content: strPtr(`[{"name": "A"}, "B"]`)},
		{name: "null element", content: strPtr(`[{"name": "A"}, null]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnv(t)
			if tt.content != nil {
				env.WriteFileString("games.json", *tt.content)
			}

			records, err := Load(env.Path("games.json"))
			require.Error(t, err)
			assert.Nil(t, records)
			assert.True(t, apperrors.IsFatalLoadError(err), "got %T: %v", err, err)
		})
	}
}

func TestLoad_DirectoryIsNotInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir)
	require.Error(t, err)
	assert.True(t, apperrors.IsFatalLoadError(err))
	assert.Contains(t, err.Error(), "no such file")
}

func TestLoad_EmptyArray(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("games.json", "[]")

	records, err := Load(env.Path("games.json"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSave_GoldenFormat(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("games.json", `[
{"name":"Chrono Trigger","platform":"SNES","image":"N/A","notes":{"favourite":true,"seen":[ ]}},
{"name":"Pokémon Stadium","platform":"N64","tags":["Turn-based"]}
]`)

	records, err := Load(env.Path("games.json"))
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NoError(t, records[0].Set("image", "http://x/cover.png?a=1&b=2"))
	require.NoError(t, records[0].Set("year", "1995"))

	out := env.Path("out", "games_enriched.json")
	require.NoError(t, Save(out, records))

	golden := testutil.NewGoldenHelper(t, "testdata/golden")
	golden.AssertGoldenFile(out, "saved_records.json")
}

func TestSave_RoundTripIsByteIdentical(t *testing.T) {
	env := testutil.NewTestEnv(t)
	golden := testutil.NewGoldenHelper(t, "testdata/golden")
	env.WriteFile("games.json", golden.MustReadGolden("saved_records.json"))

	records, err := Load(env.Path("games.json"))
	require.NoError(t, err)
	require.NoError(t, Save(env.Path("again.json"), records))

	assert.Equal(t, env.ReadFileString("games.json"), env.ReadFileString("again.json"))
}

func TestSave_EmptyCollection(t *testing.T) {
	env := testutil.NewTestEnv(t)

	require.NoError(t, Save(env.Path("out.json"), nil))
	assert.Equal(t, "[]\n", env.ReadFileString("out.json"))
}

func TestSave_FailureLeavesExistingOutput(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.WriteFileString("out/keep", "x")

	err := Save(env.Path("out"), []*Record{NewRecord()})
	require.Error(t, err)

	info, statErr := os.Stat(env.Path("out"))
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func strPtr(s string) *string {
	return &s
}
