package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRecord(t *testing.T, doc string) *Record {
	t.Helper()
	rec := NewRecord()
	require.NoError(t, json.Unmarshal([]byte(doc), rec))
	return rec
}

func TestRecord_PreservesFieldOrderAndUnknownFields(t *testing.T) {
	rec := mustRecord(t, `{"zeta": 1, "name": "Chrono Trigger", "alpha": {"nested": [1, 2]}}`)

	assert.Equal(t, []string{"zeta", "name", "alpha"}, rec.Keys())

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"name":"Chrono Trigger","alpha":{"nested":[1,2]}}`, string(out))
}

func TestRecord_SetKeepsPositionOfExistingKey(t *testing.T) {
	rec := mustRecord(t, `{"name": "Chrono Trigger", "image": "N/A", "platform": "SNES"}`)

	require.NoError(t, rec.Set("image", "http://x/cover.png"))
	require.NoError(t, rec.Set("tags", []string{"RPG"}))

	assert.Equal(t, []string{"name", "image", "platform", "tags"}, rec.Keys())
	raw, ok := rec.Raw("image")
	require.True(t, ok)
	assert.Equal(t, `"http://x/cover.png"`, string(raw))
}

func TestRecord_SetDoesNotEscapeHTML(t *testing.T) {
	rec := NewRecord()
	require.NoError(t, rec.Set("image", "http://x/a.png?w=1&h=2"))

	raw, _ := rec.Raw("image")
	assert.Equal(t, `"http://x/a.png?w=1&h=2"`, string(raw))
}

func TestRecord_Name(t *testing.T) {
	tests := []struct {
		doc    string
		name   string
		usable bool
	}{
		{`{"name": "  Mario Kart 8 "}`, "Mario Kart 8", true},
		{`{"name": ""}`, "", false},
		{`{"name": 42}`, "", false},
		{`{"platform": "SNES"}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			name, ok := mustRecord(t, tt.doc).Name()
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.usable, ok)
		})
	}
}

func TestRecord_UnmarshalRejectsNonObject(t *testing.T) {
	rec := NewRecord()
	err := json.Unmarshal([]byte(`["Chrono Trigger"]`), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a JSON object")
}

func TestRecord_DuplicateKeysLastValueWins(t *testing.T) {
	rec := mustRecord(t, `{"name": "A", "year": "1990", "name": "B"}`)

	assert.Equal(t, []string{"name", "year"}, rec.Keys())
	name, _ := rec.Name()
	assert.Equal(t, "B", name)
}

func TestNormalizeKey(t *testing.T) {
	for _, name := range []string{"Mario Kart 8", " mario kart 8 ", "MARIO KART 8"} {
		assert.Equal(t, "mario kart 8", NormalizeKey(name), name)
	}
}
