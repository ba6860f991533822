package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundle_Value(t *testing.T) {
	b := Bundle{
		Image:       "http://x/cover.png",
		Screenshots: []string{"", "  "},
		Year:        " ",
		Publishers:  []string{"Square"},
		Score:       IntPtr(92),
	}

	v, ok := b.Value(AttrImage)
	assert.True(t, ok)
	assert.Equal(t, "http://x/cover.png", v)

	_, ok = b.Value(AttrScreenshots)
	assert.False(t, ok, "blank entries do not count")

	_, ok = b.Value(AttrYear)
	assert.False(t, ok)

	v, ok = b.Value(AttrScore)
	assert.True(t, ok)
	assert.Equal(t, 92, v)
}

func TestBundle_IsEmpty(t *testing.T) {
	assert.True(t, Bundle{}.IsEmpty())
	assert.True(t, Bundle{Tags: []string{}}.Normalize().IsEmpty())
	assert.False(t, Bundle{Tags: []string{"RPG"}}.IsEmpty())
	assert.False(t, Bundle{Score: IntPtr(0)}.IsEmpty())
}

func TestBundle_NormalizeSerializesEmptyLists(t *testing.T) {
	out, err := json.Marshal(Bundle{Image: "http://x/cover.png"}.Normalize())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"image":"http://x/cover.png","screenshots":[],"year":"","publishers":[],
		"platforms":[],"esrb_rating":"","metacritic":null,"released":"","tags":[]}`, string(out))
}

func TestBundle_UnmarshalLegacyTagList(t *testing.T) {
	var b Bundle
	require.NoError(t, json.Unmarshal([]byte(`["Singleplayer","RPG"]`), &b))

	assert.Equal(t, Bundle{Tags: []string{"Singleplayer", "RPG"}, TagsOnly: true}, b)
	assert.True(t, b.Covers([]Attribute{AttrTags}))
	assert.False(t, b.Covers([]Attribute{AttrTags, AttrImage}))

	out, err := json.Marshal(b.Normalize())
	require.NoError(t, err)
	assert.Equal(t, `["Singleplayer","RPG"]`, string(out), "tags-only entries keep the legacy form")
}

func TestBundle_FullBundleCoversEverything(t *testing.T) {
	assert.True(t, Bundle{}.Covers(Attributes()))
}

func TestBundle_UnmarshalObject(t *testing.T) {
	var b Bundle
	require.NoError(t, json.Unmarshal([]byte(`{"image":"http://x/c.png","metacritic":88,"platforms":["SNES"]}`), &b))

	assert.Equal(t, "http://x/c.png", b.Image)
	require.NotNil(t, b.Score)
	assert.Equal(t, 88, *b.Score)
	assert.Equal(t, []string{"SNES"}, b.Platforms)
}

func TestBundle_UnmarshalRejectsScalars(t *testing.T) {
	var b Bundle
	assert.Error(t, json.Unmarshal([]byte(`"oops"`), &b))
	assert.Error(t, json.Unmarshal([]byte(`["a", 1]`), &b))
}
