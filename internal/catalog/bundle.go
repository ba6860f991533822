package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Bundle is the one-shot result of a metadata lookup. Every field is
// independently optional; an all-empty bundle is a confirmed "nothing found".
type Bundle struct {
	Image       string   `json:"image"`
	Screenshots []string `json:"screenshots"`
	Year        string   `json:"year"`
	Publishers  []string `json:"publishers"`
	Platforms   []string `json:"platforms"`
	Rating      string   `json:"esrb_rating"`
	Score       *int     `json:"metacritic"`
	Released    string   `json:"released"`
	Tags        []string `json:"tags"`

	// TagsOnly marks an entry from the legacy cache format, which only
	// answered the tags question. Its other attributes are unknown.
	TagsOnly bool `json:"-"`
}

// IsEmpty reports whether the bundle supplies no attribute at all.
func (b Bundle) IsEmpty() bool {
	for _, attr := range Attributes() {
		if _, ok := b.Value(attr); ok {
			return false
		}
	}
	return true
}

// Normalize replaces nil slices with empty ones so cached bundles serialize
// the same way regardless of how they were built.
func (b Bundle) Normalize() Bundle {
	b.Screenshots = nonNil(b.Screenshots)
	b.Publishers = nonNil(b.Publishers)
	b.Platforms = nonNil(b.Platforms)
	b.Tags = nonNil(b.Tags)
	return b
}

// Covers reports whether the bundle can answer lookups for every attribute
// in attrs. Full bundles cover everything; tags-only bundles cover only tags.
func (b Bundle) Covers(attrs []Attribute) bool {
	if !b.TagsOnly {
		return true
	}
	for _, attr := range attrs {
		if attr != AttrTags {
			return false
		}
	}
	return true
}

// MarshalJSON writes tags-only bundles back in the legacy array form so they
// stay partial across rewrites of the cache file.
func (b Bundle) MarshalJSON() ([]byte, error) {
	type plain Bundle
	var v any = plain(b)
	if b.TagsOnly {
		v = nonNil(b.Tags)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON accepts the bundle object and the legacy tags-only cache
// format, where the cached value is a plain array of tag names.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	switch {
	case res.IsArray():
		var tags []string
		if err := json.Unmarshal(data, &tags); err != nil {
			return fmt.Errorf("legacy tag list: %w", err)
		}
		*b = Bundle{Tags: tags, TagsOnly: true}
		return nil
	case res.IsObject():
		type plain Bundle
		var p plain
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*b = Bundle(p)
		return nil
	default:
		return fmt.Errorf("bundle must be an object or tag array, got %s", res.Type)
	}
}

// IntPtr returns a pointer to v, for building bundles with a score.
func IntPtr(v int) *int {
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
