// Package catalog holds the game record model: the ordered JSON records read
// from the input collection, the attribute bundle returned by metadata
// providers, and the presence rules that decide which attributes a record is
// still missing.
package catalog

import "strings"

// Attribute identifies one enrichable property of a record.
type Attribute string

const (
	AttrImage       Attribute = "image"
	AttrScreenshots Attribute = "screenshots"
	AttrYear        Attribute = "year"
	AttrPublishers  Attribute = "publishers"
	AttrPlatforms   Attribute = "platforms"
	AttrRating      Attribute = "rating"
	AttrScore       Attribute = "score"
	AttrReleased    Attribute = "released"
	AttrTags        Attribute = "tags"
)

type valueKind int

const (
	scalarValue valueKind = iota
	listValue
)

type attributeSpec struct {
	attr  Attribute
	field string
	kind  valueKind
	value func(Bundle) (any, bool)
}

// attributeSpecs is ordered; new fields are appended to records in this order.
var attributeSpecs = []attributeSpec{
	{AttrImage, "image", scalarValue, func(b Bundle) (any, bool) { return nonEmptyString(b.Image) }},
	{AttrScreenshots, "screenshots", listValue, func(b Bundle) (any, bool) { return nonEmptyList(b.Screenshots) }},
	{AttrYear, "year", scalarValue, func(b Bundle) (any, bool) { return nonEmptyString(b.Year) }},
	{AttrPublishers, "publishers", listValue, func(b Bundle) (any, bool) { return nonEmptyList(b.Publishers) }},
	{AttrPlatforms, "additional_platforms", listValue, func(b Bundle) (any, bool) { return nonEmptyList(b.Platforms) }},
	{AttrRating, "esrb_rating", scalarValue, func(b Bundle) (any, bool) { return nonEmptyString(b.Rating) }},
	{AttrScore, "metacritic", scalarValue, func(b Bundle) (any, bool) {
		if b.Score == nil {
			return nil, false
		}
		return *b.Score, true
	}},
	{AttrReleased, "released", scalarValue, func(b Bundle) (any, bool) { return nonEmptyString(b.Released) }},
	{AttrTags, "tags", listValue, func(b Bundle) (any, bool) { return nonEmptyList(b.Tags) }},
}

var specByAttr = func() map[Attribute]attributeSpec {
	m := make(map[Attribute]attributeSpec, len(attributeSpecs))
	for _, s := range attributeSpecs {
		m[s.attr] = s
	}
	return m
}()

// Attributes returns every enrichable attribute in canonical order.
func Attributes() []Attribute {
	attrs := make([]Attribute, len(attributeSpecs))
	for i, s := range attributeSpecs {
		attrs[i] = s.attr
	}
	return attrs
}

// Field returns the record field the attribute is stored under.
func (a Attribute) Field() string {
	if s, ok := specByAttr[a]; ok {
		return s.field
	}
	return string(a)
}

// IsList reports whether the attribute holds a sequence.
func (a Attribute) IsList() bool {
	return specByAttr[a].kind == listValue
}

// Value returns the bundle's value for the attribute, and false when the
// bundle does not supply a usable one.
func (b Bundle) Value(a Attribute) (any, bool) {
	s, ok := specByAttr[a]
	if !ok {
		return nil, false
	}
	return s.value(b)
}

func nonEmptyString(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	return s, true
}

func nonEmptyList(items []string) (any, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// NormalizeKey turns a record name into its cache key.
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
