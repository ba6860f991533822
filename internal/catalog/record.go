package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Record is one catalog entry. It keeps every field of the source object,
// recognised or not, in its original order so a load/save round trip only
// changes what enrichment adds.
type Record struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]json.RawMessage)}
}

// Name returns the trimmed record name and whether the record has a usable one.
func (r *Record) Name() (string, bool) {
	v, ok := r.Get("name")
	if !ok || v.Type != gjson.String {
		return "", false
	}
	name := strings.TrimSpace(v.String())
	return name, name != ""
}

// Keys returns the field names in document order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Get returns the parsed value of a field.
func (r *Record) Get(key string) (gjson.Result, bool) {
	raw, ok := r.values[key]
	if !ok {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(raw), true
}

// Raw returns the compact JSON encoding of a field.
func (r *Record) Raw(key string) (json.RawMessage, bool) {
	raw, ok := r.values[key]
	return raw, ok
}

// Set stores v under key. Existing keys keep their position; new keys are
// appended.
func (r *Record) Set(key string, v any) error {
	raw, err := marshalCompact(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if r.values == nil {
		r.values = make(map[string]json.RawMessage)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = raw
	return nil
}

// UnmarshalJSON decodes a JSON object, preserving field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return fmt.Errorf("record must be a JSON object, got %s", res.Type)
	}

	rec := NewRecord()
	var err error
	res.ForEach(func(key, value gjson.Result) bool {
		var buf bytes.Buffer
		if err = json.Compact(&buf, []byte(value.Raw)); err != nil {
			err = fmt.Errorf("field %q: %w", key.String(), err)
			return false
		}
		k := key.String()
		if _, exists := rec.values[k]; !exists {
			rec.keys = append(rec.keys, k)
		}
		rec.values[k] = buf.Bytes()
		return true
	})
	if err != nil {
		return err
	}

	*r = *rec
	return nil
}

// MarshalJSON encodes the record with its fields in order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := marshalCompact(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(r.values[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalCompact encodes v without HTML escaping, so non-ASCII text and
// characters such as '&' in URLs are written as-is.
func marshalCompact(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
