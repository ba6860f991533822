package catalog

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultSentinels are the placeholder strings treated as "not yet known".
var DefaultSentinels = []string{"N/A", "unknown"}

// Detector decides, per attribute, whether a record already holds a value.
type Detector struct {
	sentinels map[string]struct{}
}

// NewDetector creates a Detector. Sentinels match case-insensitively after
// trimming; a nil slice selects DefaultSentinels.
func NewDetector(sentinels []string) *Detector {
	if sentinels == nil {
		sentinels = DefaultSentinels
	}
	d := &Detector{sentinels: make(map[string]struct{}, len(sentinels))}
	for _, s := range sentinels {
		d.sentinels[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return d
}

// IsSentinel reports whether s is a placeholder value.
func (d *Detector) IsSentinel(s string) bool {
	_, ok := d.sentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// IsPresent reports whether rec holds a real value for attr. Absent, null,
// empty, sentinel and wrongly shaped list values all count as missing.
func (d *Detector) IsPresent(rec *Record, attr Attribute) bool {
	v, ok := rec.Get(attr.Field())
	if !ok || v.Type == gjson.Null {
		return false
	}

	if attr.IsList() {
		return v.IsArray() && len(v.Array()) > 0
	}

	if v.Type == gjson.String {
		s := strings.TrimSpace(v.String())
		return s != "" && !d.IsSentinel(s)
	}
	return true
}

// Missing returns the attributes rec still needs, in canonical order.
func (d *Detector) Missing(rec *Record) []Attribute {
	var missing []Attribute
	for _, attr := range Attributes() {
		if !d.IsPresent(rec, attr) {
			missing = append(missing, attr)
		}
	}
	return missing
}
