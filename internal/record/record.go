// Package record wraps one declarative import document. Documents are YAML or
// JSON; yaml.v3 reads both. Decoding stays deliberately loose: sections keep
// their raw shapes so that validation, not the decoder, reports a malformed
// members list or a non-list children entry with a useful message.
package record

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Record is one parsed import document. It exists only for the duration of a
// single import call and is never persisted.
type Record struct {
	Name  string
	Type  string
	Start string
	End   string

	fields map[string]any
}

// Parse decodes one YAML or JSON document into a Record. A decode failure
// here is the only failure mode that precedes report construction.
func Parse(data []byte) (*Record, error) {
	var fields map[string]any
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decoding record: empty document")
	}

	r := &Record{fields: fields}
	r.Name = r.String("name")
	r.Type = r.String("type")
	r.Start = r.String("start")
	r.End = r.String("end")
	return r, nil
}

// New builds a Record directly from a field map. Used by callers that already
// hold a decoded document and by tests.
func New(fields map[string]any) *Record {
	r := &Record{fields: fields}
	r.Name = r.String("name")
	r.Type = r.String("type")
	r.Start = r.String("start")
	r.End = r.String("end")
	return r
}

// Has reports whether the field is present at all, regardless of shape.
func (r *Record) Has(key string) bool {
	_, ok := r.fields[key]
	return ok
}

// String returns the field as a string, or "" when absent or unconvertible.
func (r *Record) String(key string) string {
	return stringify(r.fields[key])
}

// Int returns the field as an int. ok is false when the field is absent or
// not numeric.
func (r *Record) Int(key string) (int, bool) {
	switch v := r.fields[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		// JSON numbers decode as float64; only integral values qualify.
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// Section returns a named relationship section as a list of items. An absent
// section yields (nil, nil); a present field that is not a list, or a list
// whose entries are not maps, yields an error for validation to surface.
func (r *Record) Section(key string) ([]Item, error) {
	raw, ok := r.fields[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	items := make([]Item, 0, len(list))
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s entry %d must be a mapping", key, i+1)
		}
		items = append(items, Item(m))
	}
	return items, nil
}

// Map returns a nested mapping field (e.g. family). An absent field yields
// (nil, nil); a present non-mapping yields an error.
func (r *Record) Map(key string) (Item, error) {
	raw, ok := r.fields[key]
	if !ok {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping", key)
	}
	return Item(m), nil
}

// StringList returns a list-of-strings field. An absent field yields
// (nil, nil); any other shape yields an error.
func (r *Record) StringList(key string) ([]string, error) {
	raw, ok := r.fields[key]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list", key)
	}
	out := make([]string, 0, len(list))
	for i, entry := range list {
		s, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("%s entry %d must be a string", key, i+1)
		}
		out = append(out, s)
	}
	return out, nil
}

// Item is one entry of a relationship section.
type Item map[string]any

// String returns the item field as a string, or "" when absent or
// unconvertible.
func (it Item) String(key string) string {
	return stringify(it[key])
}

// Has reports whether the item field is present.
func (it Item) Has(key string) bool {
	_, ok := it[key]
	return ok
}

// Bool returns the item field as a bool, false when absent or not a bool.
func (it Item) Bool(key string) bool {
	b, _ := it[key].(bool)
	return b
}

// stringify renders scalar field values as the strings the validators and
// date parser expect. YAML resolves unquoted dates to time.Time and bare
// years to ints, so both come back in their canonical text form.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return ""
	}
}
