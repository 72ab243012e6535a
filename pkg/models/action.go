package models

import (
	"strings"
)

// Config is an action's step configuration, usually decoded from JSON.
type Config map[string]any

// Output is the structured result of an action, merged into the context
// of subsequent steps.
type Output map[string]any

// ValidationErrors maps a configuration field to a message. Empty means valid.
type ValidationErrors map[string]string

// Valid reports whether no errors were recorded.
func (e ValidationErrors) Valid() bool {
	return len(e) == 0
}

// Value types of a value mapping.
const (
	ValueTypeStatic          = "static"
	ValueTypeField           = "field"
	ValueTypeFormula         = "formula"
	ValueTypeNow             = "now"
	ValueTypeNull            = "null"
	ValueTypeCurrentUser     = "current_user"
	ValueTypeCurrentDate     = "current_date"
	ValueTypeCurrentDateTime = "current_datetime"
	ValueTypeRecordID        = "record_id"
)

// ValueMapping assigns a resolved value to a record field.
type ValueMapping struct {
	Field     string `json:"field"`
	Value     any    `json:"value"`
	ValueType string `json:"value_type"`
}

// Get returns the raw value for key as a Value.
func (c Config) Get(key string) Value {
	return ValueOf(c[key])
}

// Has reports whether key is present and non-empty.
func (c Config) Has(key string) bool {
	return !IsEmpty(c[key])
}

// String returns key as a trimmed string; numbers are rendered.
func (c Config) String(key string) string {
	s, _ := c.Get(key).String()

	return strings.TrimSpace(s)
}

// StringOr returns key as a string, or def when empty.
func (c Config) StringOr(key, def string) string {
	if s := c.String(key); s != "" {
		return s
	}

	return def
}

// Bool returns key's truthiness.
func (c Config) Bool(key string) bool {
	return c.Get(key).Bool()
}

// Int64 returns key as an integer id or count.
func (c Config) Int64(key string) (int64, bool) {
	return c.Get(key).Int()
}

// Float returns key as a float.
func (c Config) Float(key string) (float64, bool) {
	return c.Get(key).Float()
}

// List returns key as a list; scalars become a one-element list.
func (c Config) List(key string) []any {
	v := c.Get(key)
	if l, ok := v.List(); ok {
		return l
	}

	if v.IsNull() {
		return nil
	}

	return []any{v.Raw()}
}

// Map returns key as a nested map.
func (c Config) Map(key string) map[string]any {
	m, _ := c.Get(key).Map()

	return m
}

// Strings returns key as a list of non-empty strings.
func (c Config) Strings(key string) []string {
	items := c.List(key)
	out := make([]string, 0, len(items))

	for _, item := range items {
		if s, ok := ValueOf(item).String(); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}

	return out
}

// Int64s returns key as a list of ids, skipping non-numeric entries.
func (c Config) Int64s(key string) []int64 {
	items := c.List(key)
	out := make([]int64, 0, len(items))

	for _, item := range items {
		if id, ok := ValueOf(item).Int(); ok {
			out = append(out, id)
		}
	}

	return out
}

// ValueMappings parses key as a list of {field, value, value_type} entries.
// A plain {field: value} map is accepted as a list of static mappings.
func (c Config) ValueMappings(key string) []ValueMapping {
	raw := c[key]

	if m, ok := ValueOf(raw).Map(); ok {
		out := make([]ValueMapping, 0, len(m))
		for field, value := range m {
			out = append(out, ValueMapping{Field: field, Value: value, ValueType: ValueTypeStatic})
		}

		return out
	}

	items, _ := ValueOf(raw).List()
	out := make([]ValueMapping, 0, len(items))

	for _, item := range items {
		entry, ok := ValueOf(item).Map()
		if !ok {
			continue
		}

		mapping := Config(entry)
		out = append(out, ValueMapping{
			Field:     mapping.String("field"),
			Value:     entry["value"],
			ValueType: mapping.StringOr("value_type", ValueTypeStatic),
		})
	}

	return out
}

// IsEmpty mirrors the loose emptiness check of form-built configurations:
// nil, "", zero-length collections and false are empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case bool:
		return !t
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case []int64:
		return len(t) == 0
	case []int:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
