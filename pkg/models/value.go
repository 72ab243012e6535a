package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type carried by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value wraps a dynamically typed value read from an execution context,
// a record or an action configuration.
type Value struct {
	raw any
}

// ValueOf wraps v.
func ValueOf(v any) Value {
	return Value{raw: v}
}

// Raw returns the wrapped value unchanged.
func (v Value) Raw() any {
	return v.raw
}

// Kind reports which variant the value holds. Types outside the supported
// set are reported as KindNull.
func (v Value) Kind() Kind {
	switch v.raw.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return KindNumber
	case string:
		return KindString
	case map[string]any, Output, Config:
		return KindMap
	case []any, []string, []int64, []int:
		return KindList
	default:
		return KindNull
	}
}

// IsNull reports whether the value is absent or nil.
func (v Value) IsNull() bool {
	return v.Kind() == KindNull
}

// String renders scalar values. Maps, lists and nulls are not renderable.
func (v Value) String() (string, bool) {
	switch t := v.raw.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case json.Number:
		return t.String(), true
	}

	if f, ok := v.Float(); ok && v.Kind() == KindNumber {
		return FormatNumber(f), true
	}

	return "", false
}

// Float converts numbers and numeric strings to float64.
func (v Value) Float() (float64, bool) {
	switch t := v.raw.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

// Int converts integral numbers and integral numeric strings to int64.
func (v Value) Int() (int64, bool) {
	switch t := v.raw.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return i, true
		}
	}

	f, ok := v.Float()
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return int64(f), true
}

// Bool reports the value's truthiness: false for null, zero, empty strings,
// "false"/"0" and empty collections.
func (v Value) Bool() bool {
	switch t := v.raw.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}

		return t != ""
	}

	if f, ok := v.Float(); ok {
		return f != 0
	}

	if m, ok := v.Map(); ok {
		return len(m) > 0
	}

	if l, ok := v.List(); ok {
		return len(l) > 0
	}

	return false
}

// Map returns the value as a string-keyed map.
func (v Value) Map() (map[string]any, bool) {
	switch t := v.raw.(type) {
	case map[string]any:
		return t, true
	case Output:
		return t, true
	case Config:
		return t, true
	default:
		return nil, false
	}
}

// List returns the value as a generic list.
func (v Value) List() ([]any, bool) {
	switch t := v.raw.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}

		return out, true
	case []int64:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}

		return out, true
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}

		return out, true
	default:
		return nil, false
	}
}

// FormatNumber renders integral floats without a fractional part.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Lookup walks data along a dot-separated path. Numeric segments index into
// lists. A missing segment yields false, never a panic.
func Lookup(data map[string]any, path string) (Value, bool) {
	path = strings.TrimSpace(path)
	if path == "" || data == nil {
		return Value{}, false
	}

	var current any = data

	for _, key := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return Value{}, false
			}

			current = next
		case Output:
			next, ok := node[key]
			if !ok {
				return Value{}, false
			}

			current = next
		case []any:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(node) {
				return Value{}, false
			}

			current = node[idx]
		default:
			return Value{}, false
		}
	}

	return ValueOf(current), true
}
