// Package actionutil holds small helpers shared by the built-in actions.
package actionutil

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
)

// Time units accepted by offset fields.
const (
	UnitHours  = "hours"
	UnitDays   = "days"
	UnitWeeks  = "weeks"
	UnitMonths = "months"
)

// DateTimeLayout is the layout for timestamps written into record data.
const DateTimeLayout = "2006-01-02 15:04:05"

// TargetRecordID resolves the record an action operates on: config[key] when
// set (template tokens allowed), otherwise the triggering record.
func TargetRecordID(config models.Config, key string, execCtx models.ExecutionContext) (int64, bool) {
	if config.Has(key) {
		raw := config[key]
		if s, ok := raw.(string); ok {
			raw = template.Interpolate(s, execCtx)
		}

		return models.ValueOf(raw).Int()
	}

	return execCtx.RecordID()
}

// AddOffset shifts t by offset units. Unknown units are treated as days.
func AddOffset(t time.Time, offset int, unit string) time.Time {
	switch unit {
	case UnitHours:
		return t.Add(time.Duration(offset) * time.Hour)
	case UnitWeeks:
		return t.AddDate(0, 0, 7*offset)
	case UnitMonths:
		return t.AddDate(0, offset, 0)
	default:
		return t.AddDate(0, 0, offset)
	}
}

var timeLayouts = []string{
	time.RFC3339,
	DateTimeLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses the date and datetime forms stored in record fields.
func ParseTime(v any, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
				return parsed, nil
			}
		}

		return time.Time{}, fmt.Errorf("%w: unrecognised date %q", protocol.ErrInvalidConfig, s)
	default:
		return time.Time{}, fmt.Errorf("%w: unrecognised date %v", protocol.ErrInvalidConfig, v)
	}
}

// Unique returns ids without duplicates, preserving first occurrence.
func Unique[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))

	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}

		seen[item] = struct{}{}
		out = append(out, item)
	}

	return out
}

// ResolveModule finds the module named by config: module_id may be a numeric
// id or an api name, module_api_name is always an api name.
func ResolveModule(ctx context.Context, modules protocol.ModuleStore, config models.Config) (*models.Module, error) {
	if id, ok := config.Int64("module_id"); ok {
		return modules.FindModule(ctx, id)
	}

	name := config.String("module_api_name")
	if name == "" {
		name = config.String("module_id")
	}

	if name == "" {
		return nil, fmt.Errorf("%w: module is required", protocol.ErrInvalidConfig)
	}

	return modules.FindModuleByAPIName(ctx, name)
}

// Changes returns the subset of updates whose value differs from current,
// and the sorted names of those fields.
func Changes(current, updates map[string]any) (map[string]any, []string) {
	changed := make(map[string]any, len(updates))

	for field, value := range updates {
		if old, ok := current[field]; ok && SameValue(old, value) {
			continue
		}

		changed[field] = value
	}

	return changed, slices.Sorted(maps.Keys(changed))
}

// SameValue reports whether two field values are equal, treating numbers of
// different Go types as equal when they render the same.
func SameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}

	va, vb := models.ValueOf(a), models.ValueOf(b)
	if va.Kind() != models.KindNumber || vb.Kind() != models.KindNumber {
		return false
	}

	fa, _ := va.Float()
	fb, _ := vb.Float()

	return fa == fb
}
