package values_test

import (
	"testing"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	resolver := values.NewResolver(values.WithClock(func() time.Time { return fixed }))

	userID := int64(11)
	execCtx := models.NewExecutionContext(
		models.Record{ID: 42, Data: map[string]any{"email": "a@b.co", "score": 5}},
		models.Module{ID: 2, APIName: "leads"},
		&userID,
	)

	tests := []struct {
		name      string
		value     any
		valueType string
		expected  any
	}{
		{name: "static", value: "hello", valueType: "static", expected: "hello"},
		{name: "empty type is static", value: 3, valueType: "", expected: 3},
		{name: "field", value: "email", valueType: "field", expected: "a@b.co"},
		{name: "missing field", value: "nope", valueType: "field", expected: nil},
		{name: "record id", valueType: "record_id", expected: int64(42)},
		{name: "now", valueType: "now", expected: "2026-03-14 09:30:00"},
		{name: "current datetime", valueType: "current_datetime", expected: "2026-03-14 09:30:00"},
		{name: "current date", valueType: "current_date", expected: "2026-03-14"},
		{name: "current user", valueType: "current_user", expected: int64(11)},
		{name: "formula", value: "{{record.score}} + 10", valueType: "formula", expected: int64(15)},
		{name: "bad formula falls back", value: "{{record.score}} + x", valueType: "formula", expected: "{{record.score}} + x"},
		{name: "null", value: "ignored", valueType: "null", expected: nil},
		{name: "unknown type falls back to literal", value: "raw", valueType: "mystery", expected: "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, resolver.Resolve(tt.value, tt.valueType, execCtx))
		})
	}
}

func TestResolver_CurrentUserWithoutTrigger(t *testing.T) {
	t.Parallel()

	execCtx := models.NewExecutionContext(models.Record{ID: 1}, models.Module{}, nil)

	assert.Nil(t, values.NewResolver().Resolve(nil, "current_user", execCtx))
}

func TestResolver_ResolveAll(t *testing.T) {
	t.Parallel()

	execCtx := models.NewExecutionContext(models.Record{ID: 1, Data: map[string]any{"a": 1}}, models.Module{}, nil)

	fields := values.NewResolver().ResolveAll([]models.ValueMapping{
		{Field: "x", Value: "a", ValueType: "field"},
		{Field: "", Value: "skipped"},
		{Field: "y", Value: "first"},
		{Field: "y", Value: "second"},
	}, execCtx)

	assert.Equal(t, map[string]any{"x": 1, "y": "second"}, fields)
}
