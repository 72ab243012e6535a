// Package values resolves configured {value, value_type} pairs against an
// execution context.
package values

import (
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/formula"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
)

// Timestamp layouts written into record fields.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Resolver turns value mappings into concrete field values.
type Resolver struct {
	now func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for now/current_date/current_datetime.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a Resolver using the wall clock unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Now returns the resolver's current time.
func (r *Resolver) Now() time.Time {
	return r.now()
}

// Resolve returns the concrete value for value under valueType. Unknown
// value types fall back to the literal configured value.
func (r *Resolver) Resolve(value any, valueType string, execCtx models.ExecutionContext) any {
	switch valueType {
	case models.ValueTypeStatic, "":
		return value
	case models.ValueTypeField:
		name, ok := models.ValueOf(value).String()
		if !ok {
			return nil
		}

		field, ok := execCtx.RecordField(name)
		if !ok {
			return nil
		}

		return field.Raw()
	case models.ValueTypeRecordID:
		id, ok := execCtx.RecordID()
		if !ok {
			return nil
		}

		return id
	case models.ValueTypeNow, models.ValueTypeCurrentDateTime:
		return r.now().Format(DateTimeLayout)
	case models.ValueTypeCurrentDate:
		return r.now().Format(DateLayout)
	case models.ValueTypeCurrentUser:
		id, ok := execCtx.TriggeredBy()
		if !ok {
			return nil
		}

		return id
	case models.ValueTypeFormula:
		expression, ok := value.(string)
		if !ok {
			return value
		}

		return formula.Evaluate(expression, execCtx)
	case models.ValueTypeNull:
		return nil
	default:
		return value
	}
}

// ResolveMapping resolves a single mapping.
func (r *Resolver) ResolveMapping(mapping models.ValueMapping, execCtx models.ExecutionContext) any {
	return r.Resolve(mapping.Value, mapping.ValueType, execCtx)
}

// ResolveAll resolves mappings in order into a field map. Later mappings for
// the same field win; mappings without a field name are skipped.
func (r *Resolver) ResolveAll(mappings []models.ValueMapping, execCtx models.ExecutionContext) map[string]any {
	fields := make(map[string]any, len(mappings))

	for _, mapping := range mappings {
		if mapping.Field == "" {
			continue
		}

		fields[mapping.Field] = r.ResolveMapping(mapping, execCtx)
	}

	return fields
}
