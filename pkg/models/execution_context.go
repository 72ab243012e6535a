package models

import "maps"

// Well-known execution context keys.
const (
	ContextKeyRecord      = "record"
	ContextKeyModule      = "module"
	ContextKeyTriggeredBy = "triggered_by"
	ContextKeyStepOutputs = "step_outputs"
)

// ExecutionContext is the per-run data bag actions read from. It is
// immutable for the duration of one action; WithStepOutput returns a new
// context for the next step.
type ExecutionContext struct {
	data map[string]any
}

// NewExecutionContext builds the context for a workflow run triggered by a
// change to record.
func NewExecutionContext(record Record, module Module, triggeredBy *int64) ExecutionContext {
	data := record.Data
	if data == nil {
		data = map[string]any{}
	}

	ctx := map[string]any{
		ContextKeyRecord: map[string]any{
			"id":        record.ID,
			"module_id": record.ModuleID,
			"data":      data,
		},
		ContextKeyModule: map[string]any{
			"id":       module.ID,
			"api_name": module.APIName,
			"name":     module.Name,
		},
		ContextKeyTriggeredBy: nil,
		ContextKeyStepOutputs: map[string]any{},
	}

	if triggeredBy != nil {
		ctx[ContextKeyTriggeredBy] = *triggeredBy
	}

	return ExecutionContext{data: ctx}
}

// ExecutionContextFrom wraps an already-built context map, e.g. one
// restored by the workflow runner.
func ExecutionContextFrom(data map[string]any) ExecutionContext {
	if data == nil {
		data = map[string]any{}
	}

	return ExecutionContext{data: data}
}

// Data exposes the underlying map. Callers must treat it as read-only.
func (c ExecutionContext) Data() map[string]any {
	return c.data
}

// Lookup resolves a dotted path such as "record.data.owner_id".
func (c ExecutionContext) Lookup(path string) (Value, bool) {
	return Lookup(c.data, path)
}

// RecordID returns the triggering record's id.
func (c ExecutionContext) RecordID() (int64, bool) {
	v, ok := c.Lookup("record.id")
	if !ok {
		return 0, false
	}

	return v.Int()
}

// RecordData returns the triggering record's field map.
func (c ExecutionContext) RecordData() map[string]any {
	v, ok := c.Lookup("record.data")
	if !ok {
		return map[string]any{}
	}

	m, ok := v.Map()
	if !ok {
		return map[string]any{}
	}

	return m
}

// RecordField returns a single field of the triggering record.
func (c ExecutionContext) RecordField(field string) (Value, bool) {
	v, ok := c.RecordData()[field]
	if !ok {
		return Value{}, false
	}

	return ValueOf(v), true
}

// ModuleID returns the id of the triggering record's module.
func (c ExecutionContext) ModuleID() (int64, bool) {
	if v, ok := c.Lookup("module.id"); ok {
		if id, ok := v.Int(); ok {
			return id, true
		}
	}

	v, ok := c.Lookup("record.module_id")
	if !ok {
		return 0, false
	}

	return v.Int()
}

// ModuleAPIName returns the api identifier of the triggering record's module.
func (c ExecutionContext) ModuleAPIName() string {
	v, ok := c.Lookup("module.api_name")
	if !ok {
		return ""
	}

	s, _ := v.String()

	return s
}

// TriggeredBy returns the acting user, if any.
func (c ExecutionContext) TriggeredBy() (int64, bool) {
	v, ok := c.data[ContextKeyTriggeredBy]
	if !ok || v == nil {
		return 0, false
	}

	return ValueOf(v).Int()
}

// TriggeredByPtr is TriggeredBy as a nullable id.
func (c ExecutionContext) TriggeredByPtr() *int64 {
	id, ok := c.TriggeredBy()
	if !ok {
		return nil
	}

	return &id
}

// WithStepOutput returns a copy of the context with output stored under
// step_outputs.<step> and <step>.
func (c ExecutionContext) WithStepOutput(step string, output Output) ExecutionContext {
	next := maps.Clone(c.data)
	if next == nil {
		next = map[string]any{}
	}

	outputs := map[string]any{}
	if prev, ok := next[ContextKeyStepOutputs].(map[string]any); ok {
		outputs = maps.Clone(prev)
	}

	outputs[step] = map[string]any(output)
	next[ContextKeyStepOutputs] = outputs
	next[step] = map[string]any(output)

	return ExecutionContext{data: next}
}
