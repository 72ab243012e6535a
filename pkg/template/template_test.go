package template

import (
	"testing"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/stretchr/testify/assert"
)

func testContext() models.ExecutionContext {
	userID := int64(7)

	return models.NewExecutionContext(
		models.Record{
			ID:       42,
			ModuleID: 3,
			Data: map[string]any{
				"name":     "Acme",
				"score":    5,
				"amount":   12.5,
				"vip":      true,
				"contacts": []any{"a", "b"},
				"address":  map[string]any{"city": "Lisbon"},
			},
		},
		models.Module{ID: 3, APIName: "deals", Name: "Deals"},
		&userID,
	)
}

func TestInterpolate(t *testing.T) {
	t.Parallel()

	execCtx := testContext()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text", input: "no tokens here", expected: "no tokens here"},
		{name: "full path", input: "Deal {{record.data.name}}", expected: "Deal Acme"},
		{name: "record shorthand", input: "Deal {{ record.name }}", expected: "Deal Acme"},
		{name: "integer", input: "score={{record.score}}", expected: "score=5"},
		{name: "float", input: "{{record.amount}}", expected: "12.5"},
		{name: "bool", input: "{{record.vip}}", expected: "true"},
		{name: "nested map", input: "{{record.address.city}}", expected: "Lisbon"},
		{name: "record id", input: "#{{record.id}}", expected: "#42"},
		{name: "module", input: "{{module.api_name}}", expected: "deals"},
		{name: "triggered by", input: "by {{triggered_by}}", expected: "by 7"},
		{name: "missing path left intact", input: "Hi {{record.missing}}", expected: "Hi {{record.missing}}"},
		{name: "list not substituted", input: "{{record.contacts}}", expected: "{{record.contacts}}"},
		{name: "map not substituted", input: "{{record.address}}", expected: "{{record.address}}"},
		{name: "mixed", input: "{{record.name}} / {{nope}}", expected: "Acme / {{nope}}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Interpolate(tt.input, execCtx))
		})
	}
}

func TestInterpolate_StepOutputs(t *testing.T) {
	t.Parallel()

	execCtx := testContext().WithStepOutput("create_task", models.Output{"task_id": int64(99)})

	assert.Equal(t, "task 99", Interpolate("task {{create_task.task_id}}", execCtx))
	assert.Equal(t, "task 99", Interpolate("task {{step_outputs.create_task.task_id}}", execCtx))
}

func TestInterpolateValue(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"name":  "{{record.name}}",
		"count": 3,
		"tags":  []any{"{{module.api_name}}", "static"},
		"nested": map[string]any{
			"id": "{{record.id}}",
		},
	}

	result := InterpolateValue(payload, testContext())

	assert.Equal(t, map[string]any{
		"name":  "Acme",
		"count": 3,
		"tags":  []any{"deals", "static"},
		"nested": map[string]any{
			"id": "42",
		},
	}, result)
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"record.a", "b"}, Placeholders("{{ record.a }} + {{b}}"))
	assert.Empty(t, Placeholders("1 + 2"))
}

func TestNeedsTemplating(t *testing.T) {
	t.Parallel()

	assert.True(t, NeedsTemplating("{{x}}"))
	assert.False(t, NeedsTemplating("x"))
	assert.False(t, NeedsTemplating("{{x"))
}
