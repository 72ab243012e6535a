package createtask_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/createtask"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence/memory"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 1, 30, 14, 45, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	action  *createtask.Action
	execCtx models.ExecutionContext
}

func newFixture(t *testing.T, withTasks bool) fixture {
	t.Helper()

	store := memory.NewStore()
	if withTasks {
		store.AddModule(models.Module{ID: 100, APIName: "tasks", Name: "Tasks"})
	}

	trigger := int64(5)
	execCtx := models.NewExecutionContext(models.Record{
		ID:       42,
		ModuleID: 2,
		Data: map[string]any{
			"name":        "Acme",
			"owner_id":    9,
			"manager_id":  "11",
			"renewal_on":  "2026-03-01",
			"not_numeric": "bob",
		},
	}, models.Module{ID: 2, APIName: "deals"}, &trigger)

	return fixture{
		store:   store,
		action:  createtask.NewAction(store, store, func() time.Time { return now }),
		execCtx: execCtx,
	}
}

func (f fixture) run(t *testing.T, config models.Config) (models.Output, *models.Record) {
	t.Helper()

	output, err := f.action.Execute(t.Context(), config, f.execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	taskID, ok := output["task_id"].(int64)
	require.True(t, ok)

	task, err := f.store.FindRecord(t.Context(), taskID)
	require.NoError(t, err)

	return output, task
}

func TestAction_Defaults(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	output, task := f.run(t, models.Config{})

	assert.Equal(t, true, output["created"])
	assert.Equal(t, "New Task", output["subject"])
	assert.Equal(t, int64(9), output["assigned_to"])
	assert.Equal(t, "2026-01-31 14:45:00", output["due_date"])

	assert.Equal(t, int64(100), task.ModuleID)
	assert.Equal(t, "normal", task.Data["priority"])
	assert.Equal(t, "pending", task.Data["status"])
	assert.Equal(t, "deals", task.Data["related_to_type"])
	assert.Equal(t, int64(42), task.Data["related_to_id"])
	assert.Equal(t, int64(5), *task.CreatedBy, "created by the triggering user")
}

func TestAction_SubjectAndAdditionalFields(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)
	_, task := f.run(t, models.Config{
		"subject":           "Call {{record.name}}",
		"description":       "Deal #{{record.id}} {{record.missing}}",
		"priority":          "high",
		"additional_fields": map[string]any{"source": "workflow {{module.api_name}}", "score": 3},
	})

	assert.Equal(t, "Call Acme", task.Data["subject"])
	assert.Equal(t, "Deal #42 {{record.missing}}", task.Data["description"])
	assert.Equal(t, "high", task.Data["priority"])
	assert.Equal(t, "workflow deals", task.Data["source"])
	assert.Equal(t, "3", task.Data["score"])
}

func TestAction_DueDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   models.Config
		expected any
	}{
		{name: "relative hours", config: models.Config{"due_date_offset": 3, "due_date_unit": "hours"}, expected: "2026-01-30 17:45:00"},
		{name: "relative weeks", config: models.Config{"due_date_offset": 2, "due_date_unit": "weeks"}, expected: "2026-02-13 14:45:00"},
		{name: "relative months", config: models.Config{"due_date_offset": 1, "due_date_unit": "months"}, expected: "2026-03-02 14:45:00"},
		{name: "relative negative", config: models.Config{"due_date_offset": -1}, expected: "2026-01-29 14:45:00"},
		{name: "relative zero", config: models.Config{"due_date_offset": 0}, expected: "2026-01-30 14:45:00"},
		{name: "relative with time", config: models.Config{"due_date_offset": 1, "due_time": "09:30"}, expected: "2026-01-31 09:30:00"},
		{name: "relative with hour only", config: models.Config{"due_time": "17"}, expected: "2026-01-31 17:00:00"},
		{name: "specific", config: models.Config{"due_date_type": "specific", "due_date": "2026-02-14 10:00"}, expected: "2026-02-14 10:00:00"},
		{name: "specific missing", config: models.Config{"due_date_type": "specific"}, expected: nil},
		{name: "from field", config: models.Config{"due_date_type": "from_field", "due_date_field": "renewal_on", "due_date_offset": -7}, expected: "2026-02-22 00:00:00"},
		{name: "from field without offset", config: models.Config{"due_date_type": "from_field", "due_date_field": "renewal_on"}, expected: "2026-03-01 00:00:00"},
		{name: "from empty field", config: models.Config{"due_date_type": "from_field", "due_date_field": "nope"}, expected: nil},
		{name: "unknown type", config: models.Config{"due_date_type": "whenever"}, expected: "2026-01-31 14:45:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, true)
			output, task := f.run(t, tt.config)

			assert.Equal(t, tt.expected, output["due_date"])
			assert.Equal(t, tt.expected, task.Data["due_date"])
		})
	}
}

func TestAction_Assignee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   models.Config
		expected any
	}{
		{name: "record owner", config: models.Config{"assign_to_type": "record_owner"}, expected: int64(9)},
		{name: "triggered by", config: models.Config{"assign_to_type": "triggered_by"}, expected: int64(5)},
		{name: "specific", config: models.Config{"assign_to_type": "specific_user", "assign_to_user_id": 21}, expected: int64(21)},
		{name: "numeric string field", config: models.Config{"assign_to_type": "field_value", "assign_to_field": "manager_id"}, expected: int64(11)},
		{name: "non numeric field", config: models.Config{"assign_to_type": "field_value", "assign_to_field": "not_numeric"}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, true)
			output, task := f.run(t, tt.config)

			assert.Equal(t, tt.expected, output["assigned_to"])
			assert.Equal(t, tt.expected, task.Data["owner_id"])
		})
	}
}

func TestAction_SingularTaskModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)
	f.store.AddModule(models.Module{ID: 7, APIName: "task"})

	_, task := f.run(t, models.Config{"subject": "x"})
	assert.Equal(t, int64(7), task.ModuleID)
}

func TestAction_MissingTasksModule(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false)

	_, err := f.action.Execute(t.Context(), models.Config{"subject": "x"}, f.execCtx, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, createtask.ErrTasksModuleNotFound)
	require.ErrorIs(t, err, protocol.ErrModuleNotFound)
}

func TestAction_BadSpecificDate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true)

	_, err := f.action.Execute(t.Context(), models.Config{"due_date_type": "specific", "due_date": "next tuesday"}, f.execCtx, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, protocol.ErrInvalidConfig)
}

func TestAction_Validate(t *testing.T) {
	t.Parallel()

	action := createtask.NewAction(nil, nil, nil)

	tests := []struct {
		name     string
		config   models.Config
		expected []string
	}{
		{name: "valid", config: models.Config{"subject": "Follow up"}, expected: nil},
		{name: "missing subject", config: models.Config{}, expected: []string{"subject"}},
		{name: "from field needs field", config: models.Config{"subject": "x", "due_date_type": "from_field"}, expected: []string{"due_date_field"}},
		{name: "specific user needs id", config: models.Config{"subject": "x", "assign_to_type": "specific_user"}, expected: []string{"assign_to_user_id"}},
		{name: "field value needs field", config: models.Config{"subject": "x", "assign_to_type": "field_value"}, expected: []string{"assign_to_field"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			errs := action.Validate(tt.config)
			assert.Len(t, errs, len(tt.expected))

			for _, field := range tt.expected {
				assert.Contains(t, errs, field)
			}
		})
	}
}

func TestAction_ConfigSchema(t *testing.T) {
	t.Parallel()

	schema := createtask.NewAction(nil, nil, nil).ConfigSchema()

	subject, ok := schema.Field("subject")
	require.True(t, ok)
	assert.True(t, subject.Required)
	assert.True(t, subject.SupportsVariables)

	dueTime, ok := schema.Field("due_time")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"due_date_type": "relative"}, dueTime.ShowWhen)
}
