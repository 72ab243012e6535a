// Package createtask creates a follow-up task record linked to the triggering record.
package createtask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
)

const Type = "create_task"

// Due date strategies.
const (
	DueDateSpecific  = "specific"
	DueDateRelative  = "relative"
	DueDateFromField = "from_field"
)

// Assignee strategies.
const (
	AssignSpecific    = "specific_user"
	AssignOwner       = "record_owner"
	AssignTriggeredBy = "triggered_by"
	AssignFromField   = "field_value"
)

var tasksModuleNames = []string{"tasks", "task"}

var ErrTasksModuleNotFound = errors.New("tasks module not found")

type Action struct {
	records protocol.RecordStore
	modules protocol.ModuleStore
	now     func() time.Time
}

func NewAction(records protocol.RecordStore, modules protocol.ModuleStore, now func() time.Time) *Action {
	if now == nil {
		now = time.Now
	}

	return &Action{records: records, modules: modules, now: now}
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	module, err := a.tasksModule(ctx)
	if err != nil {
		return nil, err
	}

	dueDate, err := a.resolveDueDate(config, execCtx)
	if err != nil {
		return nil, err
	}

	assignedTo := resolveAssignee(config, execCtx)
	subject := template.Interpolate(config.StringOr("subject", "New Task"), execCtx)

	var due any
	if dueDate != nil {
		due = dueDate.Format(actionutil.DateTimeLayout)
	}

	var owner any
	if assignedTo != nil {
		owner = *assignedTo
	}

	data := map[string]any{
		"subject":         subject,
		"description":     template.Interpolate(config.String("description"), execCtx),
		"due_date":        due,
		"priority":        config.StringOr("priority", "normal"),
		"status":          config.StringOr("status", "pending"),
		"owner_id":        owner,
		"related_to_type": execCtx.ModuleAPIName(),
		"related_to_id":   nil,
	}

	if recordID, ok := execCtx.RecordID(); ok {
		data["related_to_id"] = recordID
	}

	for field, value := range config.Map("additional_fields") {
		rendered, _ := models.ValueOf(value).String()
		data[field] = template.Interpolate(rendered, execCtx)
	}

	createdBy := execCtx.TriggeredByPtr()
	if createdBy == nil {
		createdBy = assignedTo
	}

	taskID, err := a.records.CreateRecord(ctx, module.ID, data, createdBy)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	logger.InfoContext(ctx, "workflow created task", "task_id", taskID, "assigned_to", owner, "due_date", due)

	return models.Output{
		"created":     true,
		"task_id":     taskID,
		"subject":     subject,
		"assigned_to": owner,
		"due_date":    due,
	}, nil
}

func (a *Action) tasksModule(ctx context.Context) (*models.Module, error) {
	for _, name := range tasksModuleNames {
		module, err := a.modules.FindModuleByAPIName(ctx, name)
		if err == nil {
			return module, nil
		}

		if !errors.Is(err, protocol.ErrModuleNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %w", ErrTasksModuleNotFound, protocol.ErrModuleNotFound)
}

func (a *Action) resolveDueDate(config models.Config, execCtx models.ExecutionContext) (*time.Time, error) {
	switch config.StringOr("due_date_type", DueDateRelative) {
	case DueDateSpecific:
		if !config.Has("due_date") {
			return nil, nil
		}

		due, err := actionutil.ParseTime(template.Interpolate(config.String("due_date"), execCtx), a.now().Location())
		if err != nil {
			return nil, err
		}

		return &due, nil
	case DueDateFromField:
		field := config.String("due_date_field")
		if field == "" {
			return nil, nil
		}

		value, ok := execCtx.RecordField(field)
		if !ok || models.IsEmpty(value.Raw()) {
			return nil, nil
		}

		base, err := actionutil.ParseTime(value.Raw(), a.now().Location())
		if err != nil {
			return nil, err
		}

		offset, _ := config.Int64("due_date_offset")
		due := actionutil.AddOffset(base, int(offset), config.StringOr("due_date_unit", actionutil.UnitDays))

		return &due, nil
	case DueDateRelative:
		offset := int64(1)
		if v, ok := config.Int64("due_date_offset"); ok {
			offset = v
		}

		due := actionutil.AddOffset(a.now(), int(offset), config.StringOr("due_date_unit", actionutil.UnitDays))

		if dueTime := config.String("due_time"); dueTime != "" {
			due = applyTimeOfDay(due, dueTime)
		}

		return &due, nil
	default:
		due := a.now().AddDate(0, 0, 1)

		return &due, nil
	}
}

// applyTimeOfDay sets the clock to HH:MM; a missing hour means 09 and a missing minute 00.
func applyTimeOfDay(t time.Time, hhmm string) time.Time {
	hour, minute := 9, 0

	var h, m int
	if n, _ := fmt.Sscanf(hhmm, "%d:%d", &h, &m); n >= 1 {
		hour = h
		if n == 2 {
			minute = m
		}
	}

	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

func resolveAssignee(config models.Config, execCtx models.ExecutionContext) *int64 {
	switch config.StringOr("assign_to_type", AssignOwner) {
	case AssignSpecific:
		return idPtr(config.Get("assign_to_user_id"))
	case AssignOwner:
		owner, ok := execCtx.RecordField("owner_id")
		if !ok {
			return nil
		}

		return idPtr(owner)
	case AssignFromField:
		field := config.String("assign_to_field")
		if field == "" {
			return nil
		}

		value, ok := execCtx.RecordField(field)
		if !ok {
			return nil
		}

		return idPtr(value)
	default:
		return execCtx.TriggeredByPtr()
	}
}

func idPtr(v models.Value) *int64 {
	id, ok := v.Int()
	if !ok {
		return nil
	}

	return &id
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if !config.Has("subject") {
		errs["subject"] = "Task subject is required"
	}

	if config.StringOr("due_date_type", DueDateRelative) == DueDateFromField && !config.Has("due_date_field") {
		errs["due_date_field"] = `Date field is required when using "From Record Field"`
	}

	switch config.StringOr("assign_to_type", AssignOwner) {
	case AssignSpecific:
		if !config.Has("assign_to_user_id") {
			errs["assign_to_user_id"] = "User is required when assigning to specific user"
		}
	case AssignFromField:
		if !config.Has("assign_to_field") {
			errs["assign_to_field"] = "User field is required"
		}
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	offsetTypes := map[string]any{"due_date_type": []string{DueDateRelative, DueDateFromField}}

	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "subject", Label: "Task Subject", Type: models.FieldTypeText, Required: true, SupportsVariables: true, Description: "Use {{record.field_name}} for dynamic values"},
		{Name: "description", Label: "Description", Type: models.FieldTypeTextarea, SupportsVariables: true},
		{Name: "priority", Label: "Priority", Type: models.FieldTypeSelect, Default: "normal", Options: []models.Option{
			{Value: "low", Label: "Low"},
			{Value: "normal", Label: "Normal"},
			{Value: "high", Label: "High"},
			{Value: "urgent", Label: "Urgent"},
		}},
		{Name: "status", Label: "Initial Status", Type: models.FieldTypeSelect, Default: "pending", Options: []models.Option{
			{Value: "pending", Label: "Pending"},
			{Value: "in_progress", Label: "In Progress"},
			{Value: "completed", Label: "Completed"},
		}},
		{Name: "due_date_type", Label: "Due Date Type", Type: models.FieldTypeSelect, Required: true, Default: DueDateRelative, Options: []models.Option{
			{Value: DueDateRelative, Label: "Relative (X days from now)"},
			{Value: DueDateSpecific, Label: "Specific Date"},
			{Value: DueDateFromField, Label: "From Record Field"},
		}},
		{Name: "due_date_offset", Label: "Offset Amount", Type: models.FieldTypeNumber, Default: 1, Description: "Number of time units to add (can be negative)", ShowWhen: offsetTypes},
		{Name: "due_date_unit", Label: "Time Unit", Type: models.FieldTypeSelect, Default: actionutil.UnitDays, ShowWhen: offsetTypes, Options: []models.Option{
			{Value: actionutil.UnitHours, Label: "Hours"},
			{Value: actionutil.UnitDays, Label: "Days"},
			{Value: actionutil.UnitWeeks, Label: "Weeks"},
			{Value: actionutil.UnitMonths, Label: "Months"},
		}},
		{Name: "due_time", Label: "Due Time", Type: models.FieldTypeTime, Description: "Optional: Set specific time (e.g., 09:00)", ShowWhen: map[string]any{"due_date_type": DueDateRelative}},
		{Name: "due_date", Label: "Due Date", Type: models.FieldTypeDateTime, ShowWhen: map[string]any{"due_date_type": DueDateSpecific}},
		{Name: "due_date_field", Label: "Date Field", Type: models.FieldTypeFieldSelect, Description: "Select date field to base due date on", ShowWhen: map[string]any{"due_date_type": DueDateFromField}},
		{Name: "assign_to_type", Label: "Assign To", Type: models.FieldTypeSelect, Required: true, Default: AssignOwner, Options: []models.Option{
			{Value: AssignOwner, Label: "Record Owner"},
			{Value: AssignTriggeredBy, Label: "User Who Triggered Workflow"},
			{Value: AssignSpecific, Label: "Specific User"},
			{Value: AssignFromField, Label: "From Record Field"},
		}},
		{Name: "assign_to_user_id", Label: "User", Type: models.FieldTypeUserSelect, ShowWhen: map[string]any{"assign_to_type": AssignSpecific}},
		{Name: "assign_to_field", Label: "User Field", Type: models.FieldTypeFieldSelect, Description: "Select field containing user ID", ShowWhen: map[string]any{"assign_to_type": AssignFromField}},
		{Name: "additional_fields", Label: "Additional Fields", Type: models.FieldTypeKeyValue, SupportsVariables: true},
	}}
}
