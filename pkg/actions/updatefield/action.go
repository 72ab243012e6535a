// Package updatefield sets one or more fields on a record.
package updatefield

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/updaterecord"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
)

const Type = "update_field"

type Action struct {
	records  protocol.RecordStore
	resolver *values.Resolver
}

func NewAction(records protocol.RecordStore, resolver *values.Resolver) *Action {
	return &Action{records: records, resolver: resolver}
}

// Execute accepts either a single field/value/value_type triple or an
// updates list of the same shape. The list wins when both are present.
func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	mappings := fieldUpdates(config)
	if len(mappings) == 0 {
		return nil, fmt.Errorf("%w: no field to update", protocol.ErrInvalidConfig)
	}

	updates := a.resolver.ResolveAll(mappings, execCtx)

	return updaterecord.Apply(ctx, a.records, recordID, updates, execCtx.TriggeredByPtr(), logger)
}

func fieldUpdates(config models.Config) []models.ValueMapping {
	if config.Has("updates") {
		return config.ValueMappings("updates")
	}

	field := config.String("field")
	if field == "" {
		return nil
	}

	return []models.ValueMapping{{
		Field:     field,
		Value:     config["value"],
		ValueType: config.StringOr("value_type", models.ValueTypeStatic),
	}}
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	mappings := fieldUpdates(config)
	if len(mappings) == 0 {
		errs["field"] = "Field is required"

		return errs
	}

	for _, mapping := range mappings {
		if mapping.Field == "" {
			errs["updates"] = "Every update needs a field"

			break
		}
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	valueTypes := models.ValueTypeOptions(models.ValueTypeStatic, models.ValueTypeField, models.ValueTypeFormula, models.ValueTypeCurrentUser, models.ValueTypeCurrentDate, models.ValueTypeCurrentDateTime, models.ValueTypeNull)

	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
		{Name: "field", Label: "Field", Type: models.FieldTypeFieldSelect, Required: true},
		{Name: "value_type", Label: "Value Type", Type: models.FieldTypeSelect, Default: models.ValueTypeStatic, Options: valueTypes},
		{Name: "value", Label: "Value", Type: models.FieldTypeDynamic, SupportsVariables: true},
		{
			Name:  "updates",
			Label: "Multiple Updates",
			Type:  models.FieldTypeFieldMappingList,
			ItemSchema: map[string]models.FieldSchema{
				"field":      {Label: "Field", Type: models.FieldTypeFieldSelect, Required: true},
				"value_type": {Label: "Value Type", Type: models.FieldTypeSelect, Default: models.ValueTypeStatic, Options: valueTypes},
				"value":      {Label: "Value", Type: models.FieldTypeDynamic},
			},
		},
	}}
}
