// Package updaterecord applies resolved field mappings to an existing record.
package updaterecord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
)

const Type = "update_record"

type Action struct {
	records  protocol.RecordStore
	resolver *values.Resolver
}

func NewAction(records protocol.RecordStore, resolver *values.Resolver) *Action {
	return &Action{records: records, resolver: resolver}
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	updates := a.resolver.ResolveAll(config.ValueMappings("field_mappings"), execCtx)

	return Apply(ctx, a.records, recordID, updates, execCtx.TriggeredByPtr(), logger)
}

// Apply writes the fields of updates that differ from the stored record and
// reports which ones changed. A record with nothing to change is left alone.
func Apply(ctx context.Context, records protocol.RecordStore, recordID int64, updates map[string]any, updatedBy *int64, logger *slog.Logger) (models.Output, error) {
	record, err := records.FindRecord(ctx, recordID)
	if err != nil {
		return nil, persistence.NewRecordError("find", recordID, err)
	}

	changed, fields := actionutil.Changes(record.Data, updates)
	if len(changed) == 0 {
		return models.Output{
			"updated":        false,
			"record_id":      recordID,
			"changed_fields": fields,
			"values":         changed,
		}, nil
	}

	if err := records.UpdateRecord(ctx, recordID, changed, updatedBy); err != nil {
		return nil, persistence.NewRecordError("update", recordID, err)
	}

	logger.InfoContext(ctx, "workflow updated record", "target_record_id", recordID, "changed_fields", fields)

	return models.Output{
		"updated":        true,
		"record_id":      recordID,
		"changed_fields": fields,
		"values":         changed,
	}, nil
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	mappings := config.ValueMappings("field_mappings")
	if len(mappings) == 0 {
		errs["field_mappings"] = "At least one field update is required"

		return errs
	}

	for _, mapping := range mappings {
		if mapping.Field == "" {
			errs["field_mappings"] = "Every field update needs a field"

			break
		}
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
		{
			Name:              "field_mappings",
			Label:             "Field Updates",
			Type:              models.FieldTypeFieldMappingList,
			Required:          true,
			SupportsVariables: true,
			ItemSchema: map[string]models.FieldSchema{
				"field":      {Label: "Field", Type: models.FieldTypeFieldSelect, Required: true},
				"value_type": {Label: "Value Type", Type: models.FieldTypeSelect, Default: models.ValueTypeStatic, Options: models.ValueTypeOptions(models.ValueTypeStatic, models.ValueTypeField, models.ValueTypeFormula, models.ValueTypeCurrentUser, models.ValueTypeCurrentDate, models.ValueTypeCurrentDateTime, models.ValueTypeNull)},
				"value":      {Label: "Value", Type: models.FieldTypeDynamic},
			},
		},
	}}
}
