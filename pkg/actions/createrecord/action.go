// Package createrecord creates a record in a target module from value mappings.
package createrecord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
)

const Type = "create_record"

type Action struct {
	records  protocol.RecordStore
	modules  protocol.ModuleStore
	resolver *values.Resolver
}

func NewAction(records protocol.RecordStore, modules protocol.ModuleStore, resolver *values.Resolver) *Action {
	return &Action{records: records, modules: modules, resolver: resolver}
}

// Execute resolves field_mappings against the context and creates exactly
// one record. When link_field is set the new record stores the triggering
// record's id in that field.
func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	module, err := actionutil.ResolveModule(ctx, a.modules, config)
	if err != nil {
		return nil, err
	}

	data := a.resolver.ResolveAll(config.ValueMappings("field_mappings"), execCtx)

	if linkField := config.String("link_field"); linkField != "" {
		if sourceID, ok := execCtx.RecordID(); ok {
			data[linkField] = sourceID
		}
	}

	recordID, err := a.records.CreateRecord(ctx, module.ID, data, execCtx.TriggeredByPtr())
	if err != nil {
		return nil, fmt.Errorf("create %s record: %w", module.APIName, err)
	}

	logger.InfoContext(ctx, "workflow created record", "module", module.APIName, "new_record_id", recordID)

	return models.Output{
		"created":    true,
		"record_id":  recordID,
		"module_id":  module.ID,
		"module":     module.APIName,
		"field_data": data,
	}, nil
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if !config.Has("module_id") && !config.Has("module_api_name") {
		errs["module_id"] = "Target module is required"
	}

	for _, mapping := range config.ValueMappings("field_mappings") {
		if mapping.Field == "" {
			errs["field_mappings"] = "Every field mapping needs a field"

			break
		}
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "module_id", Label: "Module", Type: models.FieldTypeModuleSelect, Required: true},
		{
			Name:              "field_mappings",
			Label:             "Field Values",
			Type:              models.FieldTypeFieldMappingList,
			SupportsVariables: true,
			ItemSchema: map[string]models.FieldSchema{
				"field":      {Label: "Field", Type: models.FieldTypeFieldSelect, Required: true},
				"value_type": {Label: "Value Type", Type: models.FieldTypeSelect, Default: models.ValueTypeStatic, Options: models.ValueTypeOptions(models.ValueTypeStatic, models.ValueTypeField, models.ValueTypeFormula, models.ValueTypeRecordID, models.ValueTypeCurrentUser, models.ValueTypeCurrentDate, models.ValueTypeCurrentDateTime, models.ValueTypeNull)},
				"value":      {Label: "Value", Type: models.FieldTypeDynamic},
			},
		},
		{Name: "link_field", Label: "Link Back Field", Type: models.FieldTypeText, Description: "Optional field on the new record that stores the triggering record id"},
	}}
}
