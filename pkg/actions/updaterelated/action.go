// Package updaterelated propagates field updates from the triggering record
// to records related to it.
package updaterelated

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/formula"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
)

const Type = "update_related"

// Relation strategies.
const (
	RelationParent = "parent"
	RelationChild  = "child"
	RelationLinked = "linked"
)

type Action struct {
	records  protocol.RecordStore
	modules  protocol.ModuleStore
	resolver *values.Resolver
}

func NewAction(records protocol.RecordStore, modules protocol.ModuleStore, resolver *values.Resolver) *Action {
	return &Action{records: records, modules: modules, resolver: resolver}
}

// Execute finds the related records and writes field_updates to the first
// match, or to every match when update_all is set.
func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := execCtx.RecordID()
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	source, err := a.records.FindRecord(ctx, recordID)
	if err != nil {
		return nil, persistence.NewRecordError("find", recordID, err)
	}

	relation := config.StringOr("relation_type", RelationLinked)

	related, err := a.findRelated(ctx, source, relation, config.String("related_module"), config.String("relation_field"))
	if err != nil {
		return nil, err
	}

	if len(related) == 0 {
		return models.Output{
			"updated":         false,
			"message":         "No related records found",
			"records_updated": 0,
		}, nil
	}

	if !config.Bool("update_all") {
		related = related[:1]
	}

	updates := make(map[string]any)
	for _, mapping := range config.ValueMappings("field_updates") {
		if mapping.Field == "" {
			continue
		}

		updates[mapping.Field] = a.resolve(mapping, execCtx, source)
	}

	updatedIDs := make([]int64, 0, len(related))
	for _, record := range related {
		if err := a.records.UpdateRecord(ctx, record.ID, updates, execCtx.TriggeredByPtr()); err != nil {
			return nil, persistence.NewRecordError("update", record.ID, err)
		}

		updatedIDs = append(updatedIDs, record.ID)
	}

	logger.InfoContext(ctx, "workflow updated related records",
		"relation_type", relation,
		"records_updated", len(updatedIDs),
		"updated_ids", updatedIDs)

	return models.Output{
		"updated":            true,
		"records_updated":    len(updatedIDs),
		"updated_record_ids": updatedIDs,
		"relation_type":      relation,
	}, nil
}

// findRelated returns nil when the relation cannot be followed. Missing
// modules or dangling references are not errors.
func (a *Action) findRelated(ctx context.Context, source *models.Record, relation, moduleAPIName, field string) ([]*models.Record, error) {
	if field == "" {
		return nil, nil
	}

	if relation == RelationParent {
		parentID, ok := models.ValueOf(source.Data[field]).Int()
		if !ok || parentID == 0 {
			return nil, nil
		}

		return a.findOne(ctx, parentID, 0)
	}

	if moduleAPIName == "" {
		return nil, nil
	}

	module, err := a.modules.FindModuleByAPIName(ctx, moduleAPIName)
	if errors.Is(err, protocol.ErrModuleNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	if relation == RelationChild {
		records, err := a.records.FindRecordsByField(ctx, module.ID, field, source.ID)
		if err != nil {
			return nil, fmt.Errorf("find %s records by %s: %w", module.APIName, field, err)
		}

		return records, nil
	}

	linkedID, ok := models.ValueOf(source.Data[field]).Int()
	if !ok || linkedID == 0 {
		return nil, nil
	}

	return a.findOne(ctx, linkedID, module.ID)
}

func (a *Action) findOne(ctx context.Context, id, moduleID int64) ([]*models.Record, error) {
	record, err := a.records.FindRecord(ctx, id)
	if errors.Is(err, protocol.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, persistence.NewRecordError("find", id, err)
	}

	if moduleID != 0 && record.ModuleID != moduleID {
		return nil, nil
	}

	return []*models.Record{record}, nil
}

// resolve differs from the shared resolver for field and formula values:
// both can address the source record as record.<f> or source.<f>.
func (a *Action) resolve(mapping models.ValueMapping, execCtx models.ExecutionContext, source *models.Record) any {
	switch mapping.ValueType {
	case models.ValueTypeField:
		path, ok := models.ValueOf(mapping.Value).String()
		if !ok {
			return nil
		}

		if rest, found := cutSourcePrefix(path); found {
			return source.Data[rest]
		}

		v, ok := execCtx.Lookup(path)
		if !ok {
			return nil
		}

		return v.Raw()
	case models.ValueTypeFormula:
		expression, ok := mapping.Value.(string)
		if !ok {
			return mapping.Value
		}

		return formula.EvaluateData(expression, map[string]any{
			"record": execCtx.Data()[models.ContextKeyRecord],
			"source": source.Data,
		})
	default:
		return a.resolver.ResolveMapping(mapping, execCtx)
	}
}

func cutSourcePrefix(path string) (string, bool) {
	for _, prefix := range []string{"record.", "source."} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			return rest, true
		}
	}

	return "", false
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if config.String("relation_field") == "" {
		errs["relation_field"] = "Relation field is required"
	}

	mappings := config.ValueMappings("field_updates")
	if len(mappings) == 0 {
		errs["field_updates"] = "At least one field update is required"
	}

	for i, mapping := range mappings {
		if mapping.Field == "" {
			errs["field_updates."+strconv.Itoa(i)+".field"] = "Field is required"
		}
	}

	relation := config.StringOr("relation_type", RelationLinked)
	if (relation == RelationChild || relation == RelationLinked) && config.String("related_module") == "" {
		errs["related_module"] = "Related module is required for this relation type"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "relation_type", Label: "Relation Type", Type: models.FieldTypeSelect, Required: true, Default: RelationLinked, Options: []models.Option{
			{Value: RelationParent, Label: "Parent Record (via lookup)"},
			{Value: RelationChild, Label: "Child Records"},
			{Value: RelationLinked, Label: "Linked Record"},
		}},
		{Name: "related_module", Label: "Related Module", Type: models.FieldTypeModuleSelect, Description: "Select the module of related records", ShowWhen: map[string]any{"relation_type": []string{RelationChild, RelationLinked}}},
		{Name: "relation_field", Label: "Relation Field", Type: models.FieldTypeFieldSelect, Required: true, Description: "Field that links the records"},
		{
			Name:        "field_updates",
			Label:       "Field Updates",
			Type:        models.FieldTypeFieldMappingList,
			Required:    true,
			Description: "Fields to update on related records",
			ItemSchema: map[string]models.FieldSchema{
				"field":      {Label: "Field to Update", Type: models.FieldTypeFieldSelect, Required: true},
				"value_type": {Label: "Value Type", Type: models.FieldTypeSelect, Options: models.ValueTypeOptions(models.ValueTypeStatic, models.ValueTypeField, models.ValueTypeFormula, models.ValueTypeCurrentDate, models.ValueTypeCurrentDateTime, models.ValueTypeCurrentUser)},
				"value":      {Label: "Value", Type: models.FieldTypeDynamic, SupportsVariables: true},
			},
		},
		{Name: "update_all", Label: "Update All Matching Records", Type: models.FieldTypeBoolean, Default: false, Description: "If unchecked, only updates the first matching record"},
	}}
}
