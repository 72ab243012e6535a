package models

// Field widget types understood by the configuration form builder.
const (
	FieldTypeText             = "text"
	FieldTypeTextarea         = "textarea"
	FieldTypeRichText         = "richtext"
	FieldTypeNumber           = "number"
	FieldTypeBoolean          = "boolean"
	FieldTypeSelect           = "select"
	FieldTypeMultiSelect      = "multiselect"
	FieldTypeTags             = "tags"
	FieldTypeTime             = "time"
	FieldTypeDateTime         = "datetime"
	FieldTypeURL              = "url"
	FieldTypeKeyValue         = "key_value"
	FieldTypeJSON             = "json"
	FieldTypeRecipients       = "recipients"
	FieldTypeUserSelect       = "user_select"
	FieldTypeUserMultiSelect  = "user_multiselect"
	FieldTypeRoleSelect       = "role_select"
	FieldTypeModuleSelect     = "module_select"
	FieldTypeFieldSelect      = "field_select"
	FieldTypePipelineSelect   = "pipeline_select"
	FieldTypeStageSelect      = "stage_select"
	FieldTypeTagSelect        = "tag_select"
	FieldTypeFieldMappingList = "field_mapping_list"
	FieldTypeBranchList       = "branch_list"
	FieldTypeDynamic          = "dynamic"
)

// ConfigSchema describes an action's configuration for UI form builders. It
// is not enforced at runtime; Validate is.
type ConfigSchema struct {
	Fields []FieldSchema `json:"fields"`
}

// FieldSchema is a single configurable field.
type FieldSchema struct {
	Name              string                 `json:"name,omitempty"`
	Label             string                 `json:"label"`
	Type              string                 `json:"type"`
	Required          bool                   `json:"required"`
	Default           any                    `json:"default,omitempty"`
	Description       string                 `json:"description,omitempty"`
	Options           []Option               `json:"options,omitempty"`
	ShowWhen          map[string]any         `json:"show_when,omitempty"`
	SupportsVariables bool                   `json:"supports_variables,omitempty"`
	ItemSchema        map[string]FieldSchema `json:"item_schema,omitempty"`
}

// Option is one choice of a select field.
type Option struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

// Field returns the field descriptor named name.
func (s ConfigSchema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return FieldSchema{}, false
}

// ValueTypeOptions lists the value_type choices of a value mapping.
func ValueTypeOptions(types ...string) []Option {
	labels := map[string]string{
		ValueTypeStatic:          "Static Value",
		ValueTypeField:           "From Field",
		ValueTypeFormula:         "Formula",
		ValueTypeNow:             "Now",
		ValueTypeNull:            "Clear Value",
		ValueTypeCurrentUser:     "Current User",
		ValueTypeCurrentDate:     "Current Date",
		ValueTypeCurrentDateTime: "Current Date/Time",
		ValueTypeRecordID:        "Record ID",
	}

	options := make([]Option, 0, len(types))
	for _, t := range types {
		options = append(options, Option{Value: t, Label: labels[t]})
	}

	return options
}
