package models

import "time"

// Module is a record type such as "leads" or "deals".
type Module struct {
	ID      int64  `json:"id"`
	APIName string `json:"api_name"`
	Name    string `json:"name"`
}

// Record is a single module record with its dynamic field values.
type Record struct {
	ID        int64          `json:"id"`
	ModuleID  int64          `json:"module_id"`
	Data      map[string]any `json:"data"`
	CreatedBy *int64         `json:"created_by,omitempty"`
	UpdatedBy *int64         `json:"updated_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Field returns a single field value.
func (r *Record) Field(name string) (Value, bool) {
	if r == nil || r.Data == nil {
		return Value{}, false
	}

	v, ok := r.Data[name]

	return ValueOf(v), ok
}

// Pipeline groups the stages a record moves through. StageField names the
// record field that stores the current stage id.
type Pipeline struct {
	ID         int64  `json:"id"`
	ModuleID   int64  `json:"module_id"`
	Name       string `json:"name"`
	StageField string `json:"stage_field_api_name"`
}

// Stage is one step of a pipeline.
type Stage struct {
	ID           int64  `json:"id"`
	PipelineID   int64  `json:"pipeline_id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}

// StageTransition is a stage change recorded for audit.
type StageTransition struct {
	RecordID   int64     `json:"record_id"`
	PipelineID int64     `json:"pipeline_id"`
	FromStage  any       `json:"from_stage"`
	ToStageID  int64     `json:"to_stage_id"`
	ChangedBy  *int64    `json:"changed_by,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}

// User is an account that can own records.
type User struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Active bool   `json:"is_active"`
}

// Tag is a label attachable to records.
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

// Notification is an in-app message for a user.
type Notification struct {
	UserID        int64  `json:"user_id"`
	Title         string `json:"title"`
	Message       string `json:"message"`
	Type          string `json:"type"`
	RecordID      *int64 `json:"record_id,omitempty"`
	ModuleAPIName string `json:"module_api_name,omitempty"`
}
