// Package movestage moves a record to another stage of a pipeline and
// records the transition.
package movestage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

const Type = "move_stage"

// DefaultStageField is used for pipelines without a configured stage field.
const DefaultStageField = "stage_id"

type Action struct {
	records   protocol.RecordStore
	pipelines protocol.PipelineStore
	history   protocol.StageHistory
	now       func() time.Time
}

// NewAction creates the action. history may be nil, in which case
// transitions are not recorded.
func NewAction(records protocol.RecordStore, pipelines protocol.PipelineStore, history protocol.StageHistory, now func() time.Time) *Action {
	if now == nil {
		now = time.Now
	}

	return &Action{records: records, pipelines: pipelines, history: history, now: now}
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	pipelineID, ok := config.Int64("pipeline_id")
	if !ok {
		return nil, fmt.Errorf("%w: pipeline_id is required", protocol.ErrInvalidConfig)
	}

	stageID, ok := config.Int64("stage_id")
	if !ok {
		return nil, fmt.Errorf("%w: stage_id is required", protocol.ErrInvalidConfig)
	}

	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	record, err := a.records.FindRecord(ctx, recordID)
	if err != nil {
		return nil, persistence.NewRecordError("find", recordID, err)
	}

	pipeline, err := a.pipelines.FindPipeline(ctx, pipelineID)
	if err != nil {
		return nil, fmt.Errorf("find pipeline %d: %w", pipelineID, err)
	}

	stage, err := a.pipelines.FindStage(ctx, pipelineID, stageID)
	if err != nil {
		return nil, fmt.Errorf("find stage %d: %w", stageID, err)
	}

	stageField := pipeline.StageField
	if stageField == "" {
		stageField = DefaultStageField
	}

	previous := record.Data[stageField]

	if actionutil.SameValue(previous, stage.ID) || actionutil.SameValue(previous, fmt.Sprint(stage.ID)) {
		return models.Output{
			"moved":       false,
			"record_id":   recordID,
			"pipeline_id": pipelineID,
			"stage_id":    stage.ID,
			"reason":      "already_in_stage",
		}, nil
	}

	updatedBy := execCtx.TriggeredByPtr()
	if err := a.records.UpdateRecord(ctx, recordID, map[string]any{stageField: stage.ID}, updatedBy); err != nil {
		return nil, persistence.NewRecordError("update", recordID, err)
	}

	if a.history != nil {
		err := a.history.RecordTransition(ctx, models.StageTransition{
			RecordID:   recordID,
			PipelineID: pipelineID,
			FromStage:  previous,
			ToStageID:  stage.ID,
			ChangedBy:  updatedBy,
			Reason:     config.StringOr("reason", "Moved by workflow"),
			ChangedAt:  a.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("record stage transition: %w", err)
		}
	}

	logger.InfoContext(ctx, "workflow moved record to stage",
		"target_record_id", recordID,
		"pipeline_id", pipelineID,
		"from_stage", previous,
		"to_stage", stage.ID)

	return models.Output{
		"moved":         true,
		"record_id":     recordID,
		"pipeline_id":   pipelineID,
		"from_stage":    previous,
		"stage_id":      stage.ID,
		"to_stage_name": stage.Name,
	}, nil
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if _, ok := config.Int64("pipeline_id"); !ok {
		errs["pipeline_id"] = "Pipeline is required"
	}

	if _, ok := config.Int64("stage_id"); !ok {
		errs["stage_id"] = "Stage is required"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "pipeline_id", Label: "Pipeline", Type: models.FieldTypePipelineSelect, Required: true},
		{Name: "stage_id", Label: "Stage", Type: models.FieldTypeStageSelect, Required: true, ShowWhen: map[string]any{"pipeline_id": "*"}},
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
		{Name: "reason", Label: "Reason", Type: models.FieldTypeText},
	}}
}
