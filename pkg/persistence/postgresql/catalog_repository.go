package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

// CatalogRepository handles modules, pipelines and stage history.
type CatalogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewCatalogRepository(db *sql.DB, logger *slog.Logger) *CatalogRepository {
	return &CatalogRepository{db: db, logger: logger}
}

func (r *CatalogRepository) FindModule(ctx context.Context, id int64) (*models.Module, error) {
	return r.findModule(ctx, `SELECT id, api_name, name FROM modules WHERE id = $1`, id)
}

func (r *CatalogRepository) FindModuleByAPIName(ctx context.Context, apiName string) (*models.Module, error) {
	return r.findModule(ctx, `SELECT id, api_name, name FROM modules WHERE api_name = $1`, apiName)
}

func (r *CatalogRepository) findModule(ctx context.Context, query string, arg any) (*models.Module, error) {
	var module models.Module

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&module.ID, &module.APIName, &module.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", protocol.ErrModuleNotFound, arg)
		}

		return nil, fmt.Errorf("failed to query module: %w", err)
	}

	return &module, nil
}

// SaveModule inserts module, or updates its name when the api name exists,
// and sets module.ID.
func (r *CatalogRepository) SaveModule(ctx context.Context, module *models.Module) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO modules (api_name, name) VALUES ($1, $2)
		ON CONFLICT (api_name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, module.APIName, module.Name).Scan(&module.ID)
	if err != nil {
		return fmt.Errorf("failed to save module %s: %w", module.APIName, err)
	}

	return nil
}

func (r *CatalogRepository) FindPipeline(ctx context.Context, id int64) (*models.Pipeline, error) {
	var pipeline models.Pipeline

	err := r.db.QueryRowContext(ctx, `
		SELECT id, module_id, name, stage_field_api_name FROM pipelines WHERE id = $1
	`, id).Scan(&pipeline.ID, &pipeline.ModuleID, &pipeline.Name, &pipeline.StageField)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", protocol.ErrPipelineNotFound, id)
		}

		return nil, fmt.Errorf("failed to query pipeline: %w", err)
	}

	return &pipeline, nil
}

func (r *CatalogRepository) SavePipeline(ctx context.Context, pipeline *models.Pipeline) error {
	stageField := pipeline.StageField
	if stageField == "" {
		stageField = "stage_id"
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO pipelines (module_id, name, stage_field_api_name) VALUES ($1, $2, $3) RETURNING id
	`, pipeline.ModuleID, pipeline.Name, stageField).Scan(&pipeline.ID)
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return fmt.Errorf("%w: %d", protocol.ErrModuleNotFound, pipeline.ModuleID)
		}

		return fmt.Errorf("failed to save pipeline: %w", err)
	}

	pipeline.StageField = stageField

	return nil
}

// FindStage returns stageID only when it belongs to pipelineID.
func (r *CatalogRepository) FindStage(ctx context.Context, pipelineID, stageID int64) (*models.Stage, error) {
	var stage models.Stage

	err := r.db.QueryRowContext(ctx, `
		SELECT id, pipeline_id, name, display_order FROM stages WHERE id = $1 AND pipeline_id = $2
	`, stageID, pipelineID).Scan(&stage.ID, &stage.PipelineID, &stage.Name, &stage.DisplayOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d in pipeline %d", protocol.ErrStageNotFound, stageID, pipelineID)
		}

		return nil, fmt.Errorf("failed to query stage: %w", err)
	}

	return &stage, nil
}

func (r *CatalogRepository) SaveStage(ctx context.Context, stage *models.Stage) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stages (pipeline_id, name, display_order) VALUES ($1, $2, $3) RETURNING id
	`, stage.PipelineID, stage.Name, stage.DisplayOrder).Scan(&stage.ID)
	if err != nil {
		if isPQError(err, foreignKeyViolation) {
			return fmt.Errorf("%w: %d", protocol.ErrPipelineNotFound, stage.PipelineID)
		}

		return fmt.Errorf("failed to save stage: %w", err)
	}

	return nil
}

// RecordTransition appends to stage_history. The previous stage is stored
// as jsonb because records may hold it as a number or a string.
func (r *CatalogRepository) RecordTransition(ctx context.Context, transition models.StageTransition) error {
	from, err := json.Marshal(transition.FromStage)
	if err != nil {
		return fmt.Errorf("failed to marshal previous stage: %w", err)
	}

	var changedAt any
	if !transition.ChangedAt.IsZero() {
		changedAt = transition.ChangedAt
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO stage_history (record_id, pipeline_id, from_stage, to_stage_id, changed_by, reason, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, NOW()))
	`, transition.RecordID, transition.PipelineID, from, transition.ToStageID, transition.ChangedBy, transition.Reason, changedAt)
	if err != nil {
		return fmt.Errorf("failed to record stage transition for record %d: %w", transition.RecordID, err)
	}

	return nil
}

// Transitions returns the stage history of recordID, oldest first.
func (r *CatalogRepository) Transitions(ctx context.Context, recordID int64) ([]models.StageTransition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT record_id, pipeline_id, from_stage, to_stage_id, changed_by, COALESCE(reason, ''), changed_at
		FROM stage_history WHERE record_id = $1 ORDER BY id
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage history: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	out := make([]models.StageTransition, 0)

	for rows.Next() {
		var (
			t         models.StageTransition
			from      []byte
			changedBy sql.NullInt64
		)

		if err := rows.Scan(&t.RecordID, &t.PipelineID, &from, &t.ToStageID, &changedBy, &t.Reason, &t.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stage transition: %w", err)
		}

		if len(from) > 0 {
			if t.FromStage, err = decodeValue(from); err != nil {
				return nil, err
			}
		}

		t.ChangedBy = nullInt64Ptr(changedBy)
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage history: %w", err)
	}

	return out, nil
}
