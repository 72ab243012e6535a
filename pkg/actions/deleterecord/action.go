// Package deleterecord removes a record. Deleting a record that is already
// gone is reported in the output, not as an error.
package deleterecord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

const Type = "delete_record"

type Action struct {
	records protocol.RecordStore
}

func NewAction(records protocol.RecordStore) *Action {
	return &Action{records: records}
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	err := a.records.DeleteRecord(ctx, recordID)
	if errors.Is(err, protocol.ErrRecordNotFound) {
		logger.WarnContext(ctx, "record already deleted", "target_record_id", recordID)

		return models.Output{"deleted": false, "record_id": recordID, "reason": "not_found"}, nil
	}

	if err != nil {
		return nil, persistence.NewRecordError("delete", recordID, err)
	}

	logger.InfoContext(ctx, "workflow deleted record", "target_record_id", recordID)

	return models.Output{"deleted": true, "record_id": recordID}, nil
}

func (a *Action) Validate(models.Config) models.ValidationErrors {
	return models.ValidationErrors{}
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
	}}
}
