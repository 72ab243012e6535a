package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence"
)

// LoadExecutionContext builds the context for a run triggered by recordID.
func LoadExecutionContext(ctx context.Context, store persistence.Persistence, recordID int64, triggeredBy *int64) (models.ExecutionContext, error) {
	record, err := store.FindRecord(ctx, recordID)
	if err != nil {
		return models.ExecutionContext{}, fmt.Errorf("failed to load record: %w", err)
	}

	module, err := store.FindModule(ctx, record.ModuleID)
	if err != nil {
		return models.ExecutionContext{}, fmt.Errorf("failed to load module: %w", err)
	}

	return models.NewExecutionContext(*record, *module, triggeredBy), nil
}

// ReadConfig reads an action config from a JSON file.
func ReadConfig(path string) (models.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read action config: %w", err)
	}

	config := models.Config{}
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to parse action config: %w", err)
	}

	return config, nil
}
