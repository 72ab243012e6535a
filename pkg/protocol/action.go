// Package protocol defines the action contract and the collaborator
// capabilities actions call into.
package protocol

import (
	"context"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
)

// Action is a typed unit of work executed as one workflow step.
type Action interface {
	// Execute performs the action's effect and returns a structured output.
	// Soft failures are reported in the output, not as errors.
	Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error)

	// ConfigSchema describes the configuration for form builders.
	ConfigSchema() models.ConfigSchema

	// Validate checks config without side effects.
	Validate(config models.Config) models.ValidationErrors
}
