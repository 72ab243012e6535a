package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidStepFile = errors.New("invalid step file")

// Step is one entry of a workflow step file.
type Step struct {
	Name       string        `json:"name"        validate:"required"`
	ActionType string        `json:"action_type" validate:"required"`
	Config     models.Config `json:"config"`
}

const stepsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "action_type"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "action_type": {"type": "string", "minLength": 1},
      "config": {"type": "object"}
    }
  }
}`

// StepReport lists the problems found in one step. Unknown is set when the
// action type is not registered.
type StepReport struct {
	Step    string                  `json:"step"`
	Type    string                  `json:"action_type"`
	Unknown bool                    `json:"unknown,omitempty"`
	Errors  models.ValidationErrors `json:"errors,omitempty"`
}

// ParseSteps checks raw against the step file schema and decodes it.
func ParseSteps(raw []byte) ([]Step, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(stepsSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStepFile, err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidStepFile, strings.Join(messages, "; "))
	}

	var steps []Step
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidStepFile, err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	for i, step := range steps {
		if err := validate.Struct(step); err != nil {
			return nil, fmt.Errorf("%w: step %d: %w", ErrInvalidStepFile, i, err)
		}

		if steps[i].Config == nil {
			steps[i].Config = models.Config{}
		}
	}

	return steps, nil
}

// ValidateSteps runs each step's config through the registry and returns a
// report for every step that has problems.
func ValidateSteps(reg *registry.Registry, steps []Step) []StepReport {
	var reports []StepReport

	for _, step := range steps {
		errs, err := reg.ValidateConfig(step.ActionType, step.Config)
		if errors.Is(err, registry.ErrUnknownActionType) {
			reports = append(reports, StepReport{Step: step.Name, Type: step.ActionType, Unknown: true})

			continue
		}

		if len(errs) > 0 {
			reports = append(reports, StepReport{Step: step.Name, Type: step.ActionType, Errors: errs})
		}
	}

	return reports
}
