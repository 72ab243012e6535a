// Package condition selects a workflow branch by evaluating condition sets
// in declared order.
package condition

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

const Type = "condition"

// Evaluation modes.
const (
	ModeFirstMatch  = "first_match"
	ModeAllMatching = "all_matching"
)

// Branch is one condition-guarded continuation.
type Branch struct {
	ID         string
	Name       string
	Conditions any
}

type Action struct {
	evaluator protocol.ConditionEvaluator
}

func NewAction(evaluator protocol.ConditionEvaluator) *Action {
	return &Action{evaluator: evaluator}
}

// ParseBranches reads the branches list. Both branch_id and id name a
// branch; numeric ids are rendered as strings.
func ParseBranches(config models.Config) []Branch {
	items := config.List("branches")
	out := make([]Branch, 0, len(items))

	for _, item := range items {
		entry, ok := models.ValueOf(item).Map()
		if !ok {
			out = append(out, Branch{})

			continue
		}

		branch := models.Config(entry)

		id := branch.String("branch_id")
		if id == "" {
			id = branch.String("id")
		}

		out = append(out, Branch{
			ID:         strings.TrimSpace(id),
			Name:       branch.String("name"),
			Conditions: entry["conditions"],
		})
	}

	return out
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	if errs := a.Validate(config); !errs.Valid() {
		return nil, fmt.Errorf("%w: %s", protocol.ErrInvalidConfig, describe(errs))
	}

	branches := ParseBranches(config)
	mode := config.StringOr("evaluation_mode", ModeFirstMatch)

	var (
		matching = []string{}
		names    = []string{}
	)

	for _, branch := range branches {
		if !a.evaluator.Evaluate(ctx, branch.Conditions, execCtx) {
			continue
		}

		matching = append(matching, branch.ID)
		names = append(names, branch.Name)

		if mode == ModeFirstMatch {
			break
		}
	}

	output := models.Output{
		"evaluation_mode":   mode,
		"matching_branches": matching,
	}

	if len(matching) > 0 {
		output["selected_branch"] = matching[0]
		output["branch_name"] = names[0]
		output["used_default"] = false
		output["no_match"] = false

		logger.InfoContext(ctx, "condition branch selected", "branch", matching[0], "matches", len(matching))

		return output, nil
	}

	if def := config.String("default_branch"); def != "" {
		output["selected_branch"] = def
		output["used_default"] = true
		output["no_match"] = false

		logger.InfoContext(ctx, "condition default branch selected", "branch", def)

		return output, nil
	}

	output["selected_branch"] = nil
	output["used_default"] = false
	output["no_match"] = true

	logger.InfoContext(ctx, "no condition branch matched")

	return output, nil
}

func describe(errs models.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, field := range slices.Sorted(maps.Keys(errs)) {
		parts = append(parts, field+": "+errs[field])
	}

	return strings.Join(parts, "; ")
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	mode := config.StringOr("evaluation_mode", ModeFirstMatch)
	if mode != ModeFirstMatch && mode != ModeAllMatching {
		errs["evaluation_mode"] = "Unknown evaluation mode"
	}

	branches := ParseBranches(config)
	if len(branches) == 0 {
		errs["branches"] = "At least one branch is required"

		return errs
	}

	seen := make(map[string]struct{}, len(branches))

	for i, branch := range branches {
		prefix := "branches." + strconv.Itoa(i)

		if branch.ID == "" {
			errs[prefix+".branch_id"] = "Branch id is required"
		} else if _, dup := seen[branch.ID]; dup {
			errs[prefix+".branch_id"] = "Duplicate branch id: " + branch.ID
		}

		seen[branch.ID] = struct{}{}

		if models.IsEmpty(branch.Conditions) {
			errs[prefix+".conditions"] = "Branch needs at least one condition"
		}
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "evaluation_mode", Label: "Evaluation", Type: models.FieldTypeSelect, Default: ModeFirstMatch, Options: []models.Option{
			{Value: ModeFirstMatch, Label: "First matching branch"},
			{Value: ModeAllMatching, Label: "All matching branches"},
		}},
		{
			Name:     "branches",
			Label:    "Branches",
			Type:     models.FieldTypeBranchList,
			Required: true,
			ItemSchema: map[string]models.FieldSchema{
				"branch_id":  {Label: "Branch ID", Type: models.FieldTypeText, Required: true},
				"name":       {Label: "Name", Type: models.FieldTypeText},
				"conditions": {Label: "Conditions", Type: models.FieldTypeJSON, Required: true},
			},
		},
		{Name: "default_branch", Label: "Default Branch", Type: models.FieldTypeText, Description: "Branch taken when nothing matches"},
	}}
}
