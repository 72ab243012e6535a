package tags

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

const RemoveType = "remove_tag"

// Removal modes.
const (
	ModeSpecific = "specific"
	ModeMatching = "matching"
	ModeAll      = "all"
)

type RemoveAction struct {
	tags protocol.TagStore
}

func NewRemoveAction(tags protocol.TagStore) *RemoveAction {
	return &RemoveAction{tags: tags}
}

// Execute computes the removal set from the record's current tags and
// detaches it in one call.
func (a *RemoveAction) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	current, err := a.tags.RecordTags(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load tags of record %d: %w", recordID, err)
	}

	mode := config.StringOr("mode", ModeSpecific)

	var match func(models.Tag) bool

	switch mode {
	case ModeAll:
		match = func(models.Tag) bool { return true }
	case ModeMatching:
		pattern := strings.ToLower(strings.TrimSpace(config.String("pattern")))
		if pattern == "" {
			return nil, fmt.Errorf("%w: pattern is required", protocol.ErrInvalidConfig)
		}

		match = func(tag models.Tag) bool {
			return strings.Contains(strings.ToLower(tag.Name), pattern)
		}
	case ModeSpecific:
		ids := config.Int64s("tag_ids")
		names := config.Strings("tag_names")

		match = func(tag models.Tag) bool {
			return slices.Contains(ids, tag.ID) || slices.ContainsFunc(names, func(name string) bool {
				return strings.EqualFold(strings.TrimSpace(name), tag.Name)
			})
		}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", protocol.ErrInvalidConfig, mode)
	}

	var (
		ids   []int64
		names = []string{}
	)

	for _, tag := range current {
		if match(tag) {
			ids = append(ids, tag.ID)
			names = append(names, tag.Name)
		}
	}

	if len(ids) > 0 {
		if err := a.tags.DetachTags(ctx, recordID, ids); err != nil {
			return nil, fmt.Errorf("detach tags from record %d: %w", recordID, err)
		}

		logger.InfoContext(ctx, "workflow removed tags", "target_record_id", recordID, "mode", mode, "tags", names)
	}

	return models.Output{
		"removed":            len(ids) > 0,
		"record_id":          recordID,
		"mode":               mode,
		"tags_removed":       names,
		"tags_removed_count": len(ids),
	}, nil
}

func (a *RemoveAction) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	switch mode := config.StringOr("mode", ModeSpecific); mode {
	case ModeAll:
	case ModeMatching:
		if strings.TrimSpace(config.String("pattern")) == "" {
			errs["pattern"] = "Pattern is required"
		}
	case ModeSpecific:
		if len(config.Int64s("tag_ids")) == 0 && len(config.Strings("tag_names")) == 0 {
			errs["tag_ids"] = "Select at least one tag to remove"
		}
	default:
		errs["mode"] = "Unknown removal mode"
	}

	return errs
}

func (a *RemoveAction) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "mode", Label: "Remove", Type: models.FieldTypeSelect, Default: ModeSpecific, Options: []models.Option{
			{Value: ModeSpecific, Label: "Specific tags"},
			{Value: ModeMatching, Label: "Tags matching a pattern"},
			{Value: ModeAll, Label: "All tags"},
		}},
		{Name: "tag_ids", Label: "Tags", Type: models.FieldTypeTagSelect, ShowWhen: map[string]any{"mode": ModeSpecific}},
		{Name: "tag_names", Label: "Tag Names", Type: models.FieldTypeTags, ShowWhen: map[string]any{"mode": ModeSpecific}},
		{Name: "pattern", Label: "Name Contains", Type: models.FieldTypeText, ShowWhen: map[string]any{"mode": ModeMatching}},
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
	}}
}
