// Package tags attaches and detaches record tags.
package tags

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
)

const AddType = "add_tag"

// Palette holds the colors given to auto-created tags.
var Palette = []string{
	"#ef4444",
	"#f97316",
	"#eab308",
	"#22c55e",
	"#14b8a6",
	"#3b82f6",
	"#8b5cf6",
	"#ec4899",
}

type AddAction struct {
	tags protocol.TagStore
	pick func(n int) int
}

type AddOption func(*AddAction)

// WithColorPicker replaces the random palette index source.
func WithColorPicker(pick func(n int) int) AddOption {
	return func(a *AddAction) {
		a.pick = pick
	}
}

func NewAddAction(tags protocol.TagStore, opts ...AddOption) *AddAction {
	a := &AddAction{tags: tags, pick: rand.IntN}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Execute resolves tag_ids and tag_names to tags, creating missing names
// when create_missing is set, and attaches those not already present.
func (a *AddAction) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recordID, ok := actionutil.TargetRecordID(config, "record_id", execCtx)
	if !ok {
		return nil, fmt.Errorf("%w: record id is required", protocol.ErrInvalidConfig)
	}

	wanted, err := a.resolveTags(ctx, config, execCtx, logger)
	if err != nil {
		return nil, err
	}

	current, err := a.tags.RecordTags(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("load tags of record %d: %w", recordID, err)
	}

	present := make(map[int64]struct{}, len(current))
	for _, tag := range current {
		present[tag.ID] = struct{}{}
	}

	var (
		newIDs       []int64
		addedNames   = []string{}
		alreadyThere int
	)

	for _, tag := range wanted {
		if _, ok := present[tag.ID]; ok {
			alreadyThere++

			continue
		}

		present[tag.ID] = struct{}{}
		newIDs = append(newIDs, tag.ID)
		addedNames = append(addedNames, tag.Name)
	}

	if len(newIDs) > 0 {
		if err := a.tags.AttachTags(ctx, recordID, newIDs); err != nil {
			return nil, fmt.Errorf("attach tags to record %d: %w", recordID, err)
		}

		logger.InfoContext(ctx, "workflow tagged record", "target_record_id", recordID, "tags", addedNames)
	}

	return models.Output{
		"added":                len(newIDs) > 0,
		"record_id":            recordID,
		"tags_added":           addedNames,
		"tags_added_count":     len(newIDs),
		"tags_already_present": alreadyThere,
	}, nil
}

func (a *AddAction) resolveTags(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) ([]models.Tag, error) {
	var out []models.Tag

	seen := make(map[int64]struct{})
	add := func(tag models.Tag) {
		if _, ok := seen[tag.ID]; ok {
			return
		}

		seen[tag.ID] = struct{}{}
		out = append(out, tag)
	}

	for _, id := range config.Int64s("tag_ids") {
		tag, err := a.tags.FindTag(ctx, id)
		if errors.Is(err, protocol.ErrTagNotFound) {
			logger.WarnContext(ctx, "tag not found", "tag_id", id)

			continue
		}

		if err != nil {
			return nil, fmt.Errorf("find tag %d: %w", id, err)
		}

		add(*tag)
	}

	createMissing := config.Bool("create_missing")

	for _, raw := range config.Strings("tag_names") {
		name := strings.TrimSpace(template.Interpolate(raw, execCtx))
		if name == "" {
			continue
		}

		tag, err := a.tags.FindTagByName(ctx, name)
		if err == nil {
			add(*tag)

			continue
		}

		if !errors.Is(err, protocol.ErrTagNotFound) {
			return nil, fmt.Errorf("find tag %q: %w", name, err)
		}

		if !createMissing {
			logger.WarnContext(ctx, "tag not found", "tag_name", name)

			continue
		}

		created := models.Tag{Name: name, Slug: Slugify(name), Color: Palette[a.pick(len(Palette))]}

		created.ID, err = a.tags.CreateTag(ctx, created)
		if err != nil {
			return nil, fmt.Errorf("create tag %q: %w", name, err)
		}

		add(created)
	}

	return out, nil
}

func (a *AddAction) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if len(config.Int64s("tag_ids")) == 0 && len(config.Strings("tag_names")) == 0 {
		errs["tag_ids"] = "Select at least one tag or enter a tag name"
	}

	return errs
}

func (a *AddAction) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "tag_ids", Label: "Tags", Type: models.FieldTypeTagSelect},
		{Name: "tag_names", Label: "Tag Names", Type: models.FieldTypeTags, SupportsVariables: true, Description: "Tags referenced by name"},
		{Name: "create_missing", Label: "Create Missing Tags", Type: models.FieldTypeBoolean, Default: false},
		{Name: "record_id", Label: "Record", Type: models.FieldTypeText, SupportsVariables: true, Description: "Defaults to the triggering record"},
	}}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}
