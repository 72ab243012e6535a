package tags_test

import (
	"log/slog"
	"testing"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/tags"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence/memory"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*memory.Store, int64, models.ExecutionContext) {
	t.Helper()

	store := memory.NewStore()
	module := store.AddModule(models.Module{APIName: "leads"})
	recordID, err := store.CreateRecord(t.Context(), module.ID, map[string]any{"source": "Webinar"}, nil)
	require.NoError(t, err)

	execCtx := models.NewExecutionContext(models.Record{ID: recordID, ModuleID: module.ID, Data: map[string]any{"source": "Webinar"}}, module, nil)

	return store, recordID, execCtx
}

func tagNames(t *testing.T, store *memory.Store, recordID int64) []string {
	t.Helper()

	attached, err := store.RecordTags(t.Context(), recordID)
	require.NoError(t, err)

	names := make([]string, 0, len(attached))
	for _, tag := range attached {
		names = append(names, tag.Name)
	}

	return names
}

func TestAddAction_CreateMissing(t *testing.T) {
	t.Parallel()

	store, recordID, execCtx := setup(t)
	picks := []int{0, 5}
	action := tags.NewAddAction(store, tags.WithColorPicker(func(n int) int {
		assert.Equal(t, len(tags.Palette), n)
		pick := picks[0]
		picks = picks[1:]

		return pick
	}))

	output, err := action.Execute(t.Context(), models.Config{
		"tag_names":      []any{"VIP", "New"},
		"create_missing": true,
	}, execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, true, output["added"])
	assert.Equal(t, []string{"VIP", "New"}, output["tags_added"])
	assert.Equal(t, 2, output["tags_added_count"])
	assert.Equal(t, 0, output["tags_already_present"])

	created := store.Tags()
	require.Len(t, created, 2)
	assert.Equal(t, models.Tag{ID: created[0].ID, Name: "VIP", Slug: "vip", Color: "#ef4444"}, created[0])
	assert.Equal(t, models.Tag{ID: created[1].ID, Name: "New", Slug: "new", Color: "#3b82f6"}, created[1])

	for _, tag := range created {
		assert.Contains(t, tags.Palette, tag.Color)
	}

	assert.Equal(t, []string{"VIP", "New"}, tagNames(t, store, recordID))
}

func TestAddAction_Idempotent(t *testing.T) {
	t.Parallel()

	store, recordID, execCtx := setup(t)
	action := tags.NewAddAction(store)
	config := models.Config{"tag_names": []string{"VIP", "Hot"}, "create_missing": true}

	_, err := action.Execute(t.Context(), config, execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	output, err := action.Execute(t.Context(), config, execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, false, output["added"])
	assert.Equal(t, 0, output["tags_added_count"])
	assert.Equal(t, 2, output["tags_already_present"])
	assert.Empty(t, output["tags_added"])
	assert.Len(t, store.Tags(), 2)
	assert.Equal(t, []string{"VIP", "Hot"}, tagNames(t, store, recordID))
}

func TestAddAction_IDsAndNames(t *testing.T) {
	t.Parallel()

	store, recordID, execCtx := setup(t)
	vip, err := store.CreateTag(t.Context(), models.Tag{Name: "VIP"})
	require.NoError(t, err)

	output, err := tags.NewAddAction(store).Execute(t.Context(), models.Config{
		"tag_ids":   []any{vip, 9999},
		"tag_names": []any{"vip", "From {{record.source}}", "Unknown"},
	}, execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, []string{"VIP"}, output["tags_added"], "duplicates, unknown ids and missing names are skipped")
	assert.Len(t, store.Tags(), 1)
	assert.Equal(t, []string{"VIP"}, tagNames(t, store, recordID))
}

func TestAddAction_Interpolation(t *testing.T) {
	t.Parallel()

	store, _, execCtx := setup(t)

	output, err := tags.NewAddAction(store).Execute(t.Context(), models.Config{
		"tag_names":      []any{"From {{record.source}}"},
		"create_missing": true,
	}, execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, []string{"From Webinar"}, output["tags_added"])
	assert.Equal(t, "from-webinar", store.Tags()[0].Slug)
}

func TestRemoveAction_Modes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		config    models.Config
		removed   []string
		remaining []string
	}{
		{name: "specific by name", config: models.Config{"tag_names": []any{"hot lead"}}, removed: []string{"Hot Lead"}, remaining: []string{"VIP", "Cold Lead"}},
		{name: "matching", config: models.Config{"mode": "matching", "pattern": "LEAD"}, removed: []string{"Hot Lead", "Cold Lead"}, remaining: []string{"VIP"}},
		{name: "all", config: models.Config{"mode": "all"}, removed: []string{"VIP", "Hot Lead", "Cold Lead"}, remaining: []string{}},
		{name: "nothing matches", config: models.Config{"mode": "matching", "pattern": "zzz"}, removed: []string{}, remaining: []string{"VIP", "Hot Lead", "Cold Lead"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, recordID, execCtx := setup(t)

			var ids []int64
			for _, name := range []string{"VIP", "Hot Lead", "Cold Lead"} {
				id, err := store.CreateTag(t.Context(), models.Tag{Name: name})
				require.NoError(t, err)
				ids = append(ids, id)
			}

			require.NoError(t, store.AttachTags(t.Context(), recordID, ids))

			output, err := tags.NewRemoveAction(store).Execute(t.Context(), tt.config, execCtx, slog.New(slog.DiscardHandler))
			require.NoError(t, err)

			assert.Equal(t, tt.removed, output["tags_removed"])
			assert.Equal(t, len(tt.removed), output["tags_removed_count"])
			assert.Equal(t, len(tt.removed) > 0, output["removed"])
			assert.Equal(t, tt.remaining, tagNames(t, store, recordID))
		})
	}
}

func TestRemoveAction_SpecificByID(t *testing.T) {
	t.Parallel()

	store, recordID, execCtx := setup(t)
	vip, _ := store.CreateTag(t.Context(), models.Tag{Name: "VIP"})
	require.NoError(t, store.AttachTags(t.Context(), recordID, []int64{vip}))

	output, err := tags.NewRemoveAction(store).Execute(t.Context(), models.Config{"mode": "specific", "tag_ids": []any{vip}}, execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, []string{"VIP"}, output["tags_removed"])
	assert.Empty(t, tagNames(t, store, recordID))
}

func TestRemoveAction_InvalidMode(t *testing.T) {
	t.Parallel()

	store, _, execCtx := setup(t)
	action := tags.NewRemoveAction(store)

	_, err := action.Execute(t.Context(), models.Config{"mode": "some"}, execCtx, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, protocol.ErrInvalidConfig)

	_, err = action.Execute(t.Context(), models.Config{"mode": "matching"}, execCtx, slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, protocol.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	add := tags.NewAddAction(nil)
	assert.Contains(t, add.Validate(models.Config{}), "tag_ids")
	assert.Empty(t, add.Validate(models.Config{"tag_names": []any{"VIP"}}))

	remove := tags.NewRemoveAction(nil)
	assert.Contains(t, remove.Validate(models.Config{}), "tag_ids")
	assert.Contains(t, remove.Validate(models.Config{"mode": "matching"}), "pattern")
	assert.Contains(t, remove.Validate(models.Config{"mode": "bogus"}), "mode")
	assert.Empty(t, remove.Validate(models.Config{"mode": "all"}))
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hot-lead-2026", tags.Slugify("  Hot Lead -- 2026! "))
	assert.Equal(t, "vip", tags.Slugify("VIP"))
}
