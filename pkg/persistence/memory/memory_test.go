package memory_test

import (
	"testing"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence/memory"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Records(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.NewStore()
	module := store.AddModule(models.Module{APIName: "deals"})
	user := int64(3)

	id, err := store.CreateRecord(ctx, module.ID, map[string]any{"name": "Acme", "owner_id": 7}, &user)
	require.NoError(t, err)

	record, err := store.FindRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", record.Data["name"])
	assert.Equal(t, int64(3), *record.CreatedBy)

	record.Data["name"] = "mutated"
	again, err := store.FindRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Data["name"], "reads are copies")

	require.NoError(t, store.UpdateRecord(ctx, id, map[string]any{"stage": "won"}, nil))
	updated, err := store.FindRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Acme", "owner_id": 7, "stage": "won"}, updated.Data)

	require.NoError(t, store.DeleteRecord(ctx, id))
	_, err = store.FindRecord(ctx, id)
	require.ErrorIs(t, err, protocol.ErrRecordNotFound)
	require.ErrorIs(t, store.DeleteRecord(ctx, id), protocol.ErrRecordNotFound)
	require.ErrorIs(t, store.UpdateRecord(ctx, id, map[string]any{}, nil), protocol.ErrRecordNotFound)

	_, err = store.CreateRecord(ctx, 999, nil, nil)
	require.ErrorIs(t, err, protocol.ErrModuleNotFound)
}

func TestStore_FindRecordsByField(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.NewStore()
	contacts := store.AddModule(models.Module{APIName: "contacts"})
	deals := store.AddModule(models.Module{APIName: "deals"})

	first, _ := store.CreateRecord(ctx, contacts.ID, map[string]any{"account_id": int64(10)}, nil)
	second, _ := store.CreateRecord(ctx, contacts.ID, map[string]any{"account_id": "10"}, nil)
	_, _ = store.CreateRecord(ctx, contacts.ID, map[string]any{"account_id": 11}, nil)
	_, _ = store.CreateRecord(ctx, deals.ID, map[string]any{"account_id": 10}, nil)
	tagged, _ := store.CreateRecord(ctx, contacts.ID, map[string]any{"account_id": []any{9, 10}}, nil)

	records, err := store.FindRecordsByField(ctx, contacts.ID, "account_id", 10)
	require.NoError(t, err)

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	assert.Equal(t, []int64{first, second, tagged}, ids)

	count, err := store.CountRecordsByField(ctx, contacts.ID, "account_id", "11")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_ModulesAndPipelines(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.NewStore()
	module := store.AddModule(models.Module{APIName: "deals", Name: "Deals"})
	pipeline := store.AddPipeline(models.Pipeline{ModuleID: module.ID, StageField: "stage_id"})
	stage := store.AddStage(models.Stage{PipelineID: pipeline.ID, Name: "Won"})

	found, err := store.FindModuleByAPIName(ctx, "deals")
	require.NoError(t, err)
	assert.Equal(t, module, *found)

	_, err = store.FindModuleByAPIName(ctx, "nope")
	require.ErrorIs(t, err, protocol.ErrModuleNotFound)

	_, err = store.FindPipeline(ctx, 999)
	require.ErrorIs(t, err, protocol.ErrPipelineNotFound)

	got, err := store.FindStage(ctx, pipeline.ID, stage.ID)
	require.NoError(t, err)
	assert.Equal(t, "Won", got.Name)

	_, err = store.FindStage(ctx, pipeline.ID+100, stage.ID)
	require.ErrorIs(t, err, protocol.ErrStageNotFound)
}

func TestStore_Roles(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	a := store.AddUser(models.User{Name: "a", Active: true})
	b := store.AddUser(models.User{Name: "b", Active: false})
	c := store.AddUser(models.User{Name: "c", Active: true})
	store.AddRole(1, c.ID, b.ID, a.ID)

	members, err := store.ExpandRole(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID, c.ID}, members)

	empty, err := store.ExpandRole(t.Context(), 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_Tags(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := memory.NewStore()
	module := store.AddModule(models.Module{APIName: "leads"})
	recordID, _ := store.CreateRecord(ctx, module.ID, nil, nil)

	vip, err := store.CreateTag(ctx, models.Tag{Name: "VIP", Slug: "vip"})
	require.NoError(t, err)
	hot, err := store.CreateTag(ctx, models.Tag{Name: "Hot", Slug: "hot"})
	require.NoError(t, err)

	found, err := store.FindTagByName(ctx, "vip")
	require.NoError(t, err)
	assert.Equal(t, vip, found.ID)

	require.NoError(t, store.AttachTags(ctx, recordID, []int64{vip, hot, vip}))
	require.NoError(t, store.AttachTags(ctx, recordID, []int64{vip}))

	tags, err := store.RecordTags(ctx, recordID)
	require.NoError(t, err)
	assert.Len(t, tags, 2)

	require.NoError(t, store.DetachTags(ctx, recordID, []int64{vip}))
	tags, err = store.RecordTags(ctx, recordID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Hot", tags[0].Name)

	require.ErrorIs(t, store.AttachTags(ctx, recordID, []int64{12345}), protocol.ErrTagNotFound)
}

func TestStore_Notify(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	user := store.AddUser(models.User{Name: "a", Active: true})

	require.NoError(t, store.Notify(t.Context(), models.Notification{UserID: user.ID, Title: "hi"}))
	require.ErrorIs(t, store.Notify(t.Context(), models.Notification{UserID: 999}), protocol.ErrUserNotFound)
	assert.Len(t, store.Notifications(), 1)
}
