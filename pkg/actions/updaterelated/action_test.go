package updaterelated_test

import (
	"log/slog"
	"testing"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/updaterelated"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence/memory"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	action   *updaterelated.Action
	account  int64
	contacts []int64
	deal     int64
	execCtx  models.ExecutionContext
}

// newFixture seeds an account with two contacts and a deal pointing at it.
// The deal is the triggering record.
func newFixture(t *testing.T) fixture {
	t.Helper()

	ctx := t.Context()
	store := memory.NewStore()
	accounts := store.AddModule(models.Module{APIName: "accounts"})
	contacts := store.AddModule(models.Module{APIName: "contacts"})
	deals := store.AddModule(models.Module{APIName: "deals"})

	account, err := store.CreateRecord(ctx, accounts.ID, map[string]any{"name": "Acme", "tier": "silver"}, nil)
	require.NoError(t, err)

	first, _ := store.CreateRecord(ctx, contacts.ID, map[string]any{"deal_id": int64(0)}, nil)
	second, _ := store.CreateRecord(ctx, contacts.ID, map[string]any{"deal_id": int64(0)}, nil)

	dealData := map[string]any{"account_id": account, "amount": 1200, "stage": "won"}
	deal, err := store.CreateRecord(ctx, deals.ID, dealData, nil)
	require.NoError(t, err)

	for _, id := range []int64{first, second} {
		require.NoError(t, store.UpdateRecord(ctx, id, map[string]any{"deal_id": deal}, nil))
	}

	user := int64(8)
	execCtx := models.NewExecutionContext(models.Record{ID: deal, ModuleID: deals.ID, Data: dealData}, deals, &user)

	return fixture{
		store:    store,
		action:   updaterelated.NewAction(store, store, values.NewResolver()),
		account:  account,
		contacts: []int64{first, second},
		deal:     deal,
		execCtx:  execCtx,
	}
}

func (f fixture) data(t *testing.T, id int64) map[string]any {
	t.Helper()

	record, err := f.store.FindRecord(t.Context(), id)
	require.NoError(t, err)

	return record.Data
}

func TestAction_Parent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	output, err := f.action.Execute(t.Context(), models.Config{
		"relation_type":  "parent",
		"relation_field": "account_id",
		"field_updates": []any{
			map[string]any{"field": "tier", "value": "gold"},
			map[string]any{"field": "last_deal_stage", "value": "source.stage", "value_type": "field"},
			map[string]any{"field": "projected", "value": "{{source.amount}} * 2", "value_type": "formula"},
			map[string]any{"field": "touched_by", "value_type": "current_user"},
		},
	}, f.execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, true, output["updated"])
	assert.Equal(t, 1, output["records_updated"])
	assert.Equal(t, []int64{f.account}, output["updated_record_ids"])

	data := f.data(t, f.account)
	assert.Equal(t, "gold", data["tier"])
	assert.Equal(t, "won", data["last_deal_stage"])
	assert.Equal(t, int64(2400), data["projected"])
	assert.Equal(t, int64(8), data["touched_by"])

	record, err := f.store.FindRecord(t.Context(), f.account)
	require.NoError(t, err)
	assert.Equal(t, int64(8), *record.UpdatedBy)
}

func TestAction_ChildUpdateAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		updateAll any
		expected  []int64
	}{
		{name: "first match only by default", updateAll: nil, expected: []int64{0}},
		{name: "all matches", updateAll: true, expected: []int64{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			config := models.Config{
				"relation_type":  "child",
				"related_module": "contacts",
				"relation_field": "deal_id",
				"field_updates":  []any{map[string]any{"field": "status", "value": "customer"}},
			}

			if tt.updateAll != nil {
				config["update_all"] = tt.updateAll
			}

			output, err := f.action.Execute(t.Context(), config, f.execCtx, slog.New(slog.DiscardHandler))
			require.NoError(t, err)

			expectedIDs := make([]int64, 0, len(tt.expected))
			for _, i := range tt.expected {
				expectedIDs = append(expectedIDs, f.contacts[i])
			}

			assert.Equal(t, expectedIDs, output["updated_record_ids"])
			assert.Equal(t, len(expectedIDs), output["records_updated"])

			for i, id := range f.contacts {
				if i < len(expectedIDs) {
					assert.Equal(t, "customer", f.data(t, id)["status"])
				} else {
					assert.NotContains(t, f.data(t, id), "status")
				}
			}
		})
	}
}

func TestAction_Linked(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	output, err := f.action.Execute(t.Context(), models.Config{
		"related_module": "accounts",
		"relation_field": "account_id",
		"field_updates":  map[string]any{"tier": "platinum"},
	}, f.execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, "linked", output["relation_type"])
	assert.Equal(t, "platinum", f.data(t, f.account)["tier"])

	wrongModule, err := f.action.Execute(t.Context(), models.Config{
		"related_module": "contacts",
		"relation_field": "account_id",
		"field_updates":  map[string]any{"tier": "x"},
	}, f.execCtx, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, false, wrongModule["updated"])
}

func TestAction_NoRelatedRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config models.Config
	}{
		{name: "unknown module", config: models.Config{"relation_type": "child", "related_module": "ghosts", "relation_field": "deal_id"}},
		{name: "empty lookup", config: models.Config{"relation_type": "parent", "relation_field": "nothing_here"}},
		{name: "no relation field", config: models.Config{"relation_type": "parent"}},
		{name: "no children", config: models.Config{"relation_type": "child", "related_module": "accounts", "relation_field": "deal_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			tt.config["field_updates"] = map[string]any{"x": 1}

			output, err := f.action.Execute(t.Context(), tt.config, f.execCtx, slog.New(slog.DiscardHandler))
			require.NoError(t, err)
			assert.Equal(t, false, output["updated"])
			assert.Equal(t, 0, output["records_updated"])
		})
	}
}

func TestAction_Validate(t *testing.T) {
	t.Parallel()

	action := updaterelated.NewAction(nil, nil, nil)

	tests := []struct {
		name     string
		config   models.Config
		expected []string
	}{
		{name: "parent valid", config: models.Config{"relation_type": "parent", "relation_field": "account_id", "field_updates": map[string]any{"a": 1}}, expected: nil},
		{name: "linked needs module", config: models.Config{"relation_field": "account_id", "field_updates": map[string]any{"a": 1}}, expected: []string{"related_module"}},
		{name: "empty", config: models.Config{"relation_type": "parent"}, expected: []string{"relation_field", "field_updates"}},
		{name: "update without field", config: models.Config{"relation_type": "parent", "relation_field": "a", "field_updates": []any{map[string]any{"value": 1}}}, expected: []string{"field_updates.0.field"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			errs := action.Validate(tt.config)
			assert.Len(t, errs, len(tt.expected))

			for _, field := range tt.expected {
				assert.Contains(t, errs, field)
			}
		})
	}
}
