package registry_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/email"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/events"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/mocks"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence/memory"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func dependencies(store *memory.Store) registry.Dependencies {
	return registry.Dependencies{
		Records:      store,
		Modules:      store,
		Pipelines:    store,
		StageHistory: store,
		Users:        store,
		Tags:         store,
		Email:        email.NewOutbox(nil),
		Notifier:     store,
		Clock:        func() time.Time { return now },
	}
}

type stubAction struct {
	output models.Output
	err    error
	got    models.Config
}

func (s *stubAction) Execute(_ context.Context, config models.Config, _ models.ExecutionContext, _ *slog.Logger) (models.Output, error) {
	s.got = config

	return s.output, s.err
}

func (s *stubAction) Validate(config models.Config) models.ValidationErrors {
	if config.String("name") == "" {
		return models.ValidationErrors{"name": "Name is required"}
	}

	return nil
}

func (s *stubAction) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{{Name: "name", Label: "Name", Type: models.FieldTypeText}}}
}

func TestNewDefaultRegistry(t *testing.T) {
	t.Parallel()

	r, err := registry.NewDefaultRegistry(slog.New(slog.DiscardHandler), dependencies(memory.NewStore()))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"add_tag",
		"assign_user",
		"condition",
		"create_record",
		"create_task",
		"delay",
		"delete_record",
		"move_stage",
		"remove_tag",
		"send_email",
		"send_notification",
		"update_field",
		"update_record",
		"update_related",
		"webhook",
	}, r.Types())

	schemas := r.AllConfigSchemas()
	assert.Len(t, schemas, 15)

	for actionType, schema := range schemas {
		assert.NotEmpty(t, schema.Fields, actionType)
	}
}

func TestNewDefaultRegistry_MissingDependencies(t *testing.T) {
	t.Parallel()

	deps := dependencies(memory.NewStore())
	deps.Email = nil

	_, err := registry.NewDefaultRegistry(slog.New(slog.DiscardHandler), deps)
	require.ErrorContains(t, err, "Email")
}

func TestRegistry_HandleEndToEnd(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	deals := store.AddModule(models.Module{APIName: "deals"})
	store.AddModule(models.Module{APIName: "tasks"})
	owner := store.AddUser(models.User{Name: "Owner", Active: true})

	recordID, err := store.CreateRecord(t.Context(), deals.ID, map[string]any{"name": "Acme", "amount": 100, "owner_id": owner.ID}, nil)
	require.NoError(t, err)

	record, err := store.FindRecord(t.Context(), recordID)
	require.NoError(t, err)

	r, err := registry.NewDefaultRegistry(slog.New(slog.DiscardHandler), dependencies(store))
	require.NoError(t, err)

	execCtx := models.NewExecutionContext(*record, deals, nil)

	output, err := r.Handle(t.Context(), "update_field", models.Config{
		"field":      "amount",
		"value":      "{{record.amount}} * 2",
		"value_type": "formula",
	}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, true, output["updated"])

	output, err = r.Handle(t.Context(), "create_task", models.Config{"subject": "Call {{record.name}}"}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, "Call Acme", output["subject"])
	assert.Equal(t, owner.ID, output["assigned_to"])

	output, err = r.Handle(t.Context(), "condition", models.Config{
		"branches": []any{
			map[string]any{"branch_id": "big", "conditions": []any{map[string]any{"field": "amount", "operator": "greater_than", "value": 50}}},
		},
	}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, "big", output["selected_branch"])

	updated, err := store.FindRecord(t.Context(), recordID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), updated.Data["amount"])
}

func TestRegistry_UnknownType(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry(slog.New(slog.DiscardHandler))

	_, err := r.Handle(t.Context(), "fax", models.Config{}, models.ExecutionContext{})
	require.ErrorIs(t, err, registry.ErrUnknownActionType)

	_, err = r.ValidateConfig("fax", nil)
	require.ErrorIs(t, err, registry.ErrUnknownActionType)
}

func TestRegistry_RegisterAndValidate(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry(slog.New(slog.DiscardHandler))
	stub := &stubAction{}
	r.Register("custom", stub)

	errs, err := r.ValidateConfig("custom", nil)
	require.NoError(t, err)
	assert.Contains(t, errs, "name")

	errs, err = r.ValidateConfig("custom", models.Config{"name": "x"})
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.NotNil(t, errs)

	output, err := r.Handle(t.Context(), "custom", nil, models.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, models.Output{}, output, "nil outputs become empty maps")
	assert.Equal(t, models.Config{}, stub.got, "nil configs become empty maps")
}

func TestRegistry_EventsAndSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	bus := new(mocks.MockEventBus)
	bus.On("Publish", mock.Anything, "7", mock.MatchedBy(func(e events.ActionExecuted) bool {
		return e.ActionType == "ok" && e.Output["done"] == true && *e.RecordID == 7
	})).Return(nil).Once()
	bus.On("Publish", mock.Anything, "7", mock.MatchedBy(func(e events.ActionFailed) bool {
		return e.ActionType == "boom" && e.Error == "exploded"
	})).Return(errors.New("broker down")).Once()

	r := registry.NewRegistry(slog.New(slog.DiscardHandler),
		registry.WithTracer(provider.Tracer("test")),
		registry.WithEventPublisher(bus),
		registry.WithClock(func() time.Time { return now }),
	)
	r.Register("ok", &stubAction{output: models.Output{"done": true}})
	r.Register("boom", &stubAction{err: errors.New("exploded")})

	execCtx := models.NewExecutionContext(models.Record{ID: 7, ModuleID: 3}, models.Module{ID: 3, APIName: "leads"}, nil)

	_, err := r.Handle(t.Context(), "ok", models.Config{}, execCtx)
	require.NoError(t, err)

	_, err = r.Handle(t.Context(), "boom", models.Config{}, execCtx)

	var actionErr *registry.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, "boom", actionErr.Type)
	assert.ErrorIs(t, err, &registry.ActionError{Type: "boom"})
	assert.NotErrorIs(t, err, &registry.ActionError{Type: "ok"})

	bus.AssertExpectations(t)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "action.ok", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "action.boom", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestRegistry_ActionErrorUnwraps(t *testing.T) {
	t.Parallel()

	r := registry.NewRegistry(slog.New(slog.DiscardHandler))
	r.Register("missing", &stubAction{err: protocol.ErrRecordNotFound})

	_, err := r.Handle(t.Context(), "missing", nil, models.ExecutionContext{})
	require.ErrorIs(t, err, protocol.ErrRecordNotFound)
}
