// Package registry maps action type identifiers to their handlers and
// dispatches workflow steps to them.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/eventbus"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/events"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/otelhelper"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Registry struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	publisher eventbus.EventPublisher
	now       func() time.Time

	mu      sync.RWMutex
	actions map[string]protocol.Action
}

type Option func(*Registry)

func WithTracer(tracer trace.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// WithEventPublisher publishes an event after every Handle call.
func WithEventPublisher(publisher eventbus.EventPublisher) Option {
	return func(r *Registry) {
		r.publisher = publisher
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry returns an empty registry. See RegisterDefaultActions for the
// built-in action set.
func NewRegistry(logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:    logger,
		tracer:    otelhelper.NoopTracer(),
		publisher: eventbus.Nop{},
		now:       time.Now,
		actions:   make(map[string]protocol.Action),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register binds actionType to action, replacing any previous handler.
func (r *Registry) Register(actionType string, action protocol.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.actions[actionType] = action
}

func (r *Registry) Lookup(actionType string) (protocol.Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[actionType]

	return action, ok
}

// Types returns the registered action types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.actions))
}

// Handle executes the action registered for actionType.
func (r *Registry) Handle(ctx context.Context, actionType string, config models.Config, execCtx models.ExecutionContext) (models.Output, error) {
	action, ok := r.Lookup(actionType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}

	if config == nil {
		config = models.Config{}
	}

	attrs := []attribute.KeyValue{attribute.String(otelhelper.ActionTypeKey, actionType)}
	logger := r.logger.With("action_type", actionType)

	if recordID, ok := execCtx.RecordID(); ok {
		attrs = append(attrs, attribute.Int64(otelhelper.RecordIDKey, recordID))
		logger = logger.With("record_id", recordID)
	}

	if moduleID, ok := execCtx.ModuleID(); ok {
		attrs = append(attrs, attribute.Int64(otelhelper.ModuleIDKey, moduleID))
	}

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "action."+actionType, attrs...)
	defer span.End()

	logger.DebugContext(ctx, "executing action")

	started := r.now()
	output, err := action.Execute(ctx, config, execCtx, logger)
	elapsed := r.now().Sub(started)

	if err != nil {
		actionErr := &ActionError{Type: actionType, Err: err}

		otelhelper.SetError(span, actionErr, attrs...)
		logger.ErrorContext(ctx, "action failed", "error", err, "duration", elapsed)
		r.publish(ctx, execCtx, events.ActionFailed{
			BaseEvent:   r.baseEvent(events.ActionFailedEvent),
			ActionType:  actionType,
			RecordID:    recordIDPtr(execCtx),
			ModuleID:    moduleIDPtr(execCtx),
			TriggeredBy: execCtx.TriggeredByPtr(),
			Error:       err.Error(),
			DurationMs:  elapsed.Milliseconds(),
		})

		return nil, actionErr
	}

	if output == nil {
		output = models.Output{}
	}

	logger.InfoContext(ctx, "action executed", "duration", elapsed)
	r.publish(ctx, execCtx, events.ActionExecuted{
		BaseEvent:   r.baseEvent(events.ActionExecutedEvent),
		ActionType:  actionType,
		RecordID:    recordIDPtr(execCtx),
		ModuleID:    moduleIDPtr(execCtx),
		TriggeredBy: execCtx.TriggeredByPtr(),
		Output:      output,
		DurationMs:  elapsed.Milliseconds(),
	})

	return output, nil
}

// ValidateConfig checks config for actionType without executing it.
func (r *Registry) ValidateConfig(actionType string, config models.Config) (models.ValidationErrors, error) {
	action, ok := r.Lookup(actionType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, actionType)
	}

	if config == nil {
		config = models.Config{}
	}

	errs := action.Validate(config)
	if errs == nil {
		errs = models.ValidationErrors{}
	}

	return errs, nil
}

// AllConfigSchemas returns the configuration schema of every registered action.
func (r *Registry) AllConfigSchemas() map[string]models.ConfigSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make(map[string]models.ConfigSchema, len(r.actions))
	for actionType, action := range r.actions {
		schemas[actionType] = action.ConfigSchema()
	}

	return schemas
}

func (r *Registry) baseEvent(eventType events.EventType) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: r.now().UTC(),
	}
}

// publish never fails the action; delivery errors are logged.
func (r *Registry) publish(ctx context.Context, execCtx models.ExecutionContext, event eventbus.Event) {
	key := ""
	if recordID, ok := execCtx.RecordID(); ok {
		key = fmt.Sprintf("%d", recordID)
	}

	if err := r.publisher.Publish(ctx, key, event); err != nil {
		r.logger.WarnContext(ctx, "failed to publish action event", "event_type", event.GetType(), "error", err)
	}
}

func recordIDPtr(execCtx models.ExecutionContext) *int64 {
	id, ok := execCtx.RecordID()
	if !ok {
		return nil
	}

	return &id
}

func moduleIDPtr(execCtx models.ExecutionContext) *int64 {
	id, ok := execCtx.ModuleID()
	if !ok {
		return nil
	}

	return &id
}
