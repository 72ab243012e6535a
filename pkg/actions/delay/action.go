// Package delay pauses a workflow briefly. Longer pauses are handed back to
// the scheduler as deferred.
package delay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

const Type = "delay"

// MaxInline is the longest delay performed synchronously.
const MaxInline = 10 * time.Second

// Duration units accepted alongside "delay".
const (
	UnitSeconds = "seconds"
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

type Action struct {
	wait WaitFunc
}

func NewAction(wait WaitFunc) *Action {
	if wait == nil {
		wait = Sleep
	}

	return &Action{wait: wait}
}

// Sleep is the default WaitFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Action) Execute(ctx context.Context, config models.Config, _ models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	d, err := duration(config)
	if err != nil {
		return nil, err
	}

	if d > MaxInline {
		logger.InfoContext(ctx, "delay deferred to scheduler", "seconds", d.Seconds())

		return models.Output{"delayed": false, "deferred": true, "seconds": int64(d.Seconds())}, nil
	}

	if err := a.wait(ctx, d); err != nil {
		return nil, fmt.Errorf("delay interrupted: %w", err)
	}

	return models.Output{"delayed": true, "deferred": false, "seconds": int64(d.Seconds())}, nil
}

// duration reads "seconds", or "delay" scaled by "unit".
func duration(config models.Config) (time.Duration, error) {
	key := "seconds"
	unit := time.Second

	if !config.Has(key) {
		key = "delay"

		switch config.StringOr("unit", UnitSeconds) {
		case UnitSeconds:
		case UnitMinutes:
			unit = time.Minute
		case UnitHours:
			unit = time.Hour
		case UnitDays:
			unit = 24 * time.Hour
		default:
			return 0, fmt.Errorf("%w: unknown delay unit %q", protocol.ErrInvalidConfig, config.String("unit"))
		}
	}

	n, ok := config.Float(key)
	if !ok && config.Has(key) {
		return 0, fmt.Errorf("%w: %s must be a number", protocol.ErrInvalidConfig, key)
	}

	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", protocol.ErrInvalidConfig, key)
	}

	return time.Duration(n * float64(unit)), nil
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if _, err := duration(config); err != nil {
		errs["seconds"] = "Delay must be a non-negative number with a known unit"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "seconds", Label: "Seconds", Type: models.FieldTypeNumber, Description: "Delays over 10 seconds are handed to the scheduler"},
		{Name: "delay", Label: "Delay", Type: models.FieldTypeNumber},
		{Name: "unit", Label: "Unit", Type: models.FieldTypeSelect, Default: UnitSeconds, Options: []models.Option{
			{Value: UnitSeconds, Label: "Seconds"},
			{Value: UnitMinutes, Label: "Minutes"},
			{Value: UnitHours, Label: "Hours"},
			{Value: UnitDays, Label: "Days"},
		}},
	}}
}
