// Package sendnotification delivers an in-app notification about the
// triggering record to a set of users.
package sendnotification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/internal/actionutil"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
)

const (
	Type = "send_notification"

	// NotificationType tags notifications raised by workflows.
	NotificationType = "workflow"
)

type Action struct {
	notifier protocol.Notifier
}

func NewAction(notifier protocol.Notifier) *Action {
	return &Action{notifier: notifier}
}

// Execute notifies user_ids and, with notify_owner, the record owner. Users
// the notifier does not know are skipped.
func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recipients := config.Int64s("user_ids")

	if config.Bool("notify_owner") {
		if v, ok := execCtx.RecordField("owner_id"); ok {
			if id, ok := v.Int(); ok {
				recipients = append(recipients, id)
			}
		}
	}

	recipients = actionutil.Unique(recipients)

	if len(recipients) == 0 {
		return models.Output{"sent": false, "recipients": 0, "user_ids": []int64{}}, nil
	}

	notification := models.Notification{
		Title:         template.Interpolate(config.String("title"), execCtx),
		Message:       template.Interpolate(config.String("message"), execCtx),
		Type:          NotificationType,
		ModuleAPIName: execCtx.ModuleAPIName(),
	}

	if id, ok := execCtx.RecordID(); ok {
		notification.RecordID = &id
	}

	notified := make([]int64, 0, len(recipients))

	for _, userID := range recipients {
		notification.UserID = userID

		if err := a.notifier.Notify(ctx, notification); err != nil {
			if errors.Is(err, protocol.ErrUserNotFound) {
				logger.WarnContext(ctx, "skipping unknown notification recipient", "user_id", userID)

				continue
			}

			return nil, fmt.Errorf("notify user %d: %w", userID, err)
		}

		notified = append(notified, userID)
	}

	logger.InfoContext(ctx, "workflow sent notification", "recipients", len(notified))

	return models.Output{
		"sent":       len(notified) > 0,
		"recipients": len(notified),
		"user_ids":   notified,
	}, nil
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if len(config.List("user_ids")) == 0 && !config.Bool("notify_owner") {
		errs["user_ids"] = "Select at least one user or notify the record owner"
	}

	if config.String("title") == "" {
		errs["title"] = "Title is required"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "user_ids", Label: "Users", Type: models.FieldTypeUserMultiSelect},
		{Name: "notify_owner", Label: "Notify Record Owner", Type: models.FieldTypeBoolean, Default: false},
		{Name: "title", Label: "Title", Type: models.FieldTypeText, Required: true, SupportsVariables: true},
		{Name: "message", Label: "Message", Type: models.FieldTypeTextarea, SupportsVariables: true},
	}}
}
