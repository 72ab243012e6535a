// Package sendemail sends a freeform or templated email about the
// triggering record.
package sendemail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/email"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
	"github.com/go-playground/validator/v10"
)

const Type = "send_email"

// Recipient reference types.
const (
	RecipientUser  = "user"
	RecipientField = "field"
	RecipientOwner = "owner"
)

var ErrNoRecipients = fmt.Errorf("%w: no recipients specified for email", protocol.ErrInvalidConfig)

type Action struct {
	sender   protocol.EmailSender
	users    protocol.UserStore
	validate *validator.Validate
}

func NewAction(sender protocol.EmailSender, users protocol.UserStore) *Action {
	return &Action{
		sender:   sender,
		users:    users,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	recipients := models.Recipients{
		To:  a.resolveRecipients(ctx, config.List("to"), execCtx, logger),
		CC:  a.resolveRecipients(ctx, config.List("cc"), execCtx, logger),
		BCC: a.resolveRecipients(ctx, config.List("bcc"), execCtx, logger),
	}

	if len(recipients.To) == 0 {
		return nil, ErrNoRecipients
	}

	var accountID *int64
	if id, ok := config.Int64("account_id"); ok {
		accountID = &id
	}

	account, err := a.sender.Account(ctx, accountID, execCtx.TriggeredByPtr())
	if err != nil {
		return nil, fmt.Errorf("resolve email account: %w", err)
	}

	link := models.RecordLink{Type: execCtx.ModuleAPIName()}
	if id, ok := execCtx.RecordID(); ok {
		link.ID = &id
	}

	if templateID, ok := config.Int64("template_id"); ok && templateID != 0 {
		return a.sendTemplate(ctx, *account, templateID, recipients, execCtx, link, logger)
	}

	subject := template.Interpolate(config.String("subject"), execCtx)
	body := template.Interpolate(config.String("body"), execCtx)

	message := &models.EmailMessage{
		AccountID:  account.ID,
		UserID:     execCtx.TriggeredByPtr(),
		Direction:  models.EmailDirectionOutbound,
		Status:     models.EmailStatusDraft,
		FromEmail:  account.EmailAddress,
		FromName:   account.Name,
		Recipients: recipients,
		Subject:    subject,
		BodyHTML:   body,
		BodyText:   email.StripTags(body),
		Link:       link,
	}

	sent, err := a.sender.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}

	logger.InfoContext(ctx, "workflow sent email", "message_id", message.ID, "recipients", len(recipients.To), "sent", sent)

	return models.Output{
		"sent":       sent,
		"message_id": message.ID,
		"recipients": len(recipients.To),
		"subject":    subject,
	}, nil
}

func (a *Action) sendTemplate(ctx context.Context, account models.EmailAccount, templateID int64, recipients models.Recipients, execCtx models.ExecutionContext, link models.RecordLink, logger *slog.Logger) (models.Output, error) {
	data := map[string]any{
		"record": execCtx.RecordData(),
		"module": execCtx.Data()[models.ContextKeyModule],
		"user":   execCtx.Data()["user"],
	}

	message, err := a.sender.SendFromTemplate(ctx, account, templateID, recipients, data, link)
	if err != nil {
		return nil, fmt.Errorf("render email template %d: %w", templateID, err)
	}

	message.UserID = execCtx.TriggeredByPtr()

	sent, err := a.sender.Send(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("send email: %w", err)
	}

	logger.InfoContext(ctx, "workflow sent templated email", "template_id", templateID, "message_id", message.ID, "sent", sent)

	return models.Output{
		"sent":        sent,
		"message_id":  message.ID,
		"template_id": templateID,
		"recipients":  len(recipients.To),
		"subject":     message.Subject,
	}, nil
}

// resolveRecipients turns literal addresses and user/field/owner references
// into a deduplicated address list. Unresolvable entries are skipped.
func (a *Action) resolveRecipients(ctx context.Context, items []any, execCtx models.ExecutionContext, logger *slog.Logger) []string {
	out := []string{}
	seen := make(map[string]struct{})

	add := func(addr string) {
		addr = strings.TrimSpace(addr)
		if a.validate.Var(addr, "required,email") != nil {
			return
		}

		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			return
		}

		seen[key] = struct{}{}
		out = append(out, addr)
	}

	for _, item := range items {
		if s, ok := item.(string); ok {
			add(template.Interpolate(s, execCtx))

			continue
		}

		entry, ok := models.ValueOf(item).Map()
		if !ok {
			continue
		}

		ref := models.Config(entry)

		switch ref.String("type") {
		case RecipientUser:
			if id, ok := ref.Int64("id"); ok {
				add(a.userEmail(ctx, id, logger))
			}
		case RecipientField:
			if v, ok := execCtx.RecordField(ref.String("field")); ok {
				if s, ok := v.String(); ok {
					add(s)
				}
			}
		case RecipientOwner:
			if v, ok := execCtx.RecordField("owner_id"); ok {
				if id, ok := v.Int(); ok {
					add(a.userEmail(ctx, id, logger))
				}
			}
		}
	}

	return out
}

func (a *Action) userEmail(ctx context.Context, id int64, logger *slog.Logger) string {
	user, err := a.users.FindUser(ctx, id)
	if err != nil {
		if !errors.Is(err, protocol.ErrUserNotFound) {
			logger.WarnContext(ctx, "failed to load email recipient", "user_id", id, "error", err)
		}

		return ""
	}

	return user.Email
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	if len(config.List("to")) == 0 {
		errs["to"] = "At least one recipient is required"
	}

	if config.String("subject") == "" {
		errs["subject"] = "Subject is required"
	}

	if config.String("body") == "" && !config.Has("template_id") {
		errs["body"] = "Either body or template is required"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "account_id", Label: "Email Account", Type: models.FieldTypeSelect, Description: "Select email account to send from (uses default if not specified)"},
		{Name: "to", Label: "To", Type: models.FieldTypeRecipients, Required: true, Description: "Email recipients (users, roles, or email addresses)"},
		{Name: "cc", Label: "CC", Type: models.FieldTypeRecipients},
		{Name: "bcc", Label: "BCC", Type: models.FieldTypeRecipients},
		{Name: "subject", Label: "Subject", Type: models.FieldTypeText, Required: true, SupportsVariables: true},
		{Name: "body", Label: "Email Body", Type: models.FieldTypeRichText, Required: true, SupportsVariables: true},
		{Name: "template_id", Label: "Email Template", Type: models.FieldTypeSelect, Description: "Use a predefined email template (overrides body)"},
	}}
}
