// Package webhook posts a templated payload to an external URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/template"
	"github.com/go-playground/validator/v10"
)

const Type = "webhook"

const (
	DefaultTimeout = 30 * time.Second
	MaxTimeout     = 30 * time.Second

	maxResponseBytes = 1 << 20
)

var methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// ErrUnexpectedStatus is wrapped by ResponseError.
var ErrUnexpectedStatus = errors.New("webhook returned non-2xx status")

// ResponseError carries the status and body of a non-2xx response.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ResponseError) Unwrap() error {
	return ErrUnexpectedStatus
}

type Action struct {
	client   protocol.HTTPDoer
	validate *validator.Validate
}

func NewAction(client protocol.HTTPDoer) *Action {
	if client == nil {
		client = &http.Client{Timeout: MaxTimeout}
	}

	return &Action{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Execute issues a single request. There is no retry; any non-2xx status
// fails the action with a *ResponseError.
func (a *Action) Execute(ctx context.Context, config models.Config, execCtx models.ExecutionContext, logger *slog.Logger) (models.Output, error) {
	url := template.Interpolate(config.String("url"), execCtx)
	if err := a.validate.Var(url, "required,http_url"); err != nil {
		return nil, fmt.Errorf("%w: invalid webhook url %q", protocol.ErrInvalidConfig, url)
	}

	method := strings.ToUpper(config.StringOr("method", http.MethodPost))
	if !slices.Contains(methods, method) {
		return nil, fmt.Errorf("%w: unsupported method %q", protocol.ErrInvalidConfig, method)
	}

	body, err := buildBody(config, execCtx, method)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout(config))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, value := range config.Map("headers") {
		if s, ok := models.ValueOf(value).String(); ok {
			req.Header.Set(key, template.Interpolate(s, execCtx))
		}
	}

	logger.DebugContext(ctx, "calling webhook", "method", method, "url", url)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = string(raw)
	}

	logger.InfoContext(ctx, "webhook completed", "status_code", resp.StatusCode, "bytes", len(raw))

	return models.Output{
		"success":     true,
		"status_code": resp.StatusCode,
		"body":        decoded,
	}, nil
}

// buildBody renders payload with every string leaf interpolated. Without a
// payload the triggering record is sent. GET and DELETE carry no body.
func buildBody(config models.Config, execCtx models.ExecutionContext, method string) (io.Reader, error) {
	if method == http.MethodGet || method == http.MethodDelete {
		return nil, nil
	}

	var payload any

	if raw, ok := config["payload"]; ok && raw != nil {
		payload = template.InterpolateValue(raw, execCtx)
	} else {
		record := map[string]any{
			"module":       execCtx.ModuleAPIName(),
			"triggered_by": execCtx.Data()[models.ContextKeyTriggeredBy],
			"data":         execCtx.RecordData(),
		}

		if id, ok := execCtx.RecordID(); ok {
			record["record_id"] = id
		}

		payload = record
	}

	if s, ok := payload.(string); ok {
		return strings.NewReader(s), nil
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not serialisable: %w", protocol.ErrInvalidConfig, err)
	}

	return bytes.NewReader(encoded), nil
}

func timeout(config models.Config) time.Duration {
	seconds, ok := config.Int64("timeout_seconds")
	if !ok || seconds <= 0 {
		return DefaultTimeout
	}

	return min(time.Duration(seconds)*time.Second, MaxTimeout)
}

func (a *Action) Validate(config models.Config) models.ValidationErrors {
	errs := models.ValidationErrors{}

	url := config.String("url")

	switch {
	case url == "":
		errs["url"] = "URL is required"
	case !template.NeedsTemplating(url) && a.validate.Var(url, "http_url") != nil:
		errs["url"] = "URL must be an absolute http(s) URL"
	}

	if config.Has("method") && !slices.Contains(methods, strings.ToUpper(config.String("method"))) {
		errs["method"] = "Unsupported HTTP method"
	}

	if config.Has("headers") && config.Map("headers") == nil {
		errs["headers"] = "Headers must be a key/value map"
	}

	return errs
}

func (a *Action) ConfigSchema() models.ConfigSchema {
	options := make([]models.Option, 0, len(methods))
	for _, m := range methods {
		options = append(options, models.Option{Value: m, Label: m})
	}

	return models.ConfigSchema{Fields: []models.FieldSchema{
		{Name: "url", Label: "URL", Type: models.FieldTypeURL, Required: true, SupportsVariables: true},
		{Name: "method", Label: "Method", Type: models.FieldTypeSelect, Default: http.MethodPost, Options: options},
		{Name: "headers", Label: "Headers", Type: models.FieldTypeKeyValue, SupportsVariables: true},
		{Name: "payload", Label: "Payload", Type: models.FieldTypeJSON, SupportsVariables: true, Description: "Defaults to the triggering record"},
		{Name: "timeout_seconds", Label: "Timeout (seconds)", Type: models.FieldTypeNumber, Default: 30},
	}}
}
