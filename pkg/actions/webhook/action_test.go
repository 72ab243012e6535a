package webhook_test

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/actions/webhook"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/mocks"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testContext() models.ExecutionContext {
	user := int64(4)

	return models.NewExecutionContext(models.Record{
		ID:   42,
		Data: map[string]any{"name": "Acme", "amount": 1200},
	}, models.Module{ID: 2, APIName: "deals"}, &user)
}

func TestAction_PostPayload(t *testing.T) {
	t.Parallel()

	var (
		received map[string]any
		header   http.Header
		path     string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		header = r.Header.Clone()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	action := webhook.NewAction(server.Client())

	output, err := action.Execute(t.Context(), models.Config{
		"url":     server.URL + "/hooks/{{record.id}}",
		"headers": map[string]any{"Authorization": "Bearer abc", "X-Module": "{{module.api_name}}"},
		"payload": map[string]any{
			"deal":  "{{record.name}}",
			"tags":  []any{"crm", "{{module.api_name}}"},
			"count": 3,
		},
	}, testContext(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, true, output["success"])
	assert.Equal(t, http.StatusOK, output["status_code"])
	assert.Equal(t, map[string]any{"ok": true}, output["body"])

	assert.Equal(t, "/hooks/42", path)
	assert.Equal(t, "Bearer abc", header.Get("Authorization"))
	assert.Equal(t, "deals", header.Get("X-Module"))
	assert.Equal(t, "application/json", header.Get("Content-Type"))
	assert.Equal(t, map[string]any{"deal": "Acme", "tags": []any{"crm", "deals"}, "count": float64(3)}, received)
}

func TestAction_DefaultPayload(t *testing.T) {
	t.Parallel()

	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte("accepted"))
	}))
	defer server.Close()

	output, err := webhook.NewAction(server.Client()).Execute(t.Context(), models.Config{"url": server.URL}, testContext(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	assert.Equal(t, "accepted", output["body"])
	assert.Equal(t, float64(42), received["record_id"])
	assert.Equal(t, "deals", received["module"])
	assert.Equal(t, float64(4), received["triggered_by"])
	assert.Equal(t, map[string]any{"name": "Acme", "amount": float64(1200)}, received["data"])
}

func TestAction_GetHasNoBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	output, err := webhook.NewAction(server.Client()).Execute(t.Context(), models.Config{"url": server.URL, "method": "get"}, testContext(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, output["status_code"])
}

func TestAction_Non2xx(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := webhook.NewAction(server.Client()).Execute(t.Context(), models.Config{"url": server.URL}, testContext(), slog.New(slog.DiscardHandler))
	require.ErrorIs(t, err, webhook.ErrUnexpectedStatus)

	var respErr *webhook.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusTooManyRequests, respErr.StatusCode)
	assert.Contains(t, respErr.Body, "quota exceeded")
}

func TestAction_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	started := time.Now()
	_, err := webhook.NewAction(server.Client()).Execute(t.Context(), models.Config{"url": server.URL, "timeout_seconds": 1}, testContext(), slog.New(slog.DiscardHandler))
	require.Error(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)
}

func TestAction_TransportError(t *testing.T) {
	t.Parallel()

	client := new(mocks.MockHTTPDoer)
	client.On("Do", mock.AnythingOfType("*http.Request")).Return(nil, errors.New("dial tcp: refused"))

	_, err := webhook.NewAction(client).Execute(t.Context(), models.Config{"url": "https://hooks.example.com/x"}, testContext(), slog.New(slog.DiscardHandler))
	require.ErrorContains(t, err, "refused")
	client.AssertExpectations(t)
}

func TestAction_InvalidConfig(t *testing.T) {
	t.Parallel()

	action := webhook.NewAction(nil)

	for _, config := range []models.Config{
		{},
		{"url": "not a url"},
		{"url": "ftp://example.com/file"},
		{"url": "https://example.com", "method": "TRACE"},
	} {
		_, err := action.Execute(t.Context(), config, testContext(), slog.New(slog.DiscardHandler))
		require.ErrorIs(t, err, protocol.ErrInvalidConfig)
	}
}

func TestAction_Validate(t *testing.T) {
	t.Parallel()

	action := webhook.NewAction(nil)

	tests := []struct {
		name     string
		config   models.Config
		expected []string
	}{
		{name: "valid", config: models.Config{"url": "https://example.com/hook"}, expected: nil},
		{name: "templated url", config: models.Config{"url": "{{record.callback_url}}"}, expected: nil},
		{name: "missing url", config: models.Config{}, expected: []string{"url"}},
		{name: "bad url", config: models.Config{"url": "example"}, expected: []string{"url"}},
		{name: "bad method and headers", config: models.Config{"url": "https://example.com", "method": "CONNECT", "headers": "x"}, expected: []string{"method", "headers"}},
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
