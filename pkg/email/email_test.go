package email_test

import (
	"testing"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/email"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestDirectory_Account(t *testing.T) {
	t.Parallel()

	dir := email.NewDirectory()
	dir.AddAccount(models.EmailAccount{ID: 1, EmailAddress: "ops@example.com", Active: true})
	dir.AddAccount(models.EmailAccount{ID: 2, EmailAddress: "system@example.com", Active: true, Default: true})
	dir.AddAccount(models.EmailAccount{ID: 3, EmailAddress: "old@example.com", Active: false})
	dir.AddAccount(models.EmailAccount{ID: 4, EmailAddress: "sales@example.com", Active: true})
	dir.SetUserDefault(10, 4)
	dir.SetUserDefault(11, 3)

	tests := []struct {
		name      string
		accountID *int64
		userID    *int64
		expected  int64
		err       error
	}{
		{name: "explicit", accountID: ptr(1), expected: 1},
		{name: "explicit inactive", accountID: ptr(3), err: protocol.ErrAccountNotFound},
		{name: "explicit unknown", accountID: ptr(99), err: protocol.ErrAccountNotFound},
		{name: "user default", userID: ptr(10), expected: 4},
		{name: "inactive user default falls back", userID: ptr(11), expected: 2},
		{name: "system default", expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			account, err := dir.Account(t.Context(), tt.accountID, tt.userID)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, account.ID)
		})
	}

	_, err := email.NewDirectory().Account(t.Context(), nil, nil)
	require.ErrorIs(t, err, protocol.ErrAccountNotFound)
}

func TestOutbox_SendFromTemplate(t *testing.T) {
	t.Parallel()

	dir := email.NewDirectory()
	dir.AddTemplate(models.EmailTemplate{ID: 5, Subject: "Welcome {{record.name}}", Body: "<p>Hi <b>{{record.name}}</b> &amp; team</p>"})
	outbox := email.NewOutbox(dir)

	account := models.EmailAccount{ID: 1, Name: "Ops", EmailAddress: "ops@example.com"}
	recipients := models.Recipients{To: []string{"a@example.com"}}

	message, err := outbox.SendFromTemplate(t.Context(), account, 5, recipients, map[string]any{"record": map[string]any{"name": "Ada"}}, models.RecordLink{Type: "leads", ID: ptr(3)})
	require.NoError(t, err)

	assert.Equal(t, "Welcome Ada", message.Subject)
	assert.Equal(t, "Hi Ada & team", message.BodyText)
	assert.Equal(t, "ops@example.com", message.FromEmail)
	assert.Equal(t, int64(5), *message.TemplateID)
	assert.Equal(t, models.EmailStatusDraft, message.Status)
	assert.Empty(t, outbox.Sent(), "rendering does not send")

	sent, err := outbox.Send(t.Context(), message)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.NotEmpty(t, message.ID)

	require.Len(t, outbox.Sent(), 1)
	assert.Equal(t, models.EmailStatusSent, outbox.Sent()[0].Status)

	_, err = outbox.SendFromTemplate(t.Context(), account, 404, recipients, nil, models.RecordLink{})
	require.ErrorIs(t, err, protocol.ErrTemplateNotFound)
}

func TestStripTags(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hello world", email.StripTags("<div>Hello <i>world</i></div>"))
	assert.Equal(t, "plain", email.StripTags(" plain "))
}
