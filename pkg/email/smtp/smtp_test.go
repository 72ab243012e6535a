package smtp_test

import (
	"errors"
	"log/slog"
	netsmtp "net/smtp"
	"testing"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/email/smtp"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	addr string
	from string
	to   []string
	msg  string
}

func TestSender_Send(t *testing.T) {
	t.Parallel()

	var got capture

	sender := smtp.NewSender(slog.New(slog.DiscardHandler), "mail.example.com:25", nil,
		smtp.WithSendFunc(func(addr string, _ netsmtp.Auth, from string, to []string, msg []byte) error {
			got = capture{addr: addr, from: from, to: to, msg: string(msg)}

			return nil
		}))

	message := &models.EmailMessage{
		FromEmail:  "ops@example.com",
		FromName:   "Ops",
		Recipients: models.Recipients{To: []string{"a@example.com"}, CC: []string{"b@example.com"}, BCC: []string{"c@example.com"}},
		Subject:    "Deal won",
		BodyHTML:   "<p>Won</p>",
		BodyText:   "Won",
	}

	sent, err := sender.Send(t.Context(), message)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, models.EmailStatusSent, message.Status)
	assert.NotNil(t, message.SentAt)

	assert.Equal(t, "mail.example.com:25", got.addr)
	assert.Equal(t, "ops@example.com", got.from)
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, got.to)
	assert.Contains(t, got.msg, "Subject: Deal won\r\n")
	assert.Contains(t, got.msg, "To: <a@example.com>\r\n")
	assert.Contains(t, got.msg, "Cc: <b@example.com>\r\n")
	assert.NotContains(t, got.msg, "c@example.com", "bcc stays out of the headers")
	assert.Contains(t, got.msg, "<p>Won</p>")
}

func TestSender_RelayFailure(t *testing.T) {
	t.Parallel()

	sender := smtp.NewSender(slog.New(slog.DiscardHandler), "mail.example.com:25", nil,
		smtp.WithSendFunc(func(string, netsmtp.Auth, string, []string, []byte) error {
			return errors.New("550 rejected")
		}))

	message := &models.EmailMessage{FromEmail: "ops@example.com", Recipients: models.Recipients{To: []string{"a@example.com"}}}

	sent, err := sender.Send(t.Context(), message)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, models.EmailStatusFailed, message.Status)
}

func TestBuild_OmitsEmptyHeaders(t *testing.T) {
	t.Parallel()

	raw, err := smtp.Build(&models.EmailMessage{
		ID:         "abc",
		FromEmail:  "ops@example.com",
		Recipients: models.Recipients{To: []string{"a@example.com"}},
		Subject:    "Olá",
	}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	msg := string(raw)
	assert.NotContains(t, msg, "Cc:")
	assert.Contains(t, msg, "Message-ID: <abc@crmflow>")
	assert.Contains(t, msg, "Subject: =?utf-8?q?Ol=C3=A1?=")
	assert.Contains(t, msg, "Date: Fri, 02 Jan 2026 03:04:05 +0000")
}
