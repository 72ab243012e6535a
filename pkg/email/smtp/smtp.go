// Package smtp delivers workflow email through an SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"slices"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/email"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/google/uuid"
)

// SendFunc matches net/smtp.SendMail.
type SendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// Sender is a protocol.EmailSender backed by an SMTP relay. Accounts and
// templates come from the embedded directory.
type Sender struct {
	*email.Directory

	addr   string
	auth   smtp.Auth
	send   SendFunc
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Sender)

// WithAuth sets PLAIN authentication for the relay at host.
func WithAuth(username, password, host string) Option {
	return func(s *Sender) {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
}

// WithSendFunc replaces the transport, mainly for tests.
func WithSendFunc(send SendFunc) Option {
	return func(s *Sender) {
		s.send = send
	}
}

func NewSender(logger *slog.Logger, addr string, directory *email.Directory, opts ...Option) *Sender {
	if directory == nil {
		directory = email.NewDirectory()
	}

	s := &Sender{
		Directory: directory,
		addr:      addr,
		send:      smtp.SendMail,
		now:       time.Now,
		logger:    logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Send delivers message and reports false, with no error, when the relay
// rejects it. The message status reflects the outcome.
func (s *Sender) Send(ctx context.Context, message *models.EmailMessage) (bool, error) {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	raw, err := Build(message, s.now())
	if err != nil {
		return false, err
	}

	rcpt := slices.Concat(message.Recipients.To, message.Recipients.CC, message.Recipients.BCC)

	if err := s.send(s.addr, s.auth, message.FromEmail, rcpt, raw); err != nil {
		message.Status = models.EmailStatusFailed
		s.logger.WarnContext(ctx, "smtp delivery failed", "message_id", message.ID, "error", err)

		return false, nil
	}

	sentAt := s.now()
	message.Status = models.EmailStatusSent
	message.SentAt = &sentAt

	return true, nil
}

func (s *Sender) SendFromTemplate(ctx context.Context, account models.EmailAccount, templateID int64, recipients models.Recipients, data map[string]any, link models.RecordLink) (*models.EmailMessage, error) {
	return s.Compose(ctx, account, templateID, recipients, data, link)
}

// Build renders message as a multipart/alternative RFC 5322 message. BCC
// recipients are not written to the headers.
func Build(message *models.EmailMessage, date time.Time) ([]byte, error) {
	var buf bytes.Buffer

	from := (&mail.Address{Name: message.FromName, Address: message.FromEmail}).String()
	body := multipart.NewWriter(&buf)

	headers := []struct{ key, value string }{
		{"From", from},
		{"To", joinAddresses(message.Recipients.To)},
		{"Cc", joinAddresses(message.Recipients.CC)},
		{"Subject", mime.QEncoding.Encode("utf-8", message.Subject)},
		{"Date", date.Format(time.RFC1123Z)},
		{"Message-ID", fmt.Sprintf("<%s@crmflow>", message.ID)},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + body.Boundary()},
	}

	var head bytes.Buffer
	for _, h := range headers {
		if h.value == "" {
			continue
		}

		fmt.Fprintf(&head, "%s: %s\r\n", h.key, h.value)
	}

	head.WriteString("\r\n")

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=utf-8", message.BodyText},
		{"text/html; charset=utf-8", message.BodyHTML},
	} {
		w, err := body.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, fmt.Errorf("create %s part: %w", part.contentType, err)
		}

		if _, err := w.Write([]byte(part.content)); err != nil {
			return nil, fmt.Errorf("write %s part: %w", part.contentType, err)
		}
	}

	if err := body.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	return append(head.Bytes(), buf.Bytes()...), nil
}

func joinAddresses(addrs []string) string {
	var buf bytes.Buffer

	for i, addr := range addrs {
		if i > 0 {
			buf.WriteString(", ")
		}

		buf.WriteString((&mail.Address{Address: addr}).String())
	}

	return buf.String()
}
