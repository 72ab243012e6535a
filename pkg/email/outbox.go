package email

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/google/uuid"
)

// Outbox is a protocol.EmailSender that keeps sent messages in memory.
type Outbox struct {
	*Directory

	now  func() time.Time
	mu   sync.Mutex
	sent []models.EmailMessage
}

func NewOutbox(directory *Directory) *Outbox {
	if directory == nil {
		directory = NewDirectory()
	}

	return &Outbox{Directory: directory, now: time.Now}
}

func (o *Outbox) Send(_ context.Context, message *models.EmailMessage) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.NewString()
	}

	sentAt := o.now()
	message.Status = models.EmailStatusSent
	message.SentAt = &sentAt

	o.sent = append(o.sent, *message)

	return true, nil
}

func (o *Outbox) SendFromTemplate(ctx context.Context, account models.EmailAccount, templateID int64, recipients models.Recipients, data map[string]any, link models.RecordLink) (*models.EmailMessage, error) {
	return o.Compose(ctx, account, templateID, recipients, data, link)
}

// Sent returns the messages sent so far.
func (o *Outbox) Sent() []models.EmailMessage {
	o.mu.Lock()
	defer o.mu.Unlock()

	return slices.Clone(o.sent)
}
