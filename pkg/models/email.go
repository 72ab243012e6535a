package models

import "time"

// Email message directions and statuses.
const (
	EmailDirectionOutbound = "outbound"

	EmailStatusDraft  = "draft"
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailAccount is a mailbox messages are sent from.
type EmailAccount struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	EmailAddress string `json:"email_address"`
	Active       bool   `json:"is_active"`
	Default      bool   `json:"is_default"`
}

// EmailTemplate is a stored subject/body pair with {{ }} placeholders.
type EmailTemplate struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Recipients groups the address lists of a message.
type Recipients struct {
	To  []string `json:"to"`
	CC  []string `json:"cc,omitempty"`
	BCC []string `json:"bcc,omitempty"`
}

// RecordLink ties a message to the record that caused it.
type RecordLink struct {
	Type string `json:"type,omitempty"`
	ID   *int64 `json:"id,omitempty"`
}

// EmailMessage is an outbound message.
type EmailMessage struct {
	ID         string     `json:"id"`
	AccountID  int64      `json:"account_id"`
	UserID     *int64     `json:"user_id,omitempty"`
	Direction  string     `json:"direction"`
	Status     string     `json:"status"`
	FromEmail  string     `json:"from_email"`
	FromName   string     `json:"from_name"`
	Recipients Recipients `json:"recipients"`
	Subject    string     `json:"subject"`
	BodyHTML   string     `json:"body_html"`
	BodyText   string     `json:"body_text"`
	TemplateID *int64     `json:"template_id,omitempty"`
	Link       RecordLink `json:"link"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}
