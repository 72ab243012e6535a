package cmd

import (
	"log/slog"
	"net"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/email"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/email/smtp"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/models"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/protocol"
)

// EmailConfig describes the relay and the default sending account.
type EmailConfig struct {
	Addr     string
	From     string
	FromName string
	Username string
	Password string
}

// NewEmailSender returns an SMTP sender when Addr is set and an in-memory
// outbox otherwise. Either way From becomes the default account.
func NewEmailSender(logger *slog.Logger, cfg EmailConfig) protocol.EmailSender {
	directory := email.NewDirectory()

	if cfg.From != "" {
		directory.AddAccount(models.EmailAccount{ID: 1, Name: cfg.FromName, EmailAddress: cfg.From, Active: true, Default: true})
	}

	if cfg.Addr == "" {
		return email.NewOutbox(directory)
	}

	var opts []smtp.Option

	if cfg.Username != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}

		opts = append(opts, smtp.WithAuth(cfg.Username, cfg.Password, host))
	}

	return smtp.NewSender(logger, cfg.Addr, directory, opts...)
}
