// Package mailer provides the outbound email capability the offer engine
// uses for expiry alerts. The engine only sees the Mailer interface; SMTP
// details stay here.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Mailer sends a single email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Log is a Mailer that writes messages to the log instead of sending them.
// Used when no SMTP relay is configured so automation alerts still surface.
type Log struct{}

// Send logs the message and reports success.
func (Log) Send(ctx context.Context, to, subject, _ string) error {
	zctx.From(ctx).Info("mail suppressed, no SMTP relay configured",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTP is a Mailer backed by a plain-auth SMTP relay.
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP creates an SMTP mailer for the given relay.
func NewSMTP(cfg SMTPConfig) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send delivers one message. The context is honored up to the SMTP dial;
// net/smtp does not support cancellation mid-session.
func (m *SMTP) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	msg := []byte("From: " + m.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", m.cfg.From, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return errors.Wrapf(err, "send mail to %s", to)
	}
	return nil
}
