package notifications

import (
	"context"
	"fmt"

	"github.com/go-gomail/gomail"

	"github.com/agastya-health/clinic-admin/pkg/config"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPEmailSender sends plain text e-mail through an SMTP relay
type SMTPEmailSender struct {
	dialer mailDialer
	from   string
}

// NewSMTPEmailSender creates a new e-mail sender
func NewSMTPEmailSender(cfg *config.NotificationsConfig) (*SMTPEmailSender, error) {
	if !cfg.EmailEnabled() {
		return nil, fmt.Errorf("SMTP_HOST and SMTP_FROM must be set")
	}

	return &SMTPEmailSender{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		from:   cfg.SMTPFrom,
	}, nil
}

// SendEmail sends a plain text message
func (s *SMTPEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
