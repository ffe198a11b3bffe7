package providers

import (
	"context"
)

// MessageSender delivers a plain text message to a phone number
type MessageSender interface {
	SendMessage(ctx context.Context, to, body string) error
}

// EmailSender delivers an e-mail
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}
