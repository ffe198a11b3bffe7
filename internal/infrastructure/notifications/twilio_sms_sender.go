package notifications

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/agastya-health/clinic-admin/pkg/config"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSMSSender sends SMS through the Twilio Messages API
type TwilioSMSSender struct {
	api  messageCreator
	from string
}

// NewTwilioSMSSender creates a new SMS sender
func NewTwilioSMSSender(cfg *config.NotificationsConfig) (*TwilioSMSSender, error) {
	if !cfg.SMSEnabled() {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER must be set")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.TwilioAccountSID,
		Password: cfg.TwilioAuthToken,
	})

	return &TwilioSMSSender{api: client.Api, from: cfg.TwilioFromNumber}, nil
}

// SendMessage sends body to the given number. The Twilio client does not take
// a context, so ctx is only checked before the call.
func (s *TwilioSMSSender) SendMessage(ctx context.Context, to, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	return nil
}
