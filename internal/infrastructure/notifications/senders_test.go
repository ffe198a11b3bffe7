package notifications

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-gomail/gomail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/agastya-health/clinic-admin/pkg/config"
)

type fakeMessageCreator struct {
	params *openapi.CreateMessageParams
	err    error
}

func (f *fakeMessageCreator) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &openapi.ApiV2010Message{}, nil
}

func TestTwilioSMSSender_SendMessage(t *testing.T) {
	api := &fakeMessageCreator{}
	sender := &TwilioSMSSender{api: api, from: "+15550001111"}

	err := sender.SendMessage(context.Background(), "+919876543210", "Appointment confirmed")
	require.NoError(t, err)
	require.NotNil(t, api.params)
	assert.Equal(t, "+919876543210", *api.params.To)
	assert.Equal(t, "+15550001111", *api.params.From)
	assert.Equal(t, "Appointment confirmed", *api.params.Body)
}

func TestTwilioSMSSender_Errors(t *testing.T) {
	sender := &TwilioSMSSender{api: &fakeMessageCreator{err: errors.New("21211 invalid To")}, from: "+1"}
	assert.Error(t, sender.SendMessage(context.Background(), "bogus", "x"))

	_, err := NewTwilioSMSSender(&config.NotificationsConfig{TwilioAccountSID: "AC1"})
	assert.Error(t, err)
}

type fakeDialer struct {
	sent []*gomail.Message
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return nil
}

func TestSMTPEmailSender_SendEmail(t *testing.T) {
	dialer := &fakeDialer{}
	sender := &SMTPEmailSender{dialer: dialer, from: "clinic@example.com"}

	err := sender.SendEmail(context.Background(), "asha@example.com", "Appointment confirmed", "See you at 09:00")
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)

	msg := dialer.sent[0]
	assert.Equal(t, []string{"clinic@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"asha@example.com"}, msg.GetHeader("To"))

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "See you at 09:00")
}

func TestSMTPEmailSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dialer := &fakeDialer{}
	sender := &SMTPEmailSender{dialer: dialer, from: "clinic@example.com"}

	assert.ErrorIs(t, sender.SendEmail(ctx, "asha@example.com", "s", "b"), context.Canceled)
	assert.Empty(t, dialer.sent)
}
