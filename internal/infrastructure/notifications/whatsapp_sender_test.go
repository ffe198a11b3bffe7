package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agastya-health/clinic-admin/pkg/config"
)

func TestNewWhatsAppCloudSender(t *testing.T) {
	tests := []struct {
		name          string
		accessToken   string
		phoneNumberID string
		wantErr       bool
	}{
		{"valid credentials", "test_token", "123456789", false},
		{"missing access token", "", "123456789", true},
		{"missing phone number id", "test_token", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender, err := NewWhatsAppCloudSender(&config.NotificationsConfig{
				WhatsAppAccessToken:   tt.accessToken,
				WhatsAppPhoneNumberID: tt.phoneNumberID,
				WhatsAppBaseURL:       "https://graph.facebook.com/v18.0/",
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://graph.facebook.com/v18.0", sender.baseURL)
		})
	}
}

func TestWhatsAppCloudSender_Send(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		reply      string
		wantID     string
		wantAPIErr *APIError
		wantErr    bool
	}{
		{
			name:   "confirmation delivered",
			status: http.StatusOK,
			reply:  `{"messaging_product":"whatsapp","messages":[{"id":"wamid.text123"}]}`,
			wantID: "wamid.text123",
		},
		{
			name:       "number not on whatsapp",
			status:     http.StatusBadRequest,
			reply:      `{"error":{"message":"Recipient is not a valid WhatsApp user","code":131026}}`,
			wantAPIErr: &APIError{Status: http.StatusBadRequest, Code: 131026, Message: "Recipient is not a valid WhatsApp user"},
		},
		{
			name:       "rate limited without json body",
			status:     http.StatusTooManyRequests,
			reply:      `slow down`,
			wantAPIErr: &APIError{Status: http.StatusTooManyRequests, Message: "slow down"},
		},
		{
			name:    "reply without message id",
			status:  http.StatusOK,
			reply:   `{"messages":[]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got textMessage
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/123456789/messages", r.URL.Path)
				assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.reply))
			}))
			defer server.Close()

			sender := &WhatsAppCloudSender{
				accessToken:   "test_token",
				phoneNumberID: "123456789",
				httpClient:    server.Client(),
				baseURL:       server.URL,
			}

			id, err := sender.send(context.Background(), "+91 98765-43210", "Your appointment is confirmed")
			assert.Equal(t, "919876543210", got.To)
			assert.Equal(t, "Your appointment is confirmed", got.Text.Body)

			switch {
			case tt.wantAPIErr != nil:
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.wantAPIErr, apiErr)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, id)
			}
		})
	}
}

func TestWhatsAppCloudSender_InvalidRecipient(t *testing.T) {
	sender := &WhatsAppCloudSender{
		accessToken:   "test_token",
		phoneNumberID: "123456789",
		httpClient:    &http.Client{},
		baseURL:       "http://127.0.0.1:0",
	}

	err := sender.SendMessage(context.Background(), "call reception", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}

func TestWhatsAppCloudSender_NetworkError(t *testing.T) {
	sender := &WhatsAppCloudSender{
		accessToken:   "test_token",
		phoneNumberID: "123456789",
		httpClient:    &http.Client{},
		baseURL:       "http://127.0.0.1:0",
	}

	err := sender.SendMessage(context.Background(), "+919876543210", "hello")
	assert.Error(t, err)
}

func TestRecipientNumber(t *testing.T) {
	assert.Equal(t, "919876543210", recipientNumber("+91 (98765) 43210"))
	assert.Equal(t, "9876543210", recipientNumber("9876543210"))
	assert.Empty(t, recipientNumber("98765x3210"))
}
