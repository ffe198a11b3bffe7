package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agastya-health/clinic-admin/pkg/config"
)

// maxResponseBytes bounds how much of a Graph API reply is read
const maxResponseBytes = 64 << 10

// WhatsAppCloudSender delivers booking confirmations and cancellation notices
// to patients who registered a WhatsApp number.
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
}

// NewWhatsAppCloudSender builds a sender from the clinic's notification settings
func NewWhatsAppCloudSender(cfg *config.NotificationsConfig) (*WhatsAppCloudSender, error) {
	if !cfg.WhatsAppEnabled() {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	return &WhatsAppCloudSender{
		accessToken:   cfg.WhatsAppAccessToken,
		phoneNumberID: cfg.WhatsAppPhoneNumberID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       strings.TrimSuffix(cfg.WhatsAppBaseURL, "/"),
	}, nil
}

// APIError is a rejection reported by the Graph API, e.g. code 131026 when the
// patient's number is not on WhatsApp.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp: status %d code %d: %s", e.Status, e.Code, e.Message)
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type sendReply struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendMessage sends body as a plain text message to the patient's number
func (w *WhatsAppCloudSender) SendMessage(ctx context.Context, to, body string) error {
	_, err := w.send(ctx, to, body)
	return err
}

// send posts one text message and returns the WhatsApp message id
func (w *WhatsAppCloudSender) send(ctx context.Context, to, body string) (string, error) {
	recipient := recipientNumber(to)
	if recipient == "" {
		return "", fmt.Errorf("whatsapp: invalid recipient %q", to)
	}

	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read whatsapp reply: %w", err)
	}

	var reply sendReply
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		if decodeErr == nil && reply.Error != nil {
			apiErr.Code = reply.Error.Code
			apiErr.Message = reply.Error.Message
		}
		return "", apiErr
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode whatsapp reply: %w", decodeErr)
	}
	if len(reply.Messages) == 0 || reply.Messages[0].ID == "" {
		return "", errors.New("whatsapp reply carried no message id")
	}
	return reply.Messages[0].ID, nil
}

// recipientNumber strips formatting from a stored mobile number. The Cloud API
// takes the international number as digits only.
func recipientNumber(mobile string) string {
	var b strings.Builder
	for _, r := range mobile {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return ""
		}
	}
	return b.String()
}
