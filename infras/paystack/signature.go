package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Webhook event types the service acts on. Anything else is acknowledged
// without touching state.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// WebhookEvent is the parsed provider notification.
type WebhookEvent struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`
}

type WebhookData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

// GatewayReference returns the provider-side transaction identifier.
func (e *WebhookEvent) GatewayReference() string {
	return fmt.Sprintf("%d", e.Data.ID)
}

// ComputeSignature returns the hex-encoded HMAC-SHA512 of the raw body
// keyed with the provider secret.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// ValidSignature checks the provider signature over the exact raw body.
// The comparison is constant-time.
func ValidSignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	expected := ComputeSignature(secret, body)

	return hmac.Equal([]byte(expected), []byte(signature))
}

// ParseWebhook decodes a raw webhook body into an event. The body must be
// the same bytes the signature was verified against.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var event WebhookEvent

	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	return event, nil
}
