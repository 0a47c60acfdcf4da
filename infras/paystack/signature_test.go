package paystack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voyago/infras/paystack"
)

const webhookSecret = "sk_test_webhook_secret"

func TestValidSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"id":4099260516,"status":"success","reference":"TRV-ABC123","amount":250000}}`)
	signature := paystack.ComputeSignature(webhookSecret, body)

	tests := []struct {
		name      string
		body      []byte
		signature string
		expected  bool
	}{
		{
			name:      "valid signature",
			body:      body,
			signature: signature,
			expected:  true,
		},
		{
			name:      "empty signature",
			body:      body,
			signature: "",
			expected:  false,
		},
		{
			name:      "tampered body",
			body:      []byte(`{"event":"charge.success","data":{"id":4099260516,"status":"success","reference":"TRV-ABC123","amount":999999}}`),
			signature: signature,
			expected:  false,
		},
		{
			name:      "signature for different secret",
			body:      body,
			signature: paystack.ComputeSignature("some-other-secret", body),
			expected:  false,
		},
		{
			name:      "garbage signature",
			body:      body,
			signature: "not-a-hex-digest",
			expected:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, paystack.ValidSignature(webhookSecret, tt.body, tt.signature))
		})
	}
}

func TestValidSignature_WhitespaceSensitive(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	signature := paystack.ComputeSignature(webhookSecret, body)

	// Re-serialized JSON with different spacing must not validate. The check
	// runs over the exact raw bytes.
	reserialized := []byte(`{ "event": "charge.success" }`)
	assert.False(t, paystack.ValidSignature(webhookSecret, reserialized, signature))
}

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 4099260516,
			"status": "success",
			"reference": "TRV-ABC123",
			"amount": 250000,
			"channel": "card",
			"paid_at": "2025-10-01T14:00:00.000Z"
		}
	}`)

	event, err := paystack.ParseWebhook(body)

	require.NoError(t, err)
	assert.Equal(t, paystack.EventChargeSuccess, event.Event)
	assert.Equal(t, "success", event.Data.Status)
	assert.Equal(t, "TRV-ABC123", event.Data.Reference)
	assert.Equal(t, int64(250000), event.Data.Amount)
	assert.Equal(t, "4099260516", event.GatewayReference())
}

func TestParseWebhook_Malformed(t *testing.T) {
	_, err := paystack.ParseWebhook([]byte(`{"event":`))

	require.Error(t, err)
}
