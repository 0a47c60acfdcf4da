package paystack

//go:generate go run go.uber.org/mock/mockgen -source=./paystack.go -destination=./mocks/paystack_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"voyago/config"
	"voyago/infras/otel"
	"voyago/shared/constant"
	"voyago/shared/failure"
)

const (
	initializePath = "/transaction/initialize"
	verifyPath     = "/transaction/verify/"

	// Transaction statuses reported by the provider.
	TxStatusSuccess   = "success"
	TxStatusFailed    = "failed"
	TxStatusAbandoned = "abandoned"
	TxStatusPending   = "pending"

	minorUnitsPerMajor = 100
)

// InitializeRequest carries everything the provider needs to open a checkout session.
type InitializeRequest struct {
	Email       string
	AmountMinor int64
	Reference   string
	Currency    string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult is the provider's handle for a newly created checkout session.
type InitializeResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult is the provider's current view of a transaction.
type VerifyResult struct {
	Status           string
	Reference        string
	GatewayReference string
	AmountMinor      int64
	Channel          string
	PaidAt           string
	Raw              json.RawMessage
}

// Gateway is the payment provider client. Verify always hits the provider,
// never a cache, so callers can rely on it for reconciliation.
type Gateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
}

type gatewayImpl struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	otel       otel.Otel
}

func New(cfg *config.Config, otl otel.Otel) Gateway {
	return &gatewayImpl{
		baseURL:   cfg.Payment.Paystack.BaseURL,
		secretKey: cfg.Payment.Paystack.SecretKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Payment.Paystack.TimeoutSeconds) * time.Second,
		},
		otel: otl,
	}
}

// ToMinorUnits converts a major-unit amount to the provider's minor units,
// rounding half up.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Floor(amount*minorUnitsPerMajor + 0.5))
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
	Channel   string `json:"channel"`
	PaidAt    string `json:"paid_at"`
}

func (g *gatewayImpl) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".paystack.Initialize")
	defer scope.End()

	scope.SetAttribute("payment.reference", req.Reference)

	payload := map[string]any{
		"email":     req.Email,
		"amount":    req.AmountMinor,
		"reference": req.Reference,
		"currency":  req.Currency,
	}
	if req.CallbackURL != "" {
		payload["callback_url"] = req.CallbackURL
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	var result InitializeResult

	data, err := g.post(ctx, initializePath, payload)
	if err != nil {
		scope.TraceError(err)

		return result, err
	}

	var init initializeData
	if err := json.Unmarshal(data, &init); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("reference", req.Reference).Msg("failed to decode initialize response")

		return result, failure.BadGateway("payment provider returned an unreadable response")
	}

	result = InitializeResult{
		AuthorizationURL: init.AuthorizationURL,
		AccessCode:       init.AccessCode,
		Reference:        init.Reference,
	}

	return result, nil
}

func (g *gatewayImpl) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	ctx, scope := g.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".paystack.Verify")
	defer scope.End()

	scope.SetAttribute("payment.reference", reference)

	var result VerifyResult

	data, err := g.get(ctx, verifyPath+reference)
	if err != nil {
		scope.TraceError(err)

		return result, err
	}

	var verify verifyData
	if err := json.Unmarshal(data, &verify); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("reference", reference).Msg("failed to decode verify response")

		return result, failure.BadGateway("payment provider returned an unreadable response")
	}

	result = VerifyResult{
		Status:           verify.Status,
		Reference:        verify.Reference,
		GatewayReference: fmt.Sprintf("%d", verify.ID),
		AmountMinor:      verify.Amount,
		Channel:          verify.Channel,
		PaidAt:           verify.PaidAt,
		Raw:              data,
	}

	return result, nil
}

func (g *gatewayImpl) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)

	return g.do(req)
}

func (g *gatewayImpl) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	return g.do(req)
}

// do executes the request and maps provider outcomes onto the failure
// taxonomy: transport errors and 5xx are retryable bad-gateway failures,
// 4xx and status=false envelopes are terminal rejections.
func (g *gatewayImpl) do(req *http.Request) (json.RawMessage, error) {
	req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+g.secretKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("payment provider request failed")

		return nil, failure.BadGateway("payment provider unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("failed to read payment provider response")

		return nil, failure.BadGateway("payment provider unreachable")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		log.Error().Int("status", resp.StatusCode).Str("url", req.URL.String()).Msg("payment provider returned server error")

		return nil, failure.BadGateway("payment provider unavailable")
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Error().Err(err).Str("url", req.URL.String()).Msg("failed to decode payment provider envelope")

		return nil, failure.BadGateway("payment provider returned an unreadable response")
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = "payment provider rejected the request"
		}

		log.Warn().Int("status", resp.StatusCode).Str("message", message).Msg("payment provider rejected request")

		return nil, failure.BadRequestFromString(message)
	}

	return envelope.Data, nil
}
