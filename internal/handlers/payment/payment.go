package payment

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"voyago/infras/otel"
	"voyago/internal/domains/payment/service"
	"voyago/shared/constant"
	"voyago/shared/failure"
	"voyago/transport/http/response"
)

// maxWebhookBodyBytes bounds how much of a webhook body is read before
// signature verification.
const maxWebhookBodyBytes = 1 << 20

type Handler struct {
	service service.Payment
	otel    otel.Otel
}

func New(service service.Payment, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Post("/bookings/{id}/payment", handler.InitializePayment)
	router.Route("/payments", func(routerGroup chi.Router) {
		routerGroup.Get("/verify/{reference}", handler.VerifyPayment)
		routerGroup.Post("/webhook", handler.Webhook)
	})
}

// InitializePayment starts a checkout session for a pending booking.
// @Summary Initialize payment for a booking
// @Description Create a payment attempt with the provider and return the redirect URL.
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Success 201 {object} dto.InitializePaymentResponse "Payment initialized"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 502 {object} response.Error
// @Router /v1/bookings/{id}/payment [post]
// @Security BearerAuth
func (handler *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".InitializePayment")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Initialize(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to initialize payment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment initialized with reference " + res.Reference)

	response.WithJSON(w, http.StatusCreated, res)
}

// VerifyPayment polls the provider and reconciles the payment.
// @Summary Verify a payment
// @Description Ask the provider for the transaction outcome and reconcile local state. Safe to call repeatedly.
// @Tags Payment
// @Accept json
// @Produce json
// @Param reference path string true "Internal payment reference"
// @Success 200 {object} dto.PaymentResponse "Reconciled payment state"
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 502 {object} response.Error
// @Router /v1/payments/verify/{reference} [get]
// @Security BearerAuth
func (handler *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".VerifyPayment")
	defer scope.End()

	reference := chi.URLParam(r, constant.RequestParamReference)

	res, err := handler.service.VerifyByReference(ctx, reference)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to verify payment")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Payment verified")

	response.WithJSON(w, http.StatusOK, res)
}

// Webhook receives asynchronous reconciliation pushes from the provider.
// The signature is computed over the exact raw body, so the body is read
// before any decoding.
// @Summary Payment provider webhook
// @Description Reconcile a payment from a signed provider notification.
// @Tags Payment
// @Accept json
// @Produce json
// @Success 200 {object} response.Message "Webhook processed"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/payments/webhook [post]
func (handler *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Webhook")
	defer scope.End()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to read webhook body")

		response.WithError(w, failure.BadRequestFromString("unreadable webhook body"))

		return
	}

	signature := r.Header.Get(constant.RequestHeaderWebhookSignature)

	if err := handler.service.HandleWebhook(ctx, body, signature); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to process webhook")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Webhook processed")

	response.WithMessage(w, http.StatusOK, "Webhook processed")
}
