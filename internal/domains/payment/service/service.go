package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"voyago/config"
	"voyago/infras/kafka"
	"voyago/infras/otel"
	"voyago/infras/paystack"
	"voyago/internal/domains/booking/event"
	bookingModel "voyago/internal/domains/booking/model"
	bookingRepository "voyago/internal/domains/booking/repository"
	"voyago/internal/domains/payment/model"
	"voyago/internal/domains/payment/model/dto"
	"voyago/internal/domains/payment/repository"
	userModel "voyago/internal/domains/user/model"
	userRepository "voyago/internal/domains/user/repository"
	"voyago/shared"
	"voyago/shared/cache"
	"voyago/shared/constant"
	"voyago/shared/failure"
	gModel "voyago/shared/model"
	"voyago/shared/timezone"
)

// webhookActor is recorded as the modifier when the provider, not a user,
// settles a payment.
const webhookActor = "paystack-webhook"

const cacheGetBooking = "booking:get"

type Payment interface {
	Initialize(ctx context.Context, bookingID string) (dto.InitializePaymentResponse, error)
	VerifyByReference(ctx context.Context, reference string) (dto.PaymentResponse, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type serviceImpl struct {
	repo        repository.Payment
	bookingRepo bookingRepository.Booking
	userRepo    userRepository.User
	gateway     paystack.Gateway
	kafka       kafka.Client
	cfg         *config.Config
	cache       cache.RedisCache
	otel        otel.Otel
}

func New(
	repo repository.Payment,
	bookingRepo bookingRepository.Booking,
	userRepo userRepository.User,
	gateway paystack.Gateway,
	kafka kafka.Client,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
) Payment {
	return &serviceImpl{
		repo:        repo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		gateway:     gateway,
		kafka:       kafka,
		cfg:         cfg,
		cache:       cache,
		otel:        otel,
	}
}

func (s *serviceImpl) Initialize(ctx context.Context, bookingID string) (res dto.InitializePaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Initialize")
	defer scope.End()
	defer scope.TraceIfError(err)

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(bookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if booking.UserID != user {
		return res, failure.Forbidden("only the booking owner may initialize payment") // nolint:wrapcheck
	}

	if booking.Status != bookingModel.StatusPending {
		return res, failure.Conflict(fmt.Sprintf("payment cannot be initialized while the booking is %s", booking.Status)) // nolint:wrapcheck
	}

	payer, err := s.userRepo.Get(ctx, shared.FilterByID(user, userModel.FieldID, userModel.TableName), userModel.FieldID, userModel.FieldEmail)
	if err != nil {
		log.Error().Err(err).Msg("failed to get payer")

		return res, fmt.Errorf("failed to get payer: %w", err)
	}

	internalReference := uuid.NewString()
	amountMinor := paystack.ToMinorUnits(booking.TotalPrice)

	result, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       payer.Email,
		AmountMinor: amountMinor,
		Reference:   internalReference,
		Currency:    s.cfg.Payment.Currency,
		CallbackURL: s.cfg.Payment.Paystack.CallbackURL,
		Metadata: map[string]any{
			"booking_id":        booking.ID,
			"booking_reference": booking.Reference,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("booking", booking.ID).Msg("failed to initialize payment with provider")

		return res, err
	}

	// The access code is the provider's handle for the attempt until the
	// transaction id arrives with settlement.
	gatewayReference := result.AccessCode
	if gatewayReference == constant.Empty {
		gatewayReference = result.Reference
	}

	payment := model.Payment{
		ID:                uuid.NewString(),
		BookingID:         booking.ID,
		InternalReference: internalReference,
		GatewayReference:  &gatewayReference,
		Amount:            amountMinor,
		Currency:          s.cfg.Payment.Currency,
		Status:            model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}

	if err = s.repo.Insert(ctx, payment); err != nil {
		log.Error().Err(err).Msg("failed to create payment")

		return res, fmt.Errorf("failed to create payment: %w", err)
	}

	res = dto.InitializePaymentResponse{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        internalReference,
		Amount:           amountMinor,
		Currency:         s.cfg.Payment.Currency,
	}

	return res, nil
}

func (s *serviceImpl) VerifyByReference(ctx context.Context, reference string) (res dto.PaymentResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".VerifyByReference")
	defer scope.End()
	defer scope.TraceIfError(err)

	payment, err := s.repo.Get(ctx, shared.FilterByID(reference, model.FieldInternalReference, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment")

		return res, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.ID == constant.Empty {
		return res, failure.NotFound("payment not found") // nolint:wrapcheck
	}

	if err = s.authorize(ctx, payment); err != nil {
		return res, err
	}

	// A settled payment never changes again, so a replayed verify is just a
	// read.
	if model.IsTerminal(payment.Status) {
		res.FromModel(payment)

		return res, nil
	}

	result, err := s.gateway.Verify(ctx, payment.InternalReference)
	if err != nil {
		log.Error().Err(err).Str("reference", payment.InternalReference).Msg("failed to verify payment with provider")

		return res, err
	}

	update, settled := terminalUpdateFromVerify(result)
	if !settled {
		// Still in progress at the provider. Report current state and let the
		// caller poll again.
		res.FromModel(payment)

		return res, nil
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	if err = s.reconcile(ctx, payment, update, user); err != nil {
		return res, err
	}

	settledPayment, err := s.repo.Get(ctx, shared.FilterByID(payment.ID, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to reload payment")

		return res, fmt.Errorf("failed to reload payment: %w", err)
	}

	res.FromModel(settledPayment)

	return res, nil
}

func (s *serviceImpl) HandleWebhook(ctx context.Context, body []byte, signature string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".HandleWebhook")
	defer scope.End()
	defer scope.TraceIfError(err)

	if !paystack.ValidSignature(s.cfg.Payment.Paystack.SecretKey, body, signature) {
		log.Warn().Msg("rejected webhook with invalid signature")

		return failure.BadRequestFromString("invalid webhook signature") // nolint:wrapcheck
	}

	evt, err := paystack.ParseWebhook(body)
	if err != nil {
		return failure.BadRequestFromString("malformed webhook payload") // nolint:wrapcheck
	}

	if evt.Event != paystack.EventChargeSuccess && evt.Event != paystack.EventChargeFailed {
		log.Info().Str("event", evt.Event).Msg("ignoring webhook event type")

		return nil
	}

	payment, err := s.findWebhookPayment(ctx, evt)
	if err != nil {
		return err
	}

	// Idempotent replay: the first accepted signal settled the payment.
	if model.IsTerminal(payment.Status) {
		log.Info().Str("payment", payment.ID).Str("status", payment.Status).Msg("webhook replay for settled payment")

		return nil
	}

	return s.reconcile(ctx, payment, terminalUpdateFromWebhook(evt, body), webhookActor)
}

// findWebhookPayment locates the payment a webhook refers to. The provider
// echoes our reference in data.reference; the transaction id is the fallback
// for events that carry only provider identifiers. A payment is never created
// from a webhook.
func (s *serviceImpl) findWebhookPayment(ctx context.Context, evt paystack.WebhookEvent) (model.Payment, error) {
	payment, err := s.repo.Get(ctx, shared.FilterByID(evt.Data.Reference, model.FieldInternalReference, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment")

		return payment, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.ID != constant.Empty {
		return payment, nil
	}

	payment, err = s.repo.Get(ctx, shared.FilterByID(evt.GatewayReference(), model.FieldGatewayReference, model.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get payment")

		return payment, fmt.Errorf("failed to get payment: %w", err)
	}

	if payment.ID == constant.Empty {
		log.Warn().Str("reference", evt.Data.Reference).Msg("webhook references unknown payment")

		return payment, failure.NotFound("payment not found") // nolint:wrapcheck
	}

	return payment, nil
}

// reconcile applies a terminal outcome to the payment and, on success, moves
// the booking to paid. Both the verify path and the webhook path converge
// here; the conditional updates make whichever arrives second a no-op.
func (s *serviceImpl) reconcile(ctx context.Context, payment model.Payment, update model.TerminalUpdate, actor string) error {
	won, err := s.repo.MarkTerminal(ctx, payment.ID, update, actor)
	if err != nil {
		log.Error().Err(err).Msg("failed to settle payment")

		return fmt.Errorf("failed to settle payment: %w", err)
	}

	if !won {
		log.Info().Str("payment", payment.ID).Msg("payment settled by a concurrent signal")

		return nil
	}

	if update.Status != model.StatusSuccess {
		return nil
	}

	applied, err := s.bookingRepo.UpdateStatusIf(ctx, payment.BookingID, bookingModel.StatusPending, bookingModel.StatusPaid, actor)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark booking paid")

		return fmt.Errorf("failed to mark booking paid: %w", err)
	}

	if !applied {
		// The booking moved on without us, most likely cancelled before the
		// payment landed. The payment record still reflects the money taken.
		log.Warn().Str("booking", payment.BookingID).Str("payment", payment.ID).Msg("successful payment for a booking no longer pending")

		return nil
	}

	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(payment.BookingID, bookingModel.FieldID, bookingModel.TableName))
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking for paid event")

		booking = bookingModel.Booking{ID: payment.BookingID}
	}

	booking.Status = bookingModel.StatusPaid

	go func() {
		c := context.WithoutCancel(ctx)

		s.publishEvent(c, event.New(event.TypePaid, booking))

		if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, payment.BookingID)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking cache")
		}
	}()

	return nil
}

func terminalUpdateFromVerify(result paystack.VerifyResult) (model.TerminalUpdate, bool) {
	update := model.TerminalUpdate{
		GatewayReference: &result.GatewayReference,
		RawMetadata:      model.RawMetadata(result.Raw),
	}

	if result.Channel != constant.Empty {
		update.Channel = &result.Channel
	}

	switch result.Status {
	case paystack.TxStatusSuccess:
		update.Status = model.StatusSuccess
		update.PaidAt = parsePaidAt(result.PaidAt)
	case paystack.TxStatusFailed, paystack.TxStatusAbandoned:
		update.Status = model.StatusFailed
	default:
		return model.TerminalUpdate{}, false
	}

	return update, true
}

func terminalUpdateFromWebhook(evt paystack.WebhookEvent, body []byte) model.TerminalUpdate {
	gatewayReference := evt.GatewayReference()

	update := model.TerminalUpdate{
		GatewayReference: &gatewayReference,
		RawMetadata:      model.RawMetadata(body),
	}

	if evt.Data.Channel != constant.Empty {
		update.Channel = &evt.Data.Channel
	}

	if evt.Event == paystack.EventChargeSuccess {
		update.Status = model.StatusSuccess
		update.PaidAt = parsePaidAt(evt.Data.PaidAt)
	} else {
		update.Status = model.StatusFailed
	}

	return update
}

func parsePaidAt(value string) *time.Time {
	if value == constant.Empty {
		return nil
	}

	paidAt, err := time.Parse(time.RFC3339, value)
	if err != nil {
		log.Warn().Str("paid_at", value).Msg("unparseable paid_at from provider")

		return nil
	}

	return &paidAt
}

// authorize allows the booking owner and administrators through.
func (s *serviceImpl) authorize(ctx context.Context, payment model.Payment) error {
	user, _ := ctx.Value(constant.ContextKeyUserID).(string)

	booking, err := s.bookingRepo.Get(ctx, shared.FilterByID(payment.BookingID, bookingModel.FieldID, bookingModel.TableName), bookingModel.FieldID, bookingModel.FieldUserID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.UserID == user {
		return nil
	}

	requester, err := s.userRepo.Get(ctx, shared.FilterByID(user, userModel.FieldID, userModel.TableName), userModel.FieldID, userModel.FieldRole)
	if err != nil {
		log.Error().Err(err).Msg("failed to get requester")

		return fmt.Errorf("failed to get requester: %w", err)
	}

	if requester.Role != constant.RoleAdmin {
		return failure.Forbidden("you do not have access to this payment") // nolint:wrapcheck
	}

	return nil
}

func (s *serviceImpl) publishEvent(ctx context.Context, evt event.BookingEvent) {
	topic := s.cfg.Kafka.Topics.BookingEvents

	message := kafka.Message{
		Key:   evt.BookingID,
		Value: evt,
	}

	if err := s.kafka.SendMessages(ctx, topic, message); err != nil {
		log.Error().Err(err).Str("type", evt.Type).Str("booking", evt.BookingID).Msg("failed to publish booking event")
	}
}
