package service_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"voyago/config"
	kafkaMocks "voyago/infras/kafka/mocks"
	"voyago/infras/otel/mocks"
	"voyago/infras/paystack"
	paystackMocks "voyago/infras/paystack/mocks"
	bookingMocks "voyago/internal/domains/booking/mocks"
	bookingModel "voyago/internal/domains/booking/model"
	paymentMocks "voyago/internal/domains/payment/mocks"
	"voyago/internal/domains/payment/model"
	"voyago/internal/domains/payment/service"
	userMocks "voyago/internal/domains/user/mocks"
	userModel "voyago/internal/domains/user/model"
	cacheMocks "voyago/shared/cache/mocks"
	"voyago/shared/constant"
	"voyago/shared/failure"
)

const webhookSecret = "sk_test_secret"

type paymentMockSet struct {
	repo        *paymentMocks.MockPayment
	bookingRepo *bookingMocks.MockBooking
	userRepo    *userMocks.MockUser
	gateway     *paystackMocks.MockGateway
	kafka       *kafkaMocks.MockClient
	cache       *cacheMocks.MockRedisCache
}

func newPaymentService(ctrl *gomock.Controller) (service.Payment, paymentMockSet) {
	set := paymentMockSet{
		repo:        paymentMocks.NewMockPayment(ctrl),
		bookingRepo: bookingMocks.NewMockBooking(ctrl),
		userRepo:    userMocks.NewMockUser(ctrl),
		gateway:     paystackMocks.NewMockGateway(ctrl),
		kafka:       kafkaMocks.NewMockClient(ctrl),
		cache:       cacheMocks.NewMockRedisCache(ctrl),
	}

	cfg := &config.Config{}
	cfg.Payment.Currency = "NGN"
	cfg.Payment.Paystack.SecretKey = webhookSecret
	cfg.Payment.Paystack.CallbackURL = "https://voyago.example/payments/callback"
	cfg.Kafka.Topics.BookingEvents = "booking-events"

	svc := service.New(set.repo, set.bookingRepo, set.userRepo, set.gateway, set.kafka, cfg, set.cache, mocks.NewOtel())

	return svc, set
}

func (set paymentMockSet) allowAsyncSideEffects() {
	set.kafka.EXPECT().
		SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	set.cache.EXPECT().
		Delete(gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()
}

func ownerContext(userID string) context.Context {
	return context.WithValue(context.Background(), constant.ContextKeyUserID, userID)
}

func pendingBooking() bookingModel.Booking {
	return bookingModel.Booking{
		ID:         "booking-1",
		Reference:  "TRV-0000000001AAAA",
		UserID:     "user-1",
		TotalPrice: 2500,
		Status:     bookingModel.StatusPending,
	}
}

func pendingPayment() model.Payment {
	return model.Payment{
		ID:                "payment-1",
		BookingID:         "booking-1",
		InternalReference: "ref-1",
		Amount:            250000,
		Currency:          "NGN",
		Status:            model.StatusPending,
	}
}

func TestPaymentService_Initialize(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	tests := []struct {
		name      string
		requester string
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name:      "owner initializes a pending booking",
			requester: "user-1",
			setupMock: func() {
				set.bookingRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(pendingBooking(), nil)

				set.userRepo.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(userModel.User{ID: "user-1", Email: "user@example.com"}, nil)

				set.gateway.EXPECT().
					Initialize(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, req paystack.InitializeRequest) (paystack.InitializeResult, error) {
						assert.Equal(t, "user@example.com", req.Email)
						assert.Equal(t, int64(250000), req.AmountMinor)
						assert.Equal(t, "NGN", req.Currency)
						assert.NotEmpty(t, req.Reference)

						return paystack.InitializeResult{
							AuthorizationURL: "https://checkout.paystack.com/abc",
							AccessCode:       "abc",
							Reference:        req.Reference,
						}, nil
					})

				set.repo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, payment model.Payment) error {
						assert.Equal(t, "booking-1", payment.BookingID)
						assert.Equal(t, int64(250000), payment.Amount)
						assert.Equal(t, model.StatusPending, payment.Status)

						if assert.NotNil(t, payment.GatewayReference) {
							assert.Equal(t, "abc", *payment.GatewayReference)
						}

						return nil
					})
			},
		},
		{
			name:      "missing booking",
			requester: "user-1",
			setupMock: func() {
				set.bookingRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(bookingModel.Booking{}, nil)
			},
			wantErr:  true,
			wantCode: http.StatusNotFound,
		},
		{
			name:      "non-owner is rejected",
			requester: "user-2",
			setupMock: func() {
				set.bookingRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(pendingBooking(), nil)
			},
			wantErr:  true,
			wantCode: http.StatusForbidden,
		},
		{
			name:      "booking already paid",
			requester: "user-1",
			setupMock: func() {
				paid := pendingBooking()
				paid.Status = bookingModel.StatusPaid

				set.bookingRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(paid, nil)
			},
			wantErr:  true,
			wantCode: http.StatusConflict,
		},
		{
			name:      "provider unavailable",
			requester: "user-1",
			setupMock: func() {
				set.bookingRepo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Return(pendingBooking(), nil)

				set.userRepo.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(userModel.User{ID: "user-1", Email: "user@example.com"}, nil)

				set.gateway.EXPECT().
					Initialize(gomock.Any(), gomock.Any()).
					Return(paystack.InitializeResult{}, failure.BadGateway("payment provider unavailable"))
			},
			wantErr:  true,
			wantCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := svc.Initialize(ownerContext(tt.requester), "booking-1")

			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			assert.NoError(t, err)
			assert.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
			assert.Equal(t, int64(250000), res.Amount)
			assert.NotEmpty(t, res.Reference)
		})
	}
}

func TestPaymentService_VerifyByReference_SettlesPaymentAndBooking(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)
	set.allowAsyncSideEffects()

	payment := pendingPayment()

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(payment, nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	set.gateway.EXPECT().
		Verify(gomock.Any(), "ref-1").
		Return(paystack.VerifyResult{
			Status:           paystack.TxStatusSuccess,
			Reference:        "ref-1",
			GatewayReference: "4099260516",
			AmountMinor:      250000,
			Channel:          "card",
			PaidAt:           "2026-08-29T10:00:00Z",
			Raw:              []byte(`{"id":4099260516}`),
		}, nil)

	set.repo.EXPECT().
		MarkTerminal(gomock.Any(), "payment-1", gomock.Any(), "user-1").
		DoAndReturn(func(_ context.Context, _ string, update model.TerminalUpdate, _ string) (bool, error) {
			assert.Equal(t, model.StatusSuccess, update.Status)
			assert.Equal(t, "4099260516", *update.GatewayReference)
			assert.NotNil(t, update.PaidAt)

			return true, nil
		})

	set.bookingRepo.EXPECT().
		UpdateStatusIf(gomock.Any(), "booking-1", bookingModel.StatusPending, bookingModel.StatusPaid, "user-1").
		Return(true, nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	settled := payment
	settled.Status = model.StatusSuccess

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(settled, nil)

	res, err := svc.VerifyByReference(ownerContext("user-1"), "ref-1")

	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, res.Status)
}

func TestPaymentService_VerifyByReference_TerminalReplayNeverHitsProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	settled := pendingPayment()
	settled.Status = model.StatusSuccess

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(settled, nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	res, err := svc.VerifyByReference(ownerContext("user-1"), "ref-1")

	assert.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, res.Status)
}

func TestPaymentService_VerifyByReference_PendingAtProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingPayment(), nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	set.gateway.EXPECT().
		Verify(gomock.Any(), "ref-1").
		Return(paystack.VerifyResult{Status: paystack.TxStatusPending, Reference: "ref-1"}, nil)

	res, err := svc.VerifyByReference(ownerContext("user-1"), "ref-1")

	assert.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Status)
}

func TestPaymentService_VerifyByReference_UnknownReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(model.Payment{}, nil)

	_, err := svc.VerifyByReference(ownerContext("user-1"), "ref-missing")

	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestPaymentService_VerifyByReference_StrangerRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingPayment(), nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	set.userRepo.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(userModel.User{ID: "user-2", Role: constant.RoleUser}, nil)

	_, err := svc.VerifyByReference(ownerContext("user-2"), "ref-1")

	assert.Error(t, err)
	assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
}

func successWebhook(t *testing.T) ([]byte, string) {
	t.Helper()

	body := []byte(`{"event":"charge.success","data":{"id":4099260516,"status":"success","reference":"ref-1","amount":250000,"channel":"card","paid_at":"2026-08-29T10:00:00Z"}}`)

	return body, paystack.ComputeSignature(webhookSecret, body)
}

func TestPaymentService_HandleWebhook_InvalidSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newPaymentService(ctrl)

	body, _ := successWebhook(t)

	err := svc.HandleWebhook(context.Background(), body, "deadbeef")

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestPaymentService_HandleWebhook_TamperedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newPaymentService(ctrl)

	body, signature := successWebhook(t)
	tampered := append([]byte{}, body...)
	tampered[len(tampered)-2] = 'X'

	err := svc.HandleWebhook(context.Background(), tampered, signature)

	assert.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
}

func TestPaymentService_HandleWebhook_SuccessSettles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)
	set.allowAsyncSideEffects()

	body, signature := successWebhook(t)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingPayment(), nil)

	set.repo.EXPECT().
		MarkTerminal(gomock.Any(), "payment-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.TerminalUpdate, _ string) (bool, error) {
			assert.Equal(t, model.StatusSuccess, update.Status)
			assert.Equal(t, "4099260516", *update.GatewayReference)
			assert.JSONEq(t, string(body), string(update.RawMetadata))

			return true, nil
		})

	set.bookingRepo.EXPECT().
		UpdateStatusIf(gomock.Any(), "booking-1", bookingModel.StatusPending, bookingModel.StatusPaid, gomock.Any()).
		Return(true, nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	err := svc.HandleWebhook(context.Background(), body, signature)

	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_MatchesByGatewayReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)
	set.allowAsyncSideEffects()

	body := []byte(`{"event":"charge.success","data":{"id":4099260516,"status":"success","reference":"provider-own-ref","amount":250000,"channel":"card","paid_at":"2026-08-29T10:00:00Z"}}`)
	signature := paystack.ComputeSignature(webhookSecret, body)

	gatewayReference := "4099260516"
	payment := pendingPayment()
	payment.GatewayReference = &gatewayReference

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(model.Payment{}, nil)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(payment, nil)

	set.repo.EXPECT().
		MarkTerminal(gomock.Any(), "payment-1", gomock.Any(), gomock.Any()).
		Return(true, nil)

	set.bookingRepo.EXPECT().
		UpdateStatusIf(gomock.Any(), "booking-1", bookingModel.StatusPending, bookingModel.StatusPaid, gomock.Any()).
		Return(true, nil)

	set.bookingRepo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingBooking(), nil)

	err := svc.HandleWebhook(context.Background(), body, signature)

	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_ReplayIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	body, signature := successWebhook(t)

	settled := pendingPayment()
	settled.Status = model.StatusSuccess

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(settled, nil)

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_LostRaceSkipsBooking(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	body, signature := successWebhook(t)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingPayment(), nil)

	set.repo.EXPECT().
		MarkTerminal(gomock.Any(), "payment-1", gomock.Any(), gomock.Any()).
		Return(false, nil)

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_BookingNoLongerPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	body, signature := successWebhook(t)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingPayment(), nil)

	set.repo.EXPECT().
		MarkTerminal(gomock.Any(), "payment-1", gomock.Any(), gomock.Any()).
		Return(true, nil)

	set.bookingRepo.EXPECT().
		UpdateStatusIf(gomock.Any(), "booking-1", bookingModel.StatusPending, bookingModel.StatusPaid, gomock.Any()).
		Return(false, nil)

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_FailedChargeLeavesBookingAlone(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	body := []byte(`{"event":"charge.failed","data":{"id":4099260516,"status":"failed","reference":"ref-1","amount":250000,"channel":"card"}}`)
	signature := paystack.ComputeSignature(webhookSecret, body)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(pendingPayment(), nil)

	set.repo.EXPECT().
		MarkTerminal(gomock.Any(), "payment-1", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, update model.TerminalUpdate, _ string) (bool, error) {
			assert.Equal(t, model.StatusFailed, update.Status)
			assert.Nil(t, update.PaidAt)

			return true, nil
		})

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_UnknownEventAcknowledged(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newPaymentService(ctrl)

	body := []byte(`{"event":"transfer.success","data":{"id":1}}`)
	signature := paystack.ComputeSignature(webhookSecret, body)

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.NoError(t, err)
}

func TestPaymentService_HandleWebhook_UnknownPayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	body, signature := successWebhook(t)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(model.Payment{}, nil).
		Times(2)

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.Error(t, err)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
}

func TestPaymentService_HandleWebhook_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, set := newPaymentService(ctrl)

	body, signature := successWebhook(t)

	set.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(model.Payment{}, errors.New("connection reset"))

	err := svc.HandleWebhook(context.Background(), body, signature)

	assert.Error(t, err)
}
