package dto

import (
	"voyago/internal/domains/payment/model"
	"voyago/shared/constant"
	gDto "voyago/shared/dto"
)

// InitializePaymentResponse carries the provider checkout handle back to the
// client. The client follows AuthorizationURL to pay.
type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
}

type PaymentResponse struct {
	ID               string  `json:"id"`
	BookingID        string  `json:"booking_id"`
	Reference        string  `json:"reference"`
	GatewayReference *string `json:"gateway_reference,omitempty"`
	Amount           int64   `json:"amount"`
	Currency         string  `json:"currency"`
	Channel          *string `json:"channel,omitempty"`
	Status           string  `json:"status"`
	PaidAt           *string `json:"paid_at,omitempty"`
	gDto.Metadata
}

func (r *PaymentResponse) FromModel(model model.Payment) {
	r.ID = model.ID
	r.BookingID = model.BookingID
	r.Reference = model.InternalReference
	r.GatewayReference = model.GatewayReference
	r.Amount = model.Amount
	r.Currency = model.Currency
	r.Channel = model.Channel
	r.Status = model.Status

	if model.PaidAt != nil {
		paidAt := model.PaidAt.Format(constant.DateFormat)
		r.PaidAt = &paidAt
	}

	r.Metadata.FromModel(model.Metadata)
}
