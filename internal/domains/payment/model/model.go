package model

import (
	"database/sql/driver"
	"errors"
	"time"

	"voyago/shared/model"
)

const (
	TableName  = "payments"
	EntityName = "payment"

	FieldID                = "id"
	FieldBookingID         = "booking_id"
	FieldInternalReference = "internal_reference"
	FieldGatewayReference  = "gateway_reference"
	FieldAmount            = "amount"
	FieldCurrency          = "currency"
	FieldChannel           = "channel"
	FieldStatus            = "status"
	FieldPaidAt            = "paid_at"
	FieldRawMetadata       = "raw_metadata"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// IsTerminal reports whether the payment status can never change again.
func IsTerminal(status string) bool {
	return status == StatusSuccess || status == StatusFailed
}

// RawMetadata holds the provider payload that settled the payment, kept
// verbatim for auditing.
type RawMetadata []byte

func (r RawMetadata) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}

	return []byte(r), nil
}

func (r *RawMetadata) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		*r = append((*r)[:0], value...)
		return nil
	case string:
		*r = RawMetadata(value)
		return nil
	default:
		return errors.New("unsupported source type for raw metadata")
	}
}

// Payment is one payment attempt against a booking. Amount is in the
// provider's minor units. A payment reaches success or failed exactly once;
// after that every reconciliation signal is a no-op.
type Payment struct {
	ID                string      `db:"id"`
	BookingID         string      `db:"booking_id"`
	InternalReference string      `db:"internal_reference"`
	GatewayReference  *string     `db:"gateway_reference"`
	Amount            int64       `db:"amount"`
	Currency          string      `db:"currency"`
	Channel           *string     `db:"channel"`
	Status            string      `db:"status"`
	PaidAt            *time.Time  `db:"paid_at"`
	RawMetadata       RawMetadata `db:"raw_metadata"`
	model.Metadata
}

// TerminalUpdate carries the fields written when a payment settles.
type TerminalUpdate struct {
	Status           string
	GatewayReference *string
	Channel          *string
	PaidAt           *time.Time
	RawMetadata      RawMetadata
}
