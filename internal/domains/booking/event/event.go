// Package event defines the booking lifecycle messages published to Kafka.
package event

import (
	"time"

	"voyago/internal/domains/booking/model"
	"voyago/shared/timezone"
)

const (
	TypeCreated   = "booking.created"
	TypePaid      = "booking.paid"
	TypeConfirmed = "booking.confirmed"
	TypeCompleted = "booking.completed"
	TypeCancelled = "booking.cancelled"
)

type BookingEvent struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	Reference  string    `json:"reference"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

func New(eventType string, booking model.Booking) BookingEvent {
	return BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		Reference:  booking.Reference,
		UserID:     booking.UserID,
		Status:     booking.Status,
		OccurredAt: timezone.Now(),
	}
}
