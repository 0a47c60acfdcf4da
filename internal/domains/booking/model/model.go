package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"voyago/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID            = "id"
	FieldReference     = "reference"
	FieldUserID        = "user_id"
	FieldPackageID     = "package_id"
	FieldTravelDate    = "travel_date"
	FieldTravelerCount = "traveler_count"
	FieldTravelers     = "travelers"
	FieldTotalPrice    = "total_price"
	FieldStatus        = "status"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// transitions is the booking lifecycle graph. Cancellation is allowed before
// payment and after confirmation, never after completion or from paid (a paid
// booking must first be confirmed or refunded out of band).
var transitions = map[string][]string{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusConfirmed},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether the lifecycle graph allows moving a booking
// from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}

// IsTerminal reports whether no further transitions leave the status.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// IsCancellable reports whether the booking may be cancelled from the status.
func IsCancellable(status string) bool {
	return CanTransition(status, StatusCancelled)
}

// Traveler is one entry of the traveler manifest attached to a booking.
type Traveler struct {
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Travelers is stored as a JSONB column.
type Travelers []Traveler

func (t Travelers) Value() (driver.Value, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal travelers: %w", err)
	}

	return data, nil
}

func (t *Travelers) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		*t = nil
		return nil
	case []byte:
		return json.Unmarshal(value, t)
	case string:
		return json.Unmarshal([]byte(value), t)
	default:
		return errors.New("unsupported source type for travelers")
	}
}

// Booking is a travel reservation. TotalPrice is in major currency units and
// is computed exactly once at creation, never recalculated afterwards.
type Booking struct {
	ID            string    `db:"id"`
	Reference     string    `db:"reference"`
	UserID        string    `db:"user_id"`
	PackageID     *string   `db:"package_id"`
	TravelDate    time.Time `db:"travel_date"`
	TravelerCount int       `db:"traveler_count"`
	Travelers     Travelers `db:"travelers"`
	TotalPrice    float64   `db:"total_price"`
	Status        string    `db:"status"`
	model.Metadata
}

// IsCustom reports whether the booking was created with a caller-supplied
// price instead of a catalog package.
func (b *Booking) IsCustom() bool {
	return b.PackageID == nil
}
