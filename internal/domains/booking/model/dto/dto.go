package dto

import (
	"time"

	"github.com/google/uuid"

	"voyago/internal/domains/booking/model"
	"voyago/shared"
	"voyago/shared/constant"
	gDto "voyago/shared/dto"
	"voyago/shared/failure"
	gModel "voyago/shared/model"
	"voyago/shared/timezone"
)

type TravelerRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email"     validate:"omitempty,email,max=100"`
	Phone    string `json:"phone"     validate:"omitempty,max=20"`
}

type CreateBookingRequest struct {
	PackageID     *string           `json:"package_id"     validate:"omitempty"`
	CustomPrice   *float64          `json:"custom_price"   validate:"omitempty,gte=0"`
	TravelDate    string            `json:"travel_date"    validate:"required"`
	TravelerCount int               `json:"traveler_count" validate:"required,min=1"`
	Travelers     []TravelerRequest `json:"travelers"      validate:"required,min=1,dive"`
}

// ValidatePricing enforces the pricing rules struct tags cannot express:
// exactly one price source, and a traveler manifest matching the count.
func (c *CreateBookingRequest) ValidatePricing() error {
	if c.PackageID == nil && c.CustomPrice == nil {
		return failure.BadRequestFromString("either package_id or custom_price is required") // nolint:wrapcheck
	}

	if c.PackageID != nil && c.CustomPrice != nil {
		return failure.BadRequestFromString("package_id and custom_price are mutually exclusive") // nolint:wrapcheck
	}

	if len(c.Travelers) != c.TravelerCount {
		return failure.BadRequestFromString("travelers must contain exactly traveler_count entries") // nolint:wrapcheck
	}

	return nil
}

func (c *CreateBookingRequest) ToModel(user, reference string, totalPrice float64) (model.Booking, error) {
	travelDate, err := time.Parse(constant.TravelDateFormat, c.TravelDate)
	if err != nil {
		return model.Booking{}, err
	}

	travelers := make(model.Travelers, len(c.Travelers))
	for i, traveler := range c.Travelers {
		travelers[i] = model.Traveler{
			FullName: traveler.FullName,
			Email:    traveler.Email,
			Phone:    traveler.Phone,
		}
	}

	return model.Booking{
		ID:            uuid.NewString(),
		Reference:     reference,
		UserID:        user,
		PackageID:     c.PackageID,
		TravelDate:    travelDate,
		TravelerCount: c.TravelerCount,
		Travelers:     travelers,
		TotalPrice:    totalPrice,
		Status:        model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  timezone.Now(),
			ModifiedAt: timezone.Now(),
			CreatedBy:  user,
			ModifiedBy: user,
		},
	}, nil
}

type UpdateBookingRequest struct {
	Status     string `db:"status"        json:"status"      validate:"omitempty,oneof=confirmed completed"`
	TravelDate string `json:"travel_date" validate:"omitempty"`
}

type BookingResponse struct {
	ID            string          `json:"id"`
	Reference     string          `json:"reference"`
	UserID        string          `json:"user_id"`
	PackageID     *string         `json:"package_id,omitempty"`
	TravelDate    string          `json:"travel_date"`
	TravelerCount int             `json:"traveler_count"`
	Travelers     model.Travelers `json:"travelers"`
	TotalPrice    float64         `json:"total_price"`
	Status        string          `json:"status"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.Reference = model.Reference
	r.UserID = model.UserID
	r.PackageID = model.PackageID
	r.TravelDate = model.TravelDate.Format(constant.TravelDateFormat)
	r.TravelerCount = model.TravelerCount
	r.Travelers = model.Travelers
	r.TotalPrice = model.TotalPrice
	r.Status = model.Status
	r.Metadata.FromModel(model.Metadata)
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}
