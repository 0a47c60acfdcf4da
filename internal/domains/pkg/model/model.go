package model

import "voyago/shared/model"

const (
	TableName  = "travel_packages"
	EntityName = "package"

	FieldID           = "id"
	FieldName         = "name"
	FieldDescription  = "description"
	FieldDestination  = "destination"
	FieldUnitPrice    = "unit_price"
	FieldDurationDays = "duration_days"
	FieldMaxTravelers = "max_travelers"
	FieldActive       = "active"
)

// TravelPackage is a catalog entry. UnitPrice is the per-traveler price in
// major currency units.
type TravelPackage struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Description  *string `db:"description"`
	Destination  string  `db:"destination"`
	UnitPrice    float64 `db:"unit_price"`
	DurationDays int     `db:"duration_days"`
	MaxTravelers int     `db:"max_travelers"`
	Active       bool    `db:"active"`
	model.Metadata
}
