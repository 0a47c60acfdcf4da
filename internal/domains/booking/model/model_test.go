package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voyago/internal/domains/booking/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{name: "pending to paid", from: model.StatusPending, to: model.StatusPaid, allowed: true},
		{name: "pending to cancelled", from: model.StatusPending, to: model.StatusCancelled, allowed: true},
		{name: "pending to confirmed", from: model.StatusPending, to: model.StatusConfirmed, allowed: false},
		{name: "pending to completed", from: model.StatusPending, to: model.StatusCompleted, allowed: false},
		{name: "paid to confirmed", from: model.StatusPaid, to: model.StatusConfirmed, allowed: true},
		{name: "paid to cancelled", from: model.StatusPaid, to: model.StatusCancelled, allowed: false},
		{name: "paid to completed", from: model.StatusPaid, to: model.StatusCompleted, allowed: false},
		{name: "confirmed to completed", from: model.StatusConfirmed, to: model.StatusCompleted, allowed: true},
		{name: "confirmed to cancelled", from: model.StatusConfirmed, to: model.StatusCancelled, allowed: true},
		{name: "confirmed to paid", from: model.StatusConfirmed, to: model.StatusPaid, allowed: false},
		{name: "completed is terminal", from: model.StatusCompleted, to: model.StatusCancelled, allowed: false},
		{name: "cancelled is terminal", from: model.StatusCancelled, to: model.StatusPending, allowed: false},
		{name: "no self transition", from: model.StatusPending, to: model.StatusPending, allowed: false},
		{name: "unknown status", from: "bogus", to: model.StatusPaid, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, model.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, model.IsTerminal(model.StatusPending))
	assert.False(t, model.IsTerminal(model.StatusPaid))
	assert.False(t, model.IsTerminal(model.StatusConfirmed))
	assert.True(t, model.IsTerminal(model.StatusCompleted))
	assert.True(t, model.IsTerminal(model.StatusCancelled))
}

func TestIsCancellable(t *testing.T) {
	assert.True(t, model.IsCancellable(model.StatusPending))
	assert.False(t, model.IsCancellable(model.StatusPaid))
	assert.True(t, model.IsCancellable(model.StatusConfirmed))
	assert.False(t, model.IsCancellable(model.StatusCompleted))
	assert.False(t, model.IsCancellable(model.StatusCancelled))
}

func TestTravelersScanValue(t *testing.T) {
	travelers := model.Travelers{
		{FullName: "Ada Obi", Email: "ada@example.com"},
		{FullName: "Chidi Eze", Phone: "+2348012345678"},
	}

	value, err := travelers.Value()
	assert.NoError(t, err)

	var scanned model.Travelers
	assert.NoError(t, scanned.Scan(value))
	assert.Equal(t, travelers, scanned)

	var fromNil model.Travelers
	assert.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)
}

func TestBookingIsCustom(t *testing.T) {
	packageID := "pkg-1"

	custom := model.Booking{}
	assert.True(t, custom.IsCustom())

	catalog := model.Booking{PackageID: &packageID}
	assert.False(t, catalog.IsCustom())
}
