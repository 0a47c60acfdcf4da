package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voyago/infras/otel/mocks"
	"voyago/shared/constant"
	"voyago/shared/dto"
	"voyago/shared/model"
)

type tripRow struct {
	ID          string `db:"id"`
	Destination string `db:"destination"`
	model.Metadata
}

func TestGetOrderClause(t *testing.T) {
	repo := NewRepository[tripRow]("trip", "trips", "id", nil, mocks.NewOtel())

	tests := []struct {
		name     string
		params   dto.QueryParams
		expected string
	}{
		{
			name:     "default newest first",
			params:   dto.QueryParams{SortBy: constant.DefaultValueSortBy, SortDir: constant.DefaultValueSortDir},
			expected: "ORDER BY created_at DESC",
		},
		{
			name:     "mapped column ascending",
			params:   dto.QueryParams{SortBy: "destination", SortDir: dto.SortDirAsc},
			expected: "ORDER BY destination ASC",
		},
		{
			name:     "lowercase direction accepted",
			params:   dto.QueryParams{SortBy: "id", SortDir: "desc"},
			expected: "ORDER BY id DESC",
		},
		{
			name:     "unmapped column dropped",
			params:   dto.QueryParams{SortBy: "password", SortDir: dto.SortDirDesc},
			expected: "",
		},
		{
			name:     "injection attempt dropped",
			params:   dto.QueryParams{SortBy: "id; DROP TABLE trips", SortDir: dto.SortDirDesc},
			expected: "",
		},
		{
			name:     "unknown direction dropped",
			params:   dto.QueryParams{SortBy: "id", SortDir: "RANDOM()"},
			expected: "",
		},
		{
			name:     "no sort requested",
			params:   dto.QueryParams{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, repo.getOrderClause(tt.params))
		})
	}
}
