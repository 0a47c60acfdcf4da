package dto_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"voyago/shared/constant"
	"voyago/shared/dto"
)

func TestQueryParams_FromRequest(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		defaultRequest bool
		expected       dto.QueryParams
	}{
		{
			name:           "bare request defaults to newest first",
			target:         "/v1/bookings",
			defaultRequest: true,
			expected: dto.QueryParams{
				Page:    constant.DefaultValuePage,
				Limit:   constant.DefaultValueLimit,
				SortBy:  constant.DefaultValueSortBy,
				SortDir: constant.DefaultValueSortDir,
			},
		},
		{
			name:           "explicit params win over defaults",
			target:         "/v1/bookings?page=3&limit=25&sort_by=travel_date&sort_dir=asc",
			defaultRequest: true,
			expected: dto.QueryParams{
				Page:    3,
				Limit:   25,
				SortBy:  "travel_date",
				SortDir: dto.SortDirAsc,
			},
		},
		{
			name:           "invalid sort direction falls back to default",
			target:         "/v1/bookings?sort_dir=sideways",
			defaultRequest: true,
			expected: dto.QueryParams{
				Page:    constant.DefaultValuePage,
				Limit:   constant.DefaultValueLimit,
				SortBy:  constant.DefaultValueSortBy,
				SortDir: constant.DefaultValueSortDir,
			},
		},
		{
			name:           "no defaults requested leaves params empty",
			target:         "/v1/bookings",
			defaultRequest: false,
			expected:       dto.QueryParams{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)

			q := dto.QueryParams{}
			q.FromRequest(r, tt.defaultRequest)

			assert.Equal(t, tt.expected, q)
		})
	}
}
