package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fertility-platform/internal/models"
)

func TestYearFilter(t *testing.T) {
	const base = "SELECT year FROM raw_births WHERE 1=1"

	tests := []struct {
		name      string
		years     models.YearRange
		wantQuery string
		wantArgs  []interface{}
	}{
		{
			name:      "open range adds nothing",
			wantQuery: base,
			wantArgs:  []interface{}{},
		},
		{
			name:      "lower bound only",
			years:     models.YearRange{From: 2002},
			wantQuery: base + " AND year >= $1",
			wantArgs:  []interface{}{2002},
		},
		{
			name:      "upper bound only takes the first placeholder",
			years:     models.YearRange{To: 2024},
			wantQuery: base + " AND year <= $1",
			wantArgs:  []interface{}{2024},
		},
		{
			name:      "both bounds",
			years:     models.YearRange{From: 2002, To: 2024},
			wantQuery: base + " AND year >= $1 AND year <= $2",
			wantArgs:  []interface{}{2002, 2024},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := yearFilter(base, tt.years)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "births", ID: "2002..2024"}
	assert.Contains(t, err.Error(), "births")
	assert.False(t, err.IsTransient())
}
