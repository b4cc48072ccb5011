package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fertility-platform/internal/models"
)

func TestBuildPseudoCohorts(t *testing.T) {
	rates := []models.FertilityRate{
		rate(2020, models.AgeBand25to29, models.NationalityNative, 40),
		rate(2021, models.AgeBand25to29, models.NationalityNative, 42),
		rate(2020, models.AgeBand15to19, models.NationalityForeign, 12),
	}

	out := BuildPseudoCohorts(rates)
	require.Len(t, out, 3)

	// 2020 - 17.5 and 2020 - 27.5 round to the even neighbour
	assert.Equal(t, models.Cohort{CohortYear: 2002, Age: 17.5, Year: 2020, Nationality: models.NationalityForeign, Rate: 12}, out[0])
	assert.Equal(t, 1992, out[1].CohortYear)
	assert.Equal(t, 27.5, out[1].Age)
	assert.Equal(t, 1994, out[2].CohortYear)
}

func TestCompareCohorts(t *testing.T) {
	cohorts := []models.Cohort{
		{CohortYear: 1990, Age: 32.5, Year: 2022, Nationality: models.NationalityNative, Rate: 80},
		{CohortYear: 1990, Age: 32.5, Year: 2023, Nationality: models.NationalityNative, Rate: 90},
		{CohortYear: 1990, Age: 32.5, Year: 2022, Nationality: models.NationalityForeign, Rate: 70},
		{CohortYear: 1985, Age: 37.5, Year: 2022, Nationality: models.NationalityNative, Rate: 50},
		{CohortYear: 2000, Age: 22.5, Year: 2022, Nationality: models.NationalityNative, Rate: 20},
	}

	lo, hi := 1988, 1995
	out := CompareCohorts(cohorts, CohortBounds{Min: &lo, Max: &hi})
	require.Len(t, out, 2)
	assert.Equal(t, models.CohortAverage{CohortYear: 1990, Age: 32.5, Nationality: models.NationalityNative, MeanRate: 85, Observations: 2}, out[0])
	assert.Equal(t, models.NationalityForeign, out[1].Nationality)

	all := CompareCohorts(cohorts, CohortBounds{})
	require.Len(t, all, 4)
	assert.Equal(t, 1985, all[0].CohortYear)
	assert.Equal(t, 2000, all[3].CohortYear)
}

func TestBuildSummary(t *testing.T) {
	rates := []models.RatePoint{
		{Year: 2020, Nationality: models.NationalityForeign, RatePer1000: 55},
		{Year: 2020, Nationality: models.NationalityNative, RatePer1000: 30},
		{Year: 2021, Nationality: models.NationalityNative, RatePer1000: 29},
	}
	tfr := []models.TFRPoint{
		{Year: 2020, Nationality: models.NationalityNative, TFR: 1.1},
		{Year: 2020, Nationality: models.NationalityForeign, TFR: 1.6},
	}
	mac := []models.MACPoint{{Year: 2020, Nationality: models.NationalityNative, MeanAge: 32.9}}

	rows, unmatched, err := BuildSummary(rates, tfr, mac, DropUnmatched)
	require.NoError(t, err)
	assert.Equal(t, []string{"2021/native"}, unmatched)
	require.Len(t, rows, 2)
	assert.Equal(t, models.NationalityNative, rows[0].Nationality)
	assert.Equal(t, models.Measure(32.9), rows[0].MeanAge)
	assert.False(t, rows[1].MeanAge.Defined())

	_, _, err = BuildSummary(rates, tfr, mac, FailOnUnmatched)
	assert.Error(t, err)

	assert.Len(t, SelectYears(rows, []int{2020}), 2)
	assert.Empty(t, SelectYears(rows, []int{2002}))
}
