package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"fertility-platform/internal/models"
	"fertility-platform/internal/source"
)

func TestRatesPivot(t *testing.T) {
	var buf bytes.Buffer
	points := []models.RatePoint{
		{Year: 2021, Nationality: models.NationalityForeign, RatePer1000: 80, RateSmoothed: models.Undefined()},
		{Year: 2020, Nationality: models.NationalityNative, RatePer1000: 60.126, RateSmoothed: 61},
		{Year: 2020, Nationality: models.NationalityForeign, RatePer1000: 75, RateSmoothed: 77.5},
	}

	require.NoError(t, New(&buf, language.English).Rates(points))
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "Births per 1,000 women")
	assert.Contains(t, lines[2], "Native (3y)")
	assert.Equal(t, []string{"2020", "60.13", "75.00", "61.00", "77.50"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"2021", "n/a", "80.00", "n/a", "n/a"}, strings.Fields(lines[4]))
}

func TestNumberLocale(t *testing.T) {
	tests := []struct {
		name string
		tag  language.Tag
		want string
	}{
		{name: "english", tag: language.English, want: "1,234,567.50"},
		{name: "spanish", tag: language.Spanish, want: "1.234.567,50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&bytes.Buffer{}, tt.tag)
			assert.Equal(t, tt.want, p.num(1234567.5, 2))
			assert.Equal(t, "n/a", p.measure(models.Measure(math.Inf(1)), 2))
		})
	}
}

func TestParseLanguage(t *testing.T) {
	tag, err := ParseLanguage("es-ES")
	require.NoError(t, err)
	base, _ := tag.Base()
	assert.Equal(t, "es", base.String())

	_, err = ParseLanguage("not a tag!")
	assert.Error(t, err)
}

func TestKitagawaIncomplete(t *testing.T) {
	var buf bytes.Buffer
	results := []models.KitagawaResult{{
		Year:            2019,
		TotalDiff:       0.01,
		StructureEffect: 0.004,
		RateEffect:      0.006,
		CrudeNative:     0.04,
		CrudeForeign:    0.05,
		PerAge: []models.KitagawaAgeEffect{
			{AgeBand: models.AgeBand20to24, StructureEffect: 0.004, RateEffect: 0.006},
		},
		Incomplete:   true,
		MissingBands: []models.AgeBand{models.AgeBand15to19, models.AgeBand45to49},
	}}

	require.NoError(t, New(&buf, language.English).Kitagawa(results))
	out := buf.String()

	assert.Contains(t, out, "Year 2019 (incomplete, missing 15-19, 45-49)")
	assert.Contains(t, out, "0.01000")
	assert.Contains(t, out, "20-24")
}

func TestCohortsOrdering(t *testing.T) {
	var buf bytes.Buffer
	rows := []models.CohortAverage{
		{CohortYear: 1990, Age: 27.5, Nationality: models.NationalityForeign, MeanRate: 90},
		{CohortYear: 1985, Age: 32.5, Nationality: models.NationalityNative, MeanRate: 70},
		{CohortYear: 1990, Age: 27.5, Nationality: models.NationalityNative, MeanRate: 50},
	}

	require.NoError(t, New(&buf, language.English).Cohorts(rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, []string{"1985", "32.5", "70.00", "n/a"}, strings.Fields(lines[3]))
	assert.Equal(t, []string{"1990", "27.5", "50.00", "90.00"}, strings.Fields(lines[4]))
}

func TestValidationAndNotes(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf, language.English)

	reports := []source.TableReport{
		{Table: source.TableBirths, File: "births.csv", Rows: 1200, Loaded: 1199, Skipped: 1,
			Errors: []string{"line 7: invalid number \"abc\""}},
	}
	require.NoError(t, p.Validation(reports))
	p.Notes([]string{"2021/native"}, nil)

	out := buf.String()
	assert.Contains(t, out, "1,199")
	assert.Contains(t, out, "[births] line 7")
	assert.Contains(t, out, "DROPPED KEYS (1):")
	assert.NotContains(t, out, "WARNINGS")
}
