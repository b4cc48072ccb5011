package models

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Birth is one row of the births table. Several rows may share a
// (year, nationality) key before aggregation, one per source nationality.
type Birth struct {
	Year             int         `json:"year" db:"year"`
	NationalityLabel string      `json:"nationality_label" db:"nationality_label"`
	Nationality      Nationality `json:"nationality,omitempty" db:"-"`
	Births           float64     `json:"births" db:"births"`
}

// PopulationCount is one row of the female population table. Period is the
// raw snapshot label ("1 de enero de 2020"); Year is the calendar year
// extracted from it.
type PopulationCount struct {
	Period           string      `json:"period" db:"period"`
	Year             int         `json:"year" db:"year"`
	AgeBandRaw       string      `json:"age_band_raw" db:"age_band_raw"`
	NationalityLabel string      `json:"nationality_label" db:"nationality_label"`
	Nationality      Nationality `json:"nationality,omitempty" db:"-"`
	Population       float64     `json:"population" db:"population"`
}

// FertilityRate is one row of the age-specific fertility rate table,
// expressed in births per 1,000 women.
type FertilityRate struct {
	Year             int         `json:"year" db:"year"`
	AgeBandRaw       string      `json:"age_band_raw" db:"age_band_raw"`
	NationalityLabel string      `json:"nationality_label" db:"nationality_label"`
	Nationality      Nationality `json:"nationality,omitempty" db:"-"`
	Rate             float64     `json:"rate" db:"rate"`
}

// OfficialTFR is one row of the published TFR reference series.
type OfficialTFR struct {
	Year             int         `json:"year" db:"year"`
	NationalityLabel string      `json:"nationality_label" db:"nationality_label"`
	Nationality      Nationality `json:"nationality,omitempty" db:"-"`
	TFR              float64     `json:"tfr" db:"tfr"`
}

// Label and WithNationality let the normaliser classify every raw table.

func (b Birth) Label() string { return b.NationalityLabel }

func (b Birth) WithNationality(n Nationality) Birth {
	b.Nationality = n
	return b
}

func (p PopulationCount) Label() string { return p.NationalityLabel }

func (p PopulationCount) WithNationality(n Nationality) PopulationCount {
	p.Nationality = n
	return p
}

func (r FertilityRate) Label() string { return r.NationalityLabel }

func (r FertilityRate) WithNationality(n Nationality) FertilityRate {
	r.Nationality = n
	return r
}

func (t OfficialTFR) Label() string { return t.NationalityLabel }

func (t OfficialTFR) WithNationality(n Nationality) OfficialTFR {
	t.Nationality = n
	return t
}

// NumberFormat describes how numeric cells are written in a source file.
type NumberFormat struct {
	Thousands string `yaml:"thousands"`
	Decimal   string `yaml:"decimal"`
}

// PlainNumbers is the format of machine-written numbers ("1234.5").
var PlainNumbers = NumberFormat{Decimal: "."}

// SpanishNumbers is the format of locale-written numbers ("1.234,5").
var SpanishNumbers = NumberFormat{Thousands: ".", Decimal: ","}

// Parse converts a locale-formatted cell to a float64.
func (f NumberFormat) Parse(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, &ValidationError{Field: field, Value: raw, Message: field + " is empty"}
	}

	if f.Thousands != "" {
		s = strings.ReplaceAll(s, f.Thousands, "")
	}
	if f.Decimal != "" && f.Decimal != "." {
		s = strings.ReplaceAll(s, f.Decimal, ".")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{
			Field:   field,
			Value:   raw,
			Message: "invalid " + field + ": not a number",
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{
			Field:   field,
			Value:   raw,
			Message: "invalid " + field + ": not a finite number",
		}
	}
	return v, nil
}

var yearPattern = regexp.MustCompile(`(\d{4})`)

// ParseYear extracts the first four-digit year from a cell such as "2020",
// "2020.0" or "1 de julio de 2020".
func ParseYear(raw string) (int, error) {
	m := yearPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, &ValidationError{
			Field:   "year",
			Value:   raw,
			Message: "invalid year: no four-digit year found",
		}
	}
	year, _ := strconv.Atoi(m[1])
	if year < 1800 || year > time.Now().Year()+1 {
		return 0, &ValidationError{
			Field:   "year",
			Value:   raw,
			Message: "invalid year: out of range",
		}
	}
	return year, nil
}

// RawBirthRecord is a births row as read from a source file.
type RawBirthRecord struct {
	Year        string
	Nationality string
	Births      string
}

// ToBirth converts the raw cells, leaving the nationality class unset.
func (r *RawBirthRecord) ToBirth(format NumberFormat) (*Birth, error) {
	year, err := ParseYear(r.Year)
	if err != nil {
		return nil, err
	}
	births, err := format.Parse("births", r.Births)
	if err != nil {
		return nil, err
	}
	if births < 0 {
		return nil, &ValidationError{Field: "births", Value: r.Births, Message: "births must not be negative"}
	}

	return &Birth{
		Year:             year,
		NationalityLabel: strings.TrimSpace(r.Nationality),
		Births:           births,
	}, nil
}

// RawPopulationRecord is a population row as read from a source file.
type RawPopulationRecord struct {
	Period      string
	AgeBand     string
	Nationality string
	Population  string
}

// ToPopulationCount converts the raw cells. Age bands are kept raw so the
// aggregator decides which bands are fertile.
func (r *RawPopulationRecord) ToPopulationCount(format NumberFormat) (*PopulationCount, error) {
	year, err := ParseYear(r.Period)
	if err != nil {
		return nil, err
	}
	population, err := format.Parse("population", r.Population)
	if err != nil {
		return nil, err
	}
	if population < 0 {
		return nil, &ValidationError{Field: "population", Value: r.Population, Message: "population must not be negative"}
	}

	return &PopulationCount{
		Period:           strings.TrimSpace(r.Period),
		Year:             year,
		AgeBandRaw:       strings.TrimSpace(r.AgeBand),
		NationalityLabel: strings.TrimSpace(r.Nationality),
		Population:       population,
	}, nil
}

// RawFertilityRateRecord is an ASFR row as read from a source file.
type RawFertilityRateRecord struct {
	Year        string
	AgeBand     string
	Nationality string
	Rate        string
}

// ToFertilityRate converts the raw cells.
func (r *RawFertilityRateRecord) ToFertilityRate(format NumberFormat) (*FertilityRate, error) {
	year, err := ParseYear(r.Year)
	if err != nil {
		return nil, err
	}
	rate, err := format.Parse("rate", r.Rate)
	if err != nil {
		return nil, err
	}
	if rate < 0 {
		return nil, &ValidationError{Field: "rate", Value: r.Rate, Message: "rate must not be negative"}
	}

	return &FertilityRate{
		Year:             year,
		AgeBandRaw:       strings.TrimSpace(r.AgeBand),
		NationalityLabel: strings.TrimSpace(r.Nationality),
		Rate:             rate,
	}, nil
}

// RawOfficialTFRRecord is an official TFR row as read from a source file.
type RawOfficialTFRRecord struct {
	Year        string
	Nationality string
	TFR         string
}

// ToOfficialTFR converts the raw cells.
func (r *RawOfficialTFRRecord) ToOfficialTFR(format NumberFormat) (*OfficialTFR, error) {
	year, err := ParseYear(r.Year)
	if err != nil {
		return nil, err
	}
	tfr, err := format.Parse("tfr", r.TFR)
	if err != nil {
		return nil, err
	}

	return &OfficialTFR{
		Year:             year,
		NationalityLabel: strings.TrimSpace(r.Nationality),
		TFR:              tfr,
	}, nil
}

// ValidationError represents a data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
