package models

import (
	"fmt"
	"regexp"
	"strconv"
)

// AgeBand is one of the seven quinquennial fertile age bands, 15-19 through 45-49.
type AgeBand int

const (
	AgeBand15to19 AgeBand = iota
	AgeBand20to24
	AgeBand25to29
	AgeBand30to34
	AgeBand35to39
	AgeBand40to44
	AgeBand45to49
)

// AgeBandWidth is the width in years of every band.
const AgeBandWidth = 5

// FertileAgeBands lists the bands in ascending age order.
var FertileAgeBands = [...]AgeBand{
	AgeBand15to19,
	AgeBand20to24,
	AgeBand25to29,
	AgeBand30to34,
	AgeBand35to39,
	AgeBand40to44,
	AgeBand45to49,
}

// centralAges is read-only after package initialisation.
var centralAges = [...]float64{17.5, 22.5, 27.5, 32.5, 37.5, 42.5, 47.5}

var bandBoundsPattern = regexp.MustCompile(`(\d{1,3})\D+(\d{1,3})`)

// Valid reports whether b is one of the seven fertile bands.
func (b AgeBand) Valid() bool {
	return b >= AgeBand15to19 && b <= AgeBand45to49
}

// Lower returns the first age covered by the band.
func (b AgeBand) Lower() int {
	return 15 + int(b)*AgeBandWidth
}

// Upper returns the last age covered by the band.
func (b AgeBand) Upper() int {
	return b.Lower() + AgeBandWidth - 1
}

// CentralAge returns the band midpoint (17.5 for 15-19 and so on).
func (b AgeBand) CentralAge() float64 {
	if !b.Valid() {
		return 0
	}
	return centralAges[b]
}

func (b AgeBand) String() string {
	if !b.Valid() {
		return fmt.Sprintf("AgeBand(%d)", int(b))
	}
	return fmt.Sprintf("%d-%d", b.Lower(), b.Upper())
}

// MarshalText encodes the band as "15-19".
func (b AgeBand) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid age band %d", int(b))
	}
	return []byte(b.String()), nil
}

// UnmarshalText accepts any representation understood by ParseAgeBand.
func (b *AgeBand) UnmarshalText(text []byte) error {
	band, ok := ParseAgeBand(string(text))
	if !ok {
		return &ValidationError{
			Field:   "age_band",
			Value:   string(text),
			Message: "age band is not one of the fertile bands 15-19 .. 45-49",
		}
	}
	*b = band
	return nil
}

// ParseAgeBand maps a raw band label such as "De 15 a 19 años", "15-19" or
// "From 45 to 49 years" to a fertile band. Labels outside 15-49, open-ended
// labels and labels whose bounds are not a quinquennial band return false.
func ParseAgeBand(raw string) (AgeBand, bool) {
	m := bandBoundsPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}

	lower, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	upper, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}

	if upper-lower != AgeBandWidth-1 || lower < 15 || lower > 45 || (lower-15)%AgeBandWidth != 0 {
		return 0, false
	}

	return AgeBand((lower - 15) / AgeBandWidth), true
}
