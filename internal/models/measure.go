package models

import (
	"encoding/json"
	"math"
)

// Measure is a derived quantity that may be undefined. Undefined values
// (zero denominators) are carried as NaN or ±Inf and encode as JSON null.
type Measure float64

// Undefined returns the canonical undefined marker.
func Undefined() Measure {
	return Measure(math.NaN())
}

// Ratio divides num by den, yielding an undefined Measure on a zero denominator.
func Ratio(num, den float64) Measure {
	if den == 0 {
		return Undefined()
	}
	return Measure(num / den)
}

// Defined reports whether m is a finite number.
func (m Measure) Defined() bool {
	f := float64(m)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Float64 returns the raw value, NaN or Inf included.
func (m Measure) Float64() float64 {
	return float64(m)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(m))
}

func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Undefined()
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = Measure(f)
	return nil
}
