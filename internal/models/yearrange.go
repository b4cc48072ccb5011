package models

import "fmt"

// YearRange is an inclusive range of calendar years. A zero bound is open.
type YearRange struct {
	From int `json:"from,omitempty"`
	To   int `json:"to,omitempty"`
}

// Contains reports whether year lies inside the range.
func (r YearRange) Contains(year int) bool {
	if r.From != 0 && year < r.From {
		return false
	}
	if r.To != 0 && year > r.To {
		return false
	}
	return true
}

// Intersect narrows r by o, keeping the tighter bound on each side.
func (r YearRange) Intersect(o YearRange) YearRange {
	out := r
	if o.From != 0 && (out.From == 0 || o.From > out.From) {
		out.From = o.From
	}
	if o.To != 0 && (out.To == 0 || o.To < out.To) {
		out.To = o.To
	}
	return out
}

func (r YearRange) String() string {
	switch {
	case r.From == 0 && r.To == 0:
		return "all years"
	case r.From == 0:
		return fmt.Sprintf("..%d", r.To)
	case r.To == 0:
		return fmt.Sprintf("%d..", r.From)
	}
	return fmt.Sprintf("%d..%d", r.From, r.To)
}
