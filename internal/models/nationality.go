package models

import "fmt"

// Nationality is the two-class nationality grouping used by every indicator.
// It is a closed enum: any other value is rejected by UnmarshalText.
type Nationality string

const (
	NationalityNative  Nationality = "native"
	NationalityForeign Nationality = "foreign"
)

// Nationalities lists both classes in reporting order.
var Nationalities = []Nationality{NationalityNative, NationalityForeign}

// Valid reports whether n is one of the two canonical classes.
func (n Nationality) Valid() bool {
	return n == NationalityNative || n == NationalityForeign
}

func (n Nationality) String() string {
	return string(n)
}

// UnmarshalText accepts only the canonical class names.
func (n *Nationality) UnmarshalText(text []byte) error {
	v := Nationality(text)
	if !v.Valid() {
		return &ValidationError{
			Field:   "nationality",
			Value:   string(text),
			Message: fmt.Sprintf("unknown nationality class %q, expected native or foreign", string(text)),
		}
	}
	*n = v
	return nil
}
