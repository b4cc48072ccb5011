// Package analysis holds the fertility indicator computations. Every function
// is pure: inputs are never modified and every result is a freshly allocated
// table.
package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"fertility-platform/internal/models"
)

// JoinPolicy decides what a merge does with keys present on only one side.
type JoinPolicy int

const (
	// DropUnmatched keeps inner-join semantics and reports the dropped keys.
	DropUnmatched JoinPolicy = iota
	// FailOnUnmatched returns an *UnmatchedKeysError instead of dropping.
	FailOnUnmatched
)

var (
	ErrUnmatchedKeys    = errors.New("unmatched join keys")
	ErrInsufficientData = errors.New("insufficient data")
)

// ParseJoinPolicy accepts "drop" or "fail".
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop", "drop-unmatched":
		return DropUnmatched, nil
	case "fail", "fail-on-unmatched":
		return FailOnUnmatched, nil
	}
	return DropUnmatched, fmt.Errorf("unknown join policy %q, expected drop or fail", s)
}

func (p JoinPolicy) String() string {
	if p == FailOnUnmatched {
		return "fail"
	}
	return "drop"
}

// check returns an error under FailOnUnmatched when keys were left unmatched.
func (p JoinPolicy) check(operation string, unmatched []string) error {
	if p == FailOnUnmatched && len(unmatched) > 0 {
		return &UnmatchedKeysError{Operation: operation, Keys: unmatched}
	}
	return nil
}

// UnmatchedKeysError lists the keys a merge could not pair.
type UnmatchedKeysError struct {
	Operation string
	Keys      []string
}

func (e *UnmatchedKeysError) Error() string {
	shown := e.Keys
	suffix := ""
	if len(shown) > 5 {
		shown = shown[:5]
		suffix = fmt.Sprintf(" (and %d more)", len(e.Keys)-5)
	}
	return fmt.Sprintf("%s: %d unmatched join keys: %s%s",
		e.Operation, len(e.Keys), strings.Join(shown, ", "), suffix)
}

func (e *UnmatchedKeysError) Is(target error) bool {
	return target == ErrUnmatchedKeys
}

// IsTransient returns false as missing data does not fix itself
func (e *UnmatchedKeysError) IsTransient() bool {
	return false
}

// InsufficientDataError reports that a year cannot be decomposed.
type InsufficientDataError struct {
	Year         int
	Reason       string
	MissingBands []models.AgeBand
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("insufficient data for year %d: %s", e.Year, e.Reason)
	if len(e.MissingBands) > 0 {
		bands := make([]string, len(e.MissingBands))
		for i, b := range e.MissingBands {
			bands[i] = b.String()
		}
		msg += " (" + strings.Join(bands, ", ") + ")"
	}
	return msg
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// IsTransient returns false as missing data does not fix itself
func (e *InsufficientDataError) IsTransient() bool {
	return false
}

type classKey struct {
	year int
	nat  models.Nationality
}

func (k classKey) String() string {
	return fmt.Sprintf("%d/%s", k.year, k.nat)
}

type bandKey struct {
	year int
	band models.AgeBand
}

func (k bandKey) String() string {
	return fmt.Sprintf("%d/%s", k.year, k.band)
}

type ageKey struct {
	year int
	band models.AgeBand
	nat  models.Nationality
}

func (k ageKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.year, k.band, k.nat)
}

func nationalityRank(n models.Nationality) int {
	if n == models.NationalityNative {
		return 0
	}
	return 1
}

func (k classKey) less(o classKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return nationalityRank(k.nat) < nationalityRank(o.nat)
}

func (k bandKey) less(o bandKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	return k.band < o.band
}

func (k ageKey) less(o ageKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	if k.band != o.band {
		return k.band < o.band
	}
	return nationalityRank(k.nat) < nationalityRank(o.nat)
}

func sortedClassKeys[V any](m map[classKey]V) []classKey {
	keys := make([]classKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

func sortedBandKeys[V any](m map[bandKey]V) []bandKey {
	keys := make([]bandKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

func sortedAgeKeys[V any](m map[ageKey]V) []ageKey {
	keys := make([]ageKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// unmatchedKeys returns the sorted string form of keys present in exactly one map.
func unmatchedKeys[K interface {
	comparable
	fmt.Stringer
}, A, B any](left map[K]A, right map[K]B) []string {
	var out []string
	for k := range left {
		if _, ok := right[k]; !ok {
			out = append(out, k.String())
		}
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			out = append(out, k.String())
		}
	}
	sort.Strings(out)
	return out
}
