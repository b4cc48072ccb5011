package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"fertility-platform/internal/models"
)

// DefaultNativeRoot matches every spelling of "española" once accents are folded.
const DefaultNativeRoot = "espan"

// Normalizer collapses free-text nationality labels into the two classes.
// A label is native when, after trimming, lower-casing and removing
// diacritics, it contains NativeRoot. Everything else, empty labels
// included, is foreign. The canonical class names map to themselves so
// normalising an already normalised label is a no-op.
type Normalizer struct {
	NativeRoot string
}

// NewNormalizer returns a normaliser for the given root; an empty root
// selects DefaultNativeRoot.
func NewNormalizer(nativeRoot string) Normalizer {
	return Normalizer{NativeRoot: nativeRoot}
}

func (n Normalizer) root() string {
	if r := foldLabel(n.NativeRoot); r != "" {
		return r
	}
	return DefaultNativeRoot
}

// Classify maps one label to its class.
func (n Normalizer) Classify(label string) models.Nationality {
	folded := foldLabel(label)

	switch models.Nationality(folded) {
	case models.NationalityNative:
		return models.NationalityNative
	case models.NationalityForeign:
		return models.NationalityForeign
	}

	if folded != "" && strings.Contains(folded, n.root()) {
		return models.NationalityNative
	}
	return models.NationalityForeign
}

// Labeled is implemented by every raw table row.
type Labeled[T any] interface {
	Label() string
	WithNationality(models.Nationality) T
}

// NormalizeRows returns a copy of rows with the nationality class set.
func NormalizeRows[T Labeled[T]](n Normalizer, rows []T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.WithNationality(n.Classify(r.Label()))
	}
	return out
}

// classOf returns the class already set on a row, classifying the label
// with the default normaliser when the row has not been normalised.
func classOf(label string, nat models.Nationality) models.Nationality {
	if nat.Valid() {
		return nat
	}
	return Normalizer{}.Classify(label)
}

func foldLabel(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
