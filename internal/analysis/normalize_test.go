package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fertility-platform/internal/models"
)

func TestNormalizerClassify(t *testing.T) {
	n := NewNormalizer("")

	tests := []struct {
		label string
		want  models.Nationality
	}{
		{"Española", models.NationalityNative},
		{"  ESPAÑOLA ", models.NationalityNative},
		{"espanola", models.NationalityNative},
		{"Española/España", models.NationalityNative},
		{"Extranjera", models.NationalityForeign},
		{"Marruecos", models.NationalityForeign},
		{"Total", models.NationalityForeign},
		{"", models.NationalityForeign},
		{"native", models.NationalityNative},
		{"foreign", models.NationalityForeign},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Classify(tt.label))
		})
	}
}

func TestNormalizerIdempotent(t *testing.T) {
	n := NewNormalizer("")
	for _, label := range []string{"Española", "Extranjera", "Rumanía", "", "  españa  ", "Unión Europea"} {
		once := n.Classify(label)
		twice := n.Classify(once.String())
		assert.Equal(t, once, twice, "label %q", label)
	}
}

func TestNormalizerCustomRoot(t *testing.T) {
	n := NewNormalizer("Portugu")
	assert.Equal(t, models.NationalityNative, n.Classify("Portuguesa"))
	assert.Equal(t, models.NationalityForeign, n.Classify("Española"))
}

func TestNormalizeRows(t *testing.T) {
	rows := []models.Birth{
		{Year: 2020, NationalityLabel: "Española", Births: 10},
		{Year: 2020, NationalityLabel: "Extranjera", Births: 5},
	}

	out := NormalizeRows(NewNormalizer(""), rows)
	require.Len(t, out, 2)
	assert.Equal(t, models.NationalityNative, out[0].Nationality)
	assert.Equal(t, models.NationalityForeign, out[1].Nationality)

	// input untouched
	assert.Equal(t, models.Nationality(""), rows[0].Nationality)

	again := NormalizeRows(NewNormalizer(""), out)
	assert.Equal(t, out, again)
}
