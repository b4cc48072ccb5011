package analysis

import (
	"fertility-platform/internal/models"
)

// BuildSummary lines up the crude rate, TFR and mean age of every
// (year, nationality) that carries a crude rate and a TFR. The mean age is
// left undefined where it is missing.
func BuildSummary(rates []models.RatePoint, tfr []models.TFRPoint, mac []models.MACPoint, policy JoinPolicy) ([]models.SummaryRow, []string, error) {
	rateBy := make(map[classKey]models.Measure, len(rates))
	for _, r := range rates {
		rateBy[classKey{year: r.Year, nat: r.Nationality}] = r.RatePer1000
	}
	tfrBy := make(map[classKey]float64, len(tfr))
	for _, t := range tfr {
		tfrBy[classKey{year: t.Year, nat: t.Nationality}] = t.TFR
	}
	macBy := make(map[classKey]models.Measure, len(mac))
	for _, m := range mac {
		macBy[classKey{year: m.Year, nat: m.Nationality}] = m.MeanAge
	}

	unmatched := unmatchedKeys(rateBy, tfrBy)
	if err := policy.check("annual summary", unmatched); err != nil {
		return nil, unmatched, err
	}

	out := make([]models.SummaryRow, 0, len(rateBy))
	for _, k := range sortedClassKeys(rateBy) {
		t, ok := tfrBy[k]
		if !ok {
			continue
		}
		meanAge, ok := macBy[k]
		if !ok {
			meanAge = models.Undefined()
		}
		out = append(out, models.SummaryRow{
			Year:        k.year,
			Nationality: k.nat,
			RatePer1000: rateBy[k],
			TFR:         t,
			MeanAge:     meanAge,
		})
	}
	return out, unmatched, nil
}

// SelectYears keeps the summary rows of the given years, in table order.
func SelectYears(rows []models.SummaryRow, years []int) []models.SummaryRow {
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}
	var out []models.SummaryRow
	for _, r := range rows {
		if want[r.Year] {
			out = append(out, r)
		}
	}
	return out
}
