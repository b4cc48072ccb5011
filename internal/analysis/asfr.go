package analysis

import (
	"sort"

	"fertility-platform/internal/models"
)

// collapseRates reduces a rate table to one value per (year, band,
// nationality). Rows outside the fertile bands are dropped and duplicate keys
// are averaged.
func collapseRates(rates []models.FertilityRate) map[ageKey]float64 {
	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[ageKey]*acc)
	for _, r := range rates {
		band, ok := models.ParseAgeBand(r.AgeBandRaw)
		if !ok {
			continue
		}
		k := ageKey{year: r.Year, band: band, nat: classOf(r.NationalityLabel, r.Nationality)}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.sum += r.Rate
		a.n++
	}

	out := make(map[ageKey]float64, len(groups))
	for k, a := range groups {
		out[k] = a.sum / float64(a.n)
	}
	return out
}

// splitByNationality indexes a collapsed rate table by (year, band) for one class.
func splitByNationality(rates map[ageKey]float64, nat models.Nationality) map[bandKey]float64 {
	out := make(map[bandKey]float64)
	for k, v := range rates {
		if k.nat == nat {
			out[bandKey{year: k.year, band: k.band}] = v
		}
	}
	return out
}

// CompareASFR pairs the native and foreign age-specific rates of every
// (year, age band) present for both classes. AbsDiff is foreign minus native
// and Ratio is foreign over native, undefined when the native rate is zero.
func CompareASFR(rates []models.FertilityRate, policy JoinPolicy) ([]models.ASFRComparison, []string, error) {
	collapsed := collapseRates(rates)
	native := splitByNationality(collapsed, models.NationalityNative)
	foreign := splitByNationality(collapsed, models.NationalityForeign)

	unmatched := unmatchedKeys(native, foreign)
	if err := policy.check("asfr comparison", unmatched); err != nil {
		return nil, unmatched, err
	}

	out := make([]models.ASFRComparison, 0, len(native))
	for _, k := range sortedBandKeys(native) {
		f, ok := foreign[k]
		if !ok {
			continue
		}
		n := native[k]
		out = append(out, models.ASFRComparison{
			Year:        k.year,
			AgeBand:     k.band,
			RateNative:  n,
			RateForeign: f,
			AbsDiff:     f - n,
			Ratio:       models.Ratio(f, n),
		})
	}
	return out, unmatched, nil
}

// ASFRHeatmapFor pivots the rates of one nationality into a band x year
// matrix. Rows follow FertileAgeBands and columns the ascending years found.
func ASFRHeatmapFor(rates []models.FertilityRate, nat models.Nationality) models.ASFRHeatmap {
	cells := splitByNationality(collapseRates(rates), nat)

	yearSet := make(map[int]bool)
	for k := range cells {
		yearSet[k.year] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	hm := models.ASFRHeatmap{
		Nationality: nat,
		AgeBands:    append([]models.AgeBand(nil), models.FertileAgeBands[:]...),
		Years:       years,
		Values:      make([][]models.Measure, len(models.FertileAgeBands)),
	}
	for i, band := range models.FertileAgeBands {
		row := make([]models.Measure, len(years))
		for j, y := range years {
			if v, ok := cells[bandKey{year: y, band: band}]; ok {
				row[j] = models.Measure(v)
			} else {
				row[j] = models.Undefined()
			}
		}
		hm.Values[i] = row
	}
	return hm
}
