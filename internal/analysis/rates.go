package analysis

import (
	"sort"

	"fertility-platform/internal/models"
)

// SmoothingWindow is the width of the centred rolling mean applied to yearly series.
const SmoothingWindow = 3

// CrudeBirthRates computes births per 1,000 women aged 15-49 for each
// (year, nationality). Births are summed per key, mean population is summed
// over the seven bands, and the two are joined on (year, nationality).
//
// Keys present on only one side are returned as the second value. Under
// FailOnUnmatched they produce an *UnmatchedKeysError instead.
func CrudeBirthRates(births []models.Birth, means []models.PopulationMean, policy JoinPolicy) ([]models.RatePoint, []string, error) {
	birthTotals := make(map[classKey]float64)
	for _, b := range births {
		birthTotals[classKey{year: b.Year, nat: classOf(b.NationalityLabel, b.Nationality)}] += b.Births
	}

	popTotals := make(map[classKey]float64)
	for _, m := range means {
		popTotals[classKey{year: m.Year, nat: m.Nationality}] += m.MeanPopulation
	}

	unmatched := unmatchedKeys(birthTotals, popTotals)
	if err := policy.check("crude birth rates", unmatched); err != nil {
		return nil, unmatched, err
	}

	out := make([]models.RatePoint, 0, len(birthTotals))
	for _, k := range sortedClassKeys(birthTotals) {
		pop, ok := popTotals[k]
		if !ok {
			continue
		}
		b := birthTotals[k]
		out = append(out, models.RatePoint{
			Year:           k.year,
			Nationality:    k.nat,
			Births:         b,
			MeanPopulation: pop,
			RatePer1000:    models.Ratio(b*1000, pop),
		})
	}

	smoothRates(out)
	return out, unmatched, nil
}

// smoothRates fills RateSmoothed per nationality. points must be sorted by year.
func smoothRates(points []models.RatePoint) {
	for _, nat := range models.Nationalities {
		var idx []int
		var series []models.Measure
		for i, p := range points {
			if p.Nationality == nat {
				idx = append(idx, i)
				series = append(series, p.RatePer1000)
			}
		}
		for j, v := range CenteredRollingMean(series, SmoothingWindow) {
			points[idx[j]].RateSmoothed = v
		}
	}
}

// IntensityRatios sets the foreign crude rate against the native one for
// every year carrying both. The ratio is undefined when the native rate is
// zero or undefined.
func IntensityRatios(points []models.RatePoint) []models.IntensityPoint {
	byYear := make(map[int]*models.IntensityPoint)
	var years []int
	for _, p := range points {
		ip, ok := byYear[p.Year]
		if !ok {
			ip = &models.IntensityPoint{
				Year:        p.Year,
				RateNative:  models.Undefined(),
				RateForeign: models.Undefined(),
			}
			byYear[p.Year] = ip
			years = append(years, p.Year)
		}
		switch p.Nationality {
		case models.NationalityNative:
			ip.RateNative = p.RatePer1000
		case models.NationalityForeign:
			ip.RateForeign = p.RatePer1000
		}
	}
	sort.Ints(years)

	out := make([]models.IntensityPoint, 0, len(years))
	ratios := make([]models.Measure, 0, len(years))
	for _, y := range years {
		ip := *byYear[y]
		ip.Ratio = models.Undefined()
		if ip.RateNative.Defined() && ip.RateForeign.Defined() {
			ip.Ratio = models.Ratio(float64(ip.RateForeign), float64(ip.RateNative))
		}
		out = append(out, ip)
		ratios = append(ratios, ip.Ratio)
	}

	for i, v := range CenteredRollingMean(ratios, SmoothingWindow) {
		out[i].RatioSmoothed = v
	}
	return out
}
