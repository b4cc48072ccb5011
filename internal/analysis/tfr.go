package analysis

import (
	"fertility-platform/internal/models"
)

// TotalFertility sums rate/1000 * 5 over the age bands of every
// (year, nationality). The result assumes the seven bands are all present;
// BandsCovered reports how many were, so callers can spot undercounts.
func TotalFertility(rates []models.FertilityRate) []models.TFRPoint {
	type acc struct {
		tfr   float64
		bands int
	}
	totals := make(map[classKey]*acc)
	collapsed := collapseRates(rates)
	for _, k := range sortedAgeKeys(collapsed) {
		rate := collapsed[k]
		ck := classKey{year: k.year, nat: k.nat}
		a, ok := totals[ck]
		if !ok {
			a = &acc{}
			totals[ck] = a
		}
		a.tfr += rate / 1000 * models.AgeBandWidth
		a.bands++
	}

	out := make([]models.TFRPoint, 0, len(totals))
	for _, k := range sortedClassKeys(totals) {
		out = append(out, models.TFRPoint{
			Year:         k.year,
			Nationality:  k.nat,
			TFR:          totals[k].tfr,
			BandsCovered: totals[k].bands,
		})
	}
	return out
}

// NormalizeOfficialTFR converts an official series published per 1,000
// women into children per woman.
func NormalizeOfficialTFR(official []models.OfficialTFR) []models.OfficialTFR {
	out := make([]models.OfficialTFR, len(official))
	for i, o := range official {
		o.TFR = o.TFR / 1000
		out[i] = o
	}
	return out
}

// ReconcileOfficialTFR compares an official TFR series with the computed one.
// For each nationality the empirical scale factor is the mean of
// computed/official over the years both carry; the official series is then
// rescaled by it. Official rows with a zero value are kept but do not count
// towards the factor. Several official rows mapping to one (year, class) are
// averaged.
func ReconcileOfficialTFR(official []models.OfficialTFR, computed []models.TFRPoint, policy JoinPolicy) ([]models.TFRReconciliation, map[models.Nationality]float64, []string, error) {
	type acc struct {
		sum float64
		n   int
	}
	grouped := make(map[classKey]*acc)
	for _, o := range official {
		k := classKey{year: o.Year, nat: classOf(o.NationalityLabel, o.Nationality)}
		a := grouped[k]
		if a == nil {
			a = &acc{}
			grouped[k] = a
		}
		a.sum += o.TFR
		a.n++
	}
	off := make(map[classKey]float64, len(grouped))
	for k, a := range grouped {
		off[k] = a.sum / float64(a.n)
	}
	comp := make(map[classKey]float64)
	for _, c := range computed {
		comp[classKey{year: c.Year, nat: c.Nationality}] = c.TFR
	}

	unmatched := unmatchedKeys(off, comp)
	if err := policy.check("official tfr reconciliation", unmatched); err != nil {
		return nil, nil, unmatched, err
	}

	ratios := make(map[models.Nationality]*acc)
	keys := sortedClassKeys(off)
	for _, k := range keys {
		c, ok := comp[k]
		if !ok || off[k] == 0 {
			continue
		}
		a, ok := ratios[k.nat]
		if !ok {
			a = &acc{}
			ratios[k.nat] = a
		}
		a.sum += c / off[k]
		a.n++
	}

	factors := make(map[models.Nationality]float64, len(ratios))
	for nat, a := range ratios {
		factors[nat] = a.sum / float64(a.n)
	}

	out := make([]models.TFRReconciliation, 0, len(keys))
	for _, k := range keys {
		c, ok := comp[k]
		if !ok {
			continue
		}
		rescaled := models.Undefined()
		if f, ok := factors[k.nat]; ok {
			rescaled = models.Measure(off[k] * f)
		}
		out = append(out, models.TFRReconciliation{
			Year:        k.year,
			Nationality: k.nat,
			Official:    off[k],
			Computed:    c,
			Rescaled:    rescaled,
		})
	}
	return out, factors, unmatched, nil
}
