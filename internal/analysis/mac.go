package analysis

import (
	"fertility-platform/internal/models"
)

// MeanAgeAtChildbearing computes the rate-weighted mean of the band central
// ages for every (year, nationality). A group whose rates are all zero has
// an undefined mean age.
func MeanAgeAtChildbearing(rates []models.FertilityRate) []models.MACPoint {
	type series struct {
		ages  []float64
		rates []float64
	}
	groups := make(map[classKey]*series)
	collapsed := collapseRates(rates)
	for _, k := range sortedAgeKeys(collapsed) {
		rate := collapsed[k]
		ck := classKey{year: k.year, nat: k.nat}
		s, ok := groups[ck]
		if !ok {
			s = &series{}
			groups[ck] = s
		}
		s.ages = append(s.ages, k.band.CentralAge())
		s.rates = append(s.rates, rate)
	}

	out := make([]models.MACPoint, 0, len(groups))
	for _, k := range sortedClassKeys(groups) {
		s := groups[k]
		out = append(out, models.MACPoint{
			Year:        k.year,
			Nationality: k.nat,
			MeanAge:     WeightedMean(s.ages, s.rates),
		})
	}
	return out
}
