package analysis

import (
	"math"
	"sort"

	"fertility-platform/internal/models"
)

// BuildPseudoCohorts assigns each age-specific rate to the approximate birth
// cohort year - central age, rounded half to even. Birth month is ignored,
// so a cohort mixes women born in two adjacent calendar years.
func BuildPseudoCohorts(rates []models.FertilityRate) []models.Cohort {
	collapsed := collapseRates(rates)
	out := make([]models.Cohort, 0, len(collapsed))
	for _, k := range sortedAgeKeys(collapsed) {
		age := k.band.CentralAge()
		out = append(out, models.Cohort{
			CohortYear:  int(math.RoundToEven(float64(k.year) - age)),
			Age:         age,
			Year:        k.year,
			Nationality: k.nat,
			Rate:        collapsed[k],
		})
	}
	return out
}

// CohortBounds restricts cohorts to [Min, Max]. A nil bound is open.
type CohortBounds struct {
	Min *int
	Max *int
}

func (b CohortBounds) contains(cohort int) bool {
	if b.Min != nil && cohort < *b.Min {
		return false
	}
	if b.Max != nil && cohort > *b.Max {
		return false
	}
	return true
}

type cohortKey struct {
	cohort int
	age    float64
	nat    models.Nationality
}

// CompareCohorts averages the rates of the cohorts inside bounds per
// (cohort, age, nationality).
func CompareCohorts(cohorts []models.Cohort, bounds CohortBounds) []models.CohortAverage {
	type acc struct {
		sum float64
		n   int
	}
	groups := make(map[cohortKey]*acc)
	for _, c := range cohorts {
		if !bounds.contains(c.CohortYear) {
			continue
		}
		k := cohortKey{cohort: c.CohortYear, age: c.Age, nat: c.Nationality}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.sum += c.Rate
		a.n++
	}

	keys := make([]cohortKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.cohort != b.cohort {
			return a.cohort < b.cohort
		}
		if a.age != b.age {
			return a.age < b.age
		}
		return nationalityRank(a.nat) < nationalityRank(b.nat)
	})

	out := make([]models.CohortAverage, 0, len(keys))
	for _, k := range keys {
		a := groups[k]
		out = append(out, models.CohortAverage{
			CohortYear:   k.cohort,
			Age:          k.age,
			Nationality:  k.nat,
			MeanRate:     a.sum / float64(a.n),
			Observations: a.n,
		})
	}
	return out
}
