package analysis

import (
	"fmt"
	"sort"

	"fertility-platform/internal/models"
)

// MergePopulationAndRates joins the mean population table with the rate
// table on (year, band, nationality) and derives the expected births of each
// key as population * rate / 1000.
func MergePopulationAndRates(means []models.PopulationMean, rates []models.FertilityRate, policy JoinPolicy) ([]models.AgeSpecificObservation, []string, error) {
	pop := make(map[ageKey]float64, len(means))
	for _, m := range means {
		pop[ageKey{year: m.Year, band: m.AgeBand, nat: m.Nationality}] += m.MeanPopulation
	}
	collapsed := collapseRates(rates)

	unmatched := unmatchedKeys(pop, collapsed)
	if err := policy.check("population and rate merge", unmatched); err != nil {
		return nil, unmatched, err
	}

	out := make([]models.AgeSpecificObservation, 0, len(pop))
	for _, k := range sortedAgeKeys(pop) {
		rate, ok := collapsed[k]
		if !ok {
			continue
		}
		out = append(out, models.AgeSpecificObservation{
			Year:           k.year,
			AgeBand:        k.band,
			Nationality:    k.nat,
			Population:     pop[k],
			Rate:           rate,
			ExpectedBirths: pop[k] * rate / 1000,
		})
	}
	return out, unmatched, nil
}

type groupSchedule struct {
	pop  map[models.AgeBand]float64
	rate map[models.AgeBand]float64
}

// Kitagawa decomposes the foreign minus native crude-rate gap of one year
// into a structure effect and a rate effect. With per-woman rates f and
// within-group population shares w, for every band
//
//	structure_i = (w_foreign_i - w_native_i) * (f_native_i + f_foreign_i) / 2
//	rate_i      = (f_foreign_i - f_native_i) * (w_native_i + w_foreign_i) / 2
//
// and the two sums add up to sum(w_foreign*f_foreign) - sum(w_native*f_native).
//
// A missing year, a duplicated band, a class with zero population or no band
// common to both classes yields an *InsufficientDataError. Bands present for
// only one class fail under FailOnUnmatched; under DropUnmatched they are
// left out of both groups and the result is flagged Incomplete.
func Kitagawa(obs []models.AgeSpecificObservation, year int, policy JoinPolicy) (*models.KitagawaResult, error) {
	groups := map[models.Nationality]*groupSchedule{
		models.NationalityNative:  {pop: map[models.AgeBand]float64{}, rate: map[models.AgeBand]float64{}},
		models.NationalityForeign: {pop: map[models.AgeBand]float64{}, rate: map[models.AgeBand]float64{}},
	}

	found := false
	for _, o := range obs {
		if o.Year != year {
			continue
		}
		found = true
		g, ok := groups[o.Nationality]
		if !ok {
			return nil, &InsufficientDataError{Year: year, Reason: fmt.Sprintf("unknown nationality class %q", o.Nationality)}
		}
		if _, dup := g.pop[o.AgeBand]; dup {
			return nil, &InsufficientDataError{Year: year, Reason: fmt.Sprintf("age band %s appears more than once for %s", o.AgeBand, o.Nationality)}
		}
		g.pop[o.AgeBand] = o.Population
		g.rate[o.AgeBand] = o.Rate
	}
	if !found {
		return nil, &InsufficientDataError{Year: year, Reason: "year not present in the merged table"}
	}

	native := groups[models.NationalityNative]
	foreign := groups[models.NationalityForeign]

	var common, missing []models.AgeBand
	for _, band := range models.FertileAgeBands {
		_, inNative := native.pop[band]
		_, inForeign := foreign.pop[band]
		switch {
		case inNative && inForeign:
			common = append(common, band)
		case inNative || inForeign:
			missing = append(missing, band)
		}
	}

	if len(missing) > 0 && policy == FailOnUnmatched {
		return nil, &InsufficientDataError{
			Year:         year,
			Reason:       "age bands present for only one nationality class",
			MissingBands: missing,
		}
	}
	if len(common) == 0 {
		return nil, &InsufficientDataError{Year: year, Reason: "no age band present for both nationality classes", MissingBands: missing}
	}

	var totalNative, totalForeign float64
	for _, band := range common {
		totalNative += native.pop[band]
		totalForeign += foreign.pop[band]
	}
	if totalNative == 0 || totalForeign == 0 {
		return nil, &InsufficientDataError{Year: year, Reason: "zero population in a nationality class", MissingBands: missing}
	}

	result := &models.KitagawaResult{
		Year:         year,
		PerAge:       make([]models.KitagawaAgeEffect, 0, len(common)),
		Incomplete:   len(missing) > 0,
		MissingBands: missing,
	}

	var structure, rate, crudeNative, crudeForeign float64
	for _, band := range common {
		fN := native.rate[band] / 1000
		fF := foreign.rate[band] / 1000
		wN := native.pop[band] / totalNative
		wF := foreign.pop[band] / totalForeign

		fBar := (fN + fF) / 2
		wBar := (wN + wF) / 2
		s := (wF - wN) * fBar
		r := (fF - fN) * wBar

		structure += s
		rate += r
		crudeNative += wN * fN
		crudeForeign += wF * fF

		result.PerAge = append(result.PerAge, models.KitagawaAgeEffect{
			AgeBand:         band,
			StructureEffect: models.Measure(s),
			RateEffect:      models.Measure(r),
		})
	}

	result.StructureEffect = models.Measure(structure)
	result.RateEffect = models.Measure(rate)
	result.CrudeNative = models.Measure(crudeNative)
	result.CrudeForeign = models.Measure(crudeForeign)
	result.TotalDiff = models.Measure(crudeForeign - crudeNative)
	return result, nil
}

// KitagawaYears runs Kitagawa for each year, skipping years that cannot be
// decomposed. The errors of skipped years are returned keyed by year.
func KitagawaYears(obs []models.AgeSpecificObservation, years []int, policy JoinPolicy) ([]models.KitagawaResult, map[int]error) {
	sorted := append([]int(nil), years...)
	sort.Ints(sorted)

	var out []models.KitagawaResult
	failed := make(map[int]error)
	for _, y := range sorted {
		res, err := Kitagawa(obs, y, policy)
		if err != nil {
			failed[y] = err
			continue
		}
		out = append(out, *res)
	}
	return out, failed
}
