package analysis

import (
	"sort"
	"strconv"
	"strings"

	"fertility-platform/internal/models"
)

type snapshotKey struct {
	period string
	ageKey
}

// AggregatePopulation turns raw population counts into an annual mean
// population per (year, age band, nationality).
//
// Rows outside the seven fertile bands are dropped. Rows sharing a snapshot
// (same period label, band and class) are summed, which merges the many
// foreign nationalities of the source into one count. The snapshots of a
// year are then averaged with equal weights regardless of their spacing.
func AggregatePopulation(rows []models.PopulationCount) []models.PopulationMean {
	snapshots := make(map[snapshotKey]float64)
	for _, r := range rows {
		band, ok := models.ParseAgeBand(r.AgeBandRaw)
		if !ok {
			continue
		}
		k := snapshotKey{
			period: periodKey(r.Period, r.Year),
			ageKey: ageKey{year: r.Year, band: band, nat: classOf(r.NationalityLabel, r.Nationality)},
		}
		snapshots[k] += r.Population
	}

	type acc struct {
		sum float64
		n   int
	}
	annual := make(map[ageKey]*acc)
	for k, total := range snapshots {
		a, ok := annual[k.ageKey]
		if !ok {
			a = &acc{}
			annual[k.ageKey] = a
		}
		a.sum += total
		a.n++
	}

	out := make([]models.PopulationMean, 0, len(annual))
	for _, k := range sortedAgeKeys(annual) {
		a := annual[k]
		out = append(out, models.PopulationMean{
			Year:           k.year,
			AgeBand:        k.band,
			Nationality:    k.nat,
			MeanPopulation: a.sum / float64(a.n),
			Snapshots:      a.n,
		})
	}
	return out
}

// UnevenSnapshots returns the years whose keys were averaged over differing
// numbers of snapshots, which makes their means not directly comparable.
func UnevenSnapshots(means []models.PopulationMean) []int {
	counts := make(map[int]map[int]bool)
	for _, m := range means {
		if counts[m.Year] == nil {
			counts[m.Year] = make(map[int]bool)
		}
		counts[m.Year][m.Snapshots] = true
	}

	var years []int
	for year, c := range counts {
		if len(c) > 1 {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years
}

func periodKey(period string, year int) string {
	p := strings.ToLower(strings.Join(strings.Fields(period), " "))
	if p == "" {
		return strconv.Itoa(year)
	}
	return p
}
