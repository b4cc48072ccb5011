// Package report prints indicator tables as aligned text, pivoting
// nationality into columns, with numbers formatted for a locale.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fertility-platform/internal/models"
	"fertility-platform/internal/source"
)

// Printer writes reports to an io.Writer.
type Printer struct {
	w io.Writer
	p *message.Printer
}

// New returns a Printer formatting numbers for tag.
func New(w io.Writer, tag language.Tag) *Printer {
	return &Printer{w: w, p: message.NewPrinter(tag)}
}

// ParseLanguage accepts a BCP 47 tag such as "en" or "es-ES".
func ParseLanguage(s string) (language.Tag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid report language %q: %w", s, err)
	}
	return tag, nil
}

func (r *Printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func (r *Printer) title(s string) {
	fmt.Fprintf(r.w, "\n%s\n%s\n", s, strings.Repeat("=", len(s)))
}

func (r *Printer) num(v float64, decimals int) string {
	return r.p.Sprintf("%.*f", decimals, v)
}

func (r *Printer) measure(m models.Measure, decimals int) string {
	if !m.Defined() {
		return "n/a"
	}
	return r.num(m.Float64(), decimals)
}

func row(tw io.Writer, cells ...string) {
	fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
}

// pivot collects the years of a (year, nationality) table in order.
type pivot[V any] struct {
	years []int
	cells map[int]map[models.Nationality]V
}

func newPivot[V any]() *pivot[V] {
	return &pivot[V]{cells: make(map[int]map[models.Nationality]V)}
}

func (p *pivot[V]) set(year int, nat models.Nationality, v V) {
	if _, ok := p.cells[year]; !ok {
		p.cells[year] = make(map[models.Nationality]V)
		p.years = append(p.years, year)
	}
	p.cells[year][nat] = v
}

func (p *pivot[V]) get(year int, nat models.Nationality) (V, bool) {
	v, ok := p.cells[year][nat]
	return v, ok
}

func (p *pivot[V]) sortedYears() []int {
	years := append([]int(nil), p.years...)
	sort.Ints(years)
	return years
}

// Rates prints crude birth rates with their 3-year centred means.
func (r *Printer) Rates(points []models.RatePoint) error {
	r.title("Births per 1,000 women aged 15-49")

	pv := newPivot[models.RatePoint]()
	for _, pt := range points {
		pv.set(pt.Year, pt.Nationality, pt)
	}

	tw := r.table()
	row(tw, "Year", "Native", "Foreign", "Native (3y)", "Foreign (3y)")
	for _, y := range pv.sortedYears() {
		cells := []string{fmt.Sprint(y)}
		for _, smoothed := range []bool{false, true} {
			for _, nat := range models.Nationalities {
				pt, ok := pv.get(y, nat)
				switch {
				case !ok:
					cells = append(cells, "n/a")
				case smoothed:
					cells = append(cells, r.measure(pt.RateSmoothed, 2))
				default:
					cells = append(cells, r.measure(pt.RatePer1000, 2))
				}
			}
		}
		row(tw, cells...)
	}
	return tw.Flush()
}

// Intensity prints the foreign to native rate ratio.
func (r *Printer) Intensity(points []models.IntensityPoint) error {
	r.title("Fertility intensity ratio (foreign / native)")

	tw := r.table()
	row(tw, "Year", "Native", "Foreign", "Ratio", "Ratio (3y)")
	for _, pt := range points {
		row(tw, fmt.Sprint(pt.Year),
			r.measure(pt.RateNative, 2), r.measure(pt.RateForeign, 2),
			r.measure(pt.Ratio, 3), r.measure(pt.RatioSmoothed, 3))
	}
	return tw.Flush()
}

// Summary prints crude rate, TFR and mean age side by side for both classes.
func (r *Printer) Summary(rows []models.SummaryRow) error {
	r.title("Annual fertility summary")

	pv := newPivot[models.SummaryRow]()
	for _, s := range rows {
		pv.set(s.Year, s.Nationality, s)
	}

	tw := r.table()
	row(tw, "Year", "Rate nat.", "Rate for.", "TFR nat.", "TFR for.", "MAC nat.", "MAC for.")
	for _, y := range pv.sortedYears() {
		cells := []string{fmt.Sprint(y)}
		for col := 0; col < 3; col++ {
			for _, nat := range models.Nationalities {
				s, ok := pv.get(y, nat)
				if !ok {
					cells = append(cells, "n/a")
					continue
				}
				switch col {
				case 0:
					cells = append(cells, r.measure(s.RatePer1000, 2))
				case 1:
					cells = append(cells, r.num(s.TFR, 3))
				case 2:
					cells = append(cells, r.measure(s.MeanAge, 2))
				}
			}
		}
		row(tw, cells...)
	}
	return tw.Flush()
}

// TFR prints the total fertility rate with the bands that contributed.
func (r *Printer) TFR(points []models.TFRPoint) error {
	r.title("Total fertility rate (children per woman)")

	pv := newPivot[models.TFRPoint]()
	for _, pt := range points {
		pv.set(pt.Year, pt.Nationality, pt)
	}

	tw := r.table()
	row(tw, "Year", "Native", "Foreign", "Bands nat.", "Bands for.")
	for _, y := range pv.sortedYears() {
		cells := []string{fmt.Sprint(y)}
		var bands []string
		for _, nat := range models.Nationalities {
			pt, ok := pv.get(y, nat)
			if !ok {
				cells = append(cells, "n/a")
				bands = append(bands, "0")
				continue
			}
			cells = append(cells, r.num(pt.TFR, 3))
			bands = append(bands, fmt.Sprint(pt.BandsCovered))
		}
		row(tw, append(cells, bands...)...)
	}
	return tw.Flush()
}

// ASFR prints the band by band comparison of one or more years.
func (r *Printer) ASFR(rows []models.ASFRComparison) error {
	r.title("Age-specific fertility rates per 1,000 women")

	tw := r.table()
	row(tw, "Year", "Age", "Native", "Foreign", "Foreign - native", "Foreign / native")
	for _, c := range rows {
		row(tw, fmt.Sprint(c.Year), c.AgeBand.String(),
			r.num(c.RateNative, 2), r.num(c.RateForeign, 2),
			r.num(c.AbsDiff, 2), r.measure(c.Ratio, 3))
	}
	return tw.Flush()
}

// Heatmap prints a band x year matrix.
func (r *Printer) Heatmap(h models.ASFRHeatmap) error {
	r.title(fmt.Sprintf("ASFR by age and year (%s)", h.Nationality))

	tw := r.table()
	header := []string{"Age"}
	for _, y := range h.Years {
		header = append(header, fmt.Sprint(y))
	}
	row(tw, header...)
	for i, band := range h.AgeBands {
		cells := []string{band.String()}
		for j := range h.Years {
			cells = append(cells, r.measure(h.Values[i][j], 1))
		}
		row(tw, cells...)
	}
	return tw.Flush()
}

// Kitagawa prints each decomposition with its per-band breakdown.
func (r *Printer) Kitagawa(results []models.KitagawaResult) error {
	r.title("Kitagawa decomposition of the foreign - native crude rate gap")

	for _, k := range results {
		fmt.Fprintf(r.w, "\nYear %d", k.Year)
		if k.Incomplete {
			bands := make([]string, len(k.MissingBands))
			for i, b := range k.MissingBands {
				bands[i] = b.String()
			}
			fmt.Fprintf(r.w, " (incomplete, missing %s)", strings.Join(bands, ", "))
		}
		fmt.Fprintln(r.w)

		tw := r.table()
		row(tw, "Crude native", r.measure(k.CrudeNative, 5))
		row(tw, "Crude foreign", r.measure(k.CrudeForeign, 5))
		row(tw, "Total difference", r.measure(k.TotalDiff, 5))
		row(tw, "Structure effect", r.measure(k.StructureEffect, 5))
		row(tw, "Rate effect", r.measure(k.RateEffect, 5))
		if err := tw.Flush(); err != nil {
			return err
		}

		tw = r.table()
		row(tw, "Age", "Structure", "Rate")
		for _, a := range k.PerAge {
			row(tw, a.AgeBand.String(), r.measure(a.StructureEffect, 5), r.measure(a.RateEffect, 5))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Cohorts prints the mean rate per cohort and age, one column per class.
func (r *Printer) Cohorts(rows []models.CohortAverage) error {
	r.title("Pseudo-cohort fertility (mean rate per 1,000 women)")

	type key struct {
		cohort int
		age    float64
	}
	cells := make(map[key]map[models.Nationality]models.CohortAverage)
	var keys []key
	for _, c := range rows {
		k := key{c.CohortYear, c.Age}
		if _, ok := cells[k]; !ok {
			cells[k] = make(map[models.Nationality]models.CohortAverage)
			keys = append(keys, k)
		}
		cells[k][c.Nationality] = c
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].cohort != keys[j].cohort {
			return keys[i].cohort < keys[j].cohort
		}
		return keys[i].age < keys[j].age
	})

	tw := r.table()
	row(tw, "Cohort", "Age", "Native", "Foreign")
	for _, k := range keys {
		out := []string{fmt.Sprint(k.cohort), r.num(k.age, 1)}
		for _, nat := range models.Nationalities {
			c, ok := cells[k][nat]
			if !ok {
				out = append(out, "n/a")
				continue
			}
			out = append(out, r.num(c.MeanRate, 2))
		}
		row(tw, out...)
	}
	return tw.Flush()
}

// Reconciliation prints the official series next to the computed TFR.
func (r *Printer) Reconciliation(rows []models.TFRReconciliation, factors map[models.Nationality]float64) error {
	r.title("Official TFR reconciliation")

	for _, nat := range models.Nationalities {
		if f, ok := factors[nat]; ok {
			fmt.Fprintf(r.w, "Scale factor %s: %s\n", nat, r.num(f, 4))
		}
	}

	tw := r.table()
	row(tw, "Year", "Class", "Official", "Computed", "Rescaled")
	for _, c := range rows {
		row(tw, fmt.Sprint(c.Year), c.Nationality.String(),
			r.num(c.Official, 3), r.num(c.Computed, 3), r.measure(c.Rescaled, 3))
	}
	return tw.Flush()
}

// Validation prints what each table read loaded and skipped.
func (r *Printer) Validation(reports []source.TableReport) error {
	r.title("Input tables")

	tw := r.table()
	row(tw, "Table", "Rows", "Loaded", "Skipped", "File")
	for _, t := range reports {
		row(tw, string(t.Table), r.num(float64(t.Rows), 0), r.num(float64(t.Loaded), 0),
			r.num(float64(t.Skipped), 0), t.File)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, t := range reports {
		for _, e := range t.Errors {
			fmt.Fprintf(r.w, "  [%s] %s\n", t.Table, e)
		}
	}
	return nil
}

// Notes prints the dropped join keys and warnings of a result, if any.
func (r *Printer) Notes(dropped, warnings []string) {
	if len(dropped) > 0 {
		fmt.Fprintf(r.w, "\nDROPPED KEYS (%d):\n", len(dropped))
		for _, k := range dropped {
			fmt.Fprintf(r.w, "  * %s\n", k)
		}
	}
	if len(warnings) > 0 {
		fmt.Fprintf(r.w, "\nWARNINGS (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(r.w, "  * %s\n", w)
		}
	}
}
