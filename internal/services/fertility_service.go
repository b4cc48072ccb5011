package services

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"fertility-platform/internal/analysis"
	"fertility-platform/internal/config"
	"fertility-platform/internal/models"
	"fertility-platform/internal/repository"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

// DataSource supplies the raw input tables restricted to a year range.
// source.Directory and repository.DemographyRepository both implement it.
type DataSource interface {
	Births(ctx context.Context, years models.YearRange) ([]models.Birth, error)
	Population(ctx context.Context, years models.YearRange) ([]models.PopulationCount, error)
	FertilityRates(ctx context.Context, years models.YearRange) ([]models.FertilityRate, error)
	OfficialTFR(ctx context.Context, years models.YearRange) ([]models.OfficialTFR, error)
}

// Options are the analysis parameters fixed at construction.
type Options struct {
	Policy        analysis.JoinPolicy
	NativeRoot    string
	Years         models.YearRange
	KitagawaYears []int
	SummaryYears  []int
	Cohorts       analysis.CohortBounds
}

// OptionsFromConfig maps the analysis section of the configuration.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		Policy:        cfg.Policy(),
		NativeRoot:    cfg.NativeRoot,
		Years:         models.YearRange{From: cfg.YearFrom, To: cfg.YearTo},
		KitagawaYears: cfg.KitagawaYears,
		SummaryYears:  cfg.SummaryYears,
		Cohorts:       cfg.CohortBounds(),
	}
}

// Query narrows one request. Years is intersected with the configured range
// and a nil Policy keeps the configured one.
type Query struct {
	Years  models.YearRange
	Policy *analysis.JoinPolicy
}

// Result wraps an indicator table with the parameters it was computed with.
type Result[T any] struct {
	Data        T                `json:"data"`
	Years       models.YearRange `json:"years"`
	JoinPolicy  string           `json:"join_policy"`
	DroppedKeys []string         `json:"dropped_keys,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// Reconciliation is the official TFR series set against the computed one.
type Reconciliation struct {
	Rows         []models.TFRReconciliation     `json:"rows"`
	ScaleFactors map[models.Nationality]float64 `json:"scale_factors"`
}

// FertilityService computes the fertility indicators from a DataSource
type FertilityService struct {
	source     DataSource
	opts       Options
	normalizer analysis.Normalizer
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewFertilityService creates a new fertility service
func NewFertilityService(source DataSource, opts Options, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FertilityService {
	return &FertilityService{
		source:     source,
		opts:       opts,
		normalizer: analysis.NewNormalizer(opts.NativeRoot),
		logger:     logger,
		metrics:    metricsCollector,
	}
}

type tableSet uint8

const (
	needBirths tableSet = 1 << iota
	needPopulation
	needRates
	needOfficial
)

// dataset holds the normalised tables of one request.
type dataset struct {
	years    models.YearRange
	policy   analysis.JoinPolicy
	births   []models.Birth
	means    []models.PopulationMean
	rates    []models.FertilityRate
	official []models.OfficialTFR
}

// load fetches the needed tables concurrently and normalises them. An empty
// required table is a *repository.NotFoundError; the official TFR table is
// optional.
func (s *FertilityService) load(ctx context.Context, q Query, need tableSet) (*dataset, error) {
	ds := &dataset{
		years:  s.opts.Years.Intersect(q.Years),
		policy: s.opts.Policy,
	}
	if q.Policy != nil {
		ds.policy = *q.Policy
	}
	if ds.years.From != 0 && ds.years.To != 0 && ds.years.From > ds.years.To {
		return nil, &models.ValidationError{
			Field:   "years",
			Value:   ds.years.String(),
			Message: fmt.Sprintf("year range %s is outside the configured range %s", q.Years, s.opts.Years),
		}
	}

	var (
		births   []models.Birth
		counts   []models.PopulationCount
		rates    []models.FertilityRate
		official []models.OfficialTFR
	)

	g, gctx := errgroup.WithContext(ctx)
	if need&needBirths != 0 {
		g.Go(func() error {
			rows, err := s.source.Births(gctx, ds.years)
			if err != nil {
				return fmt.Errorf("failed to load births: %w", err)
			}
			births = rows
			return nil
		})
	}
	if need&needPopulation != 0 {
		g.Go(func() error {
			rows, err := s.source.Population(gctx, ds.years)
			if err != nil {
				return fmt.Errorf("failed to load population: %w", err)
			}
			counts = rows
			return nil
		})
	}
	if need&needRates != 0 {
		g.Go(func() error {
			rows, err := s.source.FertilityRates(gctx, ds.years)
			if err != nil {
				return fmt.Errorf("failed to load fertility rates: %w", err)
			}
			rates = rows
			return nil
		})
	}
	if need&needOfficial != 0 {
		g.Go(func() error {
			rows, err := s.source.OfficialTFR(gctx, ds.years)
			if err != nil {
				return fmt.Errorf("failed to load official tfr: %w", err)
			}
			official = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if need&needBirths != 0 {
		if len(births) == 0 {
			return nil, &repository.NotFoundError{Resource: "births", ID: ds.years.String()}
		}
		ds.births = analysis.NormalizeRows(s.normalizer, births)
	}

	if need&needPopulation != 0 {
		if len(counts) == 0 {
			return nil, &repository.NotFoundError{Resource: "population", ID: ds.years.String()}
		}
		ds.means = analysis.AggregatePopulation(analysis.NormalizeRows(s.normalizer, counts))
		if uneven := analysis.UnevenSnapshots(ds.means); len(uneven) > 0 {
			s.logger.Warn(ctx, "[POPULATION_UNEVEN_SNAPSHOTS] Annual means averaged over differing snapshot counts", logging.Fields{
				"years": uneven,
			})
		}
	}

	if need&needRates != 0 {
		if len(rates) == 0 {
			return nil, &repository.NotFoundError{Resource: "fertility_rates", ID: ds.years.String()}
		}
		ds.rates = analysis.NormalizeRows(s.normalizer, rates)
	}

	if need&needOfficial != 0 {
		ds.official = analysis.NormalizeOfficialTFR(analysis.NormalizeRows(s.normalizer, official))
	}

	s.logger.Debug(ctx, "[FERTILITY_LOAD] Tables loaded", logging.Fields{
		"years":       ds.years.String(),
		"join_policy": ds.policy.String(),
		"births":      len(ds.births),
		"means":       len(ds.means),
		"rates":       len(ds.rates),
		"official":    len(ds.official),
	})

	return ds, nil
}

// dropped records the keys a merge left out under the drop policy.
func (s *FertilityService) dropped(ctx context.Context, operation string, keys []string) {
	if len(keys) == 0 {
		return
	}
	s.metrics.RecordUnmatchedKeys(operation, len(keys))
	s.logger.Warn(ctx, "[FERTILITY_UNMATCHED_KEYS] Join keys without a partner", logging.Fields{
		"operation": operation,
		"count":     len(keys),
		"keys":      keys,
	})
}

func result[T any](ds *dataset, data T, dropped []string) *Result[T] {
	return &Result[T]{
		Data:        data,
		Years:       ds.years,
		JoinPolicy:  ds.policy.String(),
		DroppedKeys: dropped,
	}
}

// crudeRates computes the crude birth rates of a loaded dataset.
func (s *FertilityService) crudeRates(ctx context.Context, ds *dataset) ([]models.RatePoint, []string, error) {
	timer := s.metrics.TimeIndicator("crude_birth_rate")
	defer timer.ObserveDuration()

	points, unmatched, err := analysis.CrudeBirthRates(ds.births, ds.means, ds.policy)
	if err != nil {
		return nil, unmatched, fmt.Errorf("failed to compute crude birth rates: %w", err)
	}
	s.dropped(ctx, "crude_birth_rate", unmatched)
	return points, unmatched, nil
}

// Rates returns births per 1,000 women aged 15-49 by year and nationality.
func (s *FertilityService) Rates(ctx context.Context, q Query) (*Result[[]models.RatePoint], error) {
	ds, err := s.load(ctx, q, needBirths|needPopulation)
	if err != nil {
		return nil, err
	}
	points, unmatched, err := s.crudeRates(ctx, ds)
	if err != nil {
		return nil, err
	}
	return result(ds, points, unmatched), nil
}

// Intensity returns the foreign to native crude rate ratio by year.
func (s *FertilityService) Intensity(ctx context.Context, q Query) (*Result[[]models.IntensityPoint], error) {
	ds, err := s.load(ctx, q, needBirths|needPopulation)
	if err != nil {
		return nil, err
	}
	points, unmatched, err := s.crudeRates(ctx, ds)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.TimeIndicator("intensity_ratio")
	ratios := analysis.IntensityRatios(points)
	timer.ObserveDuration()

	return result(ds, ratios, unmatched), nil
}

// ASFR compares native and foreign age-specific rates band by band.
func (s *FertilityService) ASFR(ctx context.Context, q Query) (*Result[[]models.ASFRComparison], error) {
	ds, err := s.load(ctx, q, needRates)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.TimeIndicator("asfr_comparison")
	rows, unmatched, err := analysis.CompareASFR(ds.rates, ds.policy)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("failed to compare asfr: %w", err)
	}
	s.dropped(ctx, "asfr_comparison", unmatched)

	return result(ds, rows, unmatched), nil
}

// Heatmaps returns the band x year rate matrix of each requested
// nationality, or of both when none is given.
func (s *FertilityService) Heatmaps(ctx context.Context, q Query, nats ...models.Nationality) (*Result[[]models.ASFRHeatmap], error) {
	if len(nats) == 0 {
		nats = models.Nationalities
	}
	for _, n := range nats {
		if !n.Valid() {
			return nil, &models.ValidationError{
				Field:   "nationality",
				Value:   string(n),
				Message: fmt.Sprintf("unknown nationality class %q, expected native or foreign", string(n)),
			}
		}
	}

	ds, err := s.load(ctx, q, needRates)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.TimeIndicator("asfr_heatmap")
	maps := make([]models.ASFRHeatmap, 0, len(nats))
	for _, n := range nats {
		maps = append(maps, analysis.ASFRHeatmapFor(ds.rates, n))
	}
	timer.ObserveDuration()

	return result(ds, maps, nil), nil
}

// TFR returns the total fertility rate by year and nationality. Points
// built from fewer than seven bands are reported as warnings.
func (s *FertilityService) TFR(ctx context.Context, q Query) (*Result[[]models.TFRPoint], error) {
	ds, err := s.load(ctx, q, needRates)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.TimeIndicator("tfr")
	points := analysis.TotalFertility(ds.rates)
	timer.ObserveDuration()

	res := result(ds, points, nil)
	res.Warnings = incompleteTFR(points)
	if len(res.Warnings) > 0 {
		s.logger.Warn(ctx, "[FERTILITY_TFR_INCOMPLETE] TFR computed from partial age schedules", logging.Fields{
			"count": len(res.Warnings),
		})
	}
	return res, nil
}

func incompleteTFR(points []models.TFRPoint) []string {
	var warnings []string
	for _, p := range points {
		if !p.Complete() {
			warnings = append(warnings, fmt.Sprintf("tfr %d/%s covers %d of %d age bands",
				p.Year, p.Nationality, p.BandsCovered, len(models.FertileAgeBands)))
		}
	}
	return warnings
}

// Reconciliation sets the official TFR series, converted to children per
// woman, against the computed TFR and rescales it by the empirical factor.
func (s *FertilityService) Reconciliation(ctx context.Context, q Query) (*Result[Reconciliation], error) {
	ds, err := s.load(ctx, q, needRates|needOfficial)
	if err != nil {
		return nil, err
	}
	if len(ds.official) == 0 {
		return nil, &repository.NotFoundError{Resource: "official_tfr", ID: ds.years.String()}
	}

	timer := s.metrics.TimeIndicator("tfr_reconciliation")
	computed := analysis.TotalFertility(ds.rates)
	rows, factors, unmatched, err := analysis.ReconcileOfficialTFR(ds.official, computed, ds.policy)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("failed to reconcile official tfr: %w", err)
	}
	s.dropped(ctx, "tfr_reconciliation", unmatched)

	return result(ds, Reconciliation{Rows: rows, ScaleFactors: factors}, unmatched), nil
}

// MAC returns the mean age at childbearing by year and nationality.
func (s *FertilityService) MAC(ctx context.Context, q Query) (*Result[[]models.MACPoint], error) {
	ds, err := s.load(ctx, q, needRates)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.TimeIndicator("mean_age_at_childbearing")
	points := analysis.MeanAgeAtChildbearing(ds.rates)
	timer.ObserveDuration()

	return result(ds, points, nil), nil
}

// Observations returns the merged population and rate table with expected
// births per key.
func (s *FertilityService) Observations(ctx context.Context, q Query) (*Result[[]models.AgeSpecificObservation], error) {
	ds, err := s.load(ctx, q, needPopulation|needRates)
	if err != nil {
		return nil, err
	}
	obs, unmatched, err := s.merge(ctx, ds)
	if err != nil {
		return nil, err
	}
	return result(ds, obs, unmatched), nil
}

func (s *FertilityService) merge(ctx context.Context, ds *dataset) ([]models.AgeSpecificObservation, []string, error) {
	timer := s.metrics.TimeIndicator("population_rate_merge")
	defer timer.ObserveDuration()

	obs, unmatched, err := analysis.MergePopulationAndRates(ds.means, ds.rates, ds.policy)
	if err != nil {
		return nil, unmatched, fmt.Errorf("failed to merge population and rates: %w", err)
	}
	s.dropped(ctx, "population_rate_merge", unmatched)
	return obs, unmatched, nil
}

// Kitagawa decomposes the foreign minus native crude-rate gap of each year.
// With no years given the configured years are used, and with none
// configured every year of the merged table. Years that cannot be
// decomposed are reported as warnings; when none can, the error of the
// earliest is returned.
func (s *FertilityService) Kitagawa(ctx context.Context, q Query, years []int) (*Result[[]models.KitagawaResult], error) {
	ds, err := s.load(ctx, q, needPopulation|needRates)
	if err != nil {
		return nil, err
	}
	obs, unmatched, err := s.merge(ctx, ds)
	if err != nil {
		return nil, err
	}

	if len(years) == 0 {
		years = s.opts.KitagawaYears
	}
	if len(years) == 0 {
		years = observedYears(obs)
	}

	timer := s.metrics.TimeIndicator("kitagawa")
	results, failed := analysis.KitagawaYears(obs, years, ds.policy)
	timer.ObserveDuration()

	for _, r := range results {
		if r.Incomplete {
			s.metrics.IncompleteDecompositions.Inc()
			s.logger.Warn(ctx, "[FERTILITY_KITAGAWA_INCOMPLETE] Decomposition over common bands only", logging.Fields{
				"year":          r.Year,
				"missing_bands": r.MissingBands,
			})
		}
	}

	failedYears := make([]int, 0, len(failed))
	for y := range failed {
		failedYears = append(failedYears, y)
	}
	sort.Ints(failedYears)

	if len(results) == 0 && len(failedYears) > 0 {
		return nil, fmt.Errorf("failed to decompose year %d: %w", failedYears[0], failed[failedYears[0]])
	}

	res := result(ds, results, unmatched)
	for _, y := range failedYears {
		res.Warnings = append(res.Warnings, failed[y].Error())
	}
	if len(failedYears) > 0 {
		s.logger.Warn(ctx, "[FERTILITY_KITAGAWA_SKIPPED] Years skipped", logging.Fields{
			"years": failedYears,
		})
	}
	return res, nil
}

func observedYears(obs []models.AgeSpecificObservation) []int {
	seen := make(map[int]bool)
	var years []int
	for _, o := range obs {
		if !seen[o.Year] {
			seen[o.Year] = true
			years = append(years, o.Year)
		}
	}
	sort.Ints(years)
	return years
}

// Cohorts returns the mean rate per (cohort, age, nationality). A nil bounds
// uses the configured cohort range.
func (s *FertilityService) Cohorts(ctx context.Context, q Query, bounds *analysis.CohortBounds) (*Result[[]models.CohortAverage], error) {
	ds, err := s.load(ctx, q, needRates)
	if err != nil {
		return nil, err
	}
	b := s.opts.Cohorts
	if bounds != nil {
		b = *bounds
	}
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		return nil, &models.ValidationError{
			Field:   "cohort",
			Value:   fmt.Sprintf("%d..%d", *b.Min, *b.Max),
			Message: "cohort lower bound is above the upper bound",
		}
	}

	timer := s.metrics.TimeIndicator("pseudo_cohorts")
	averages := analysis.CompareCohorts(analysis.BuildPseudoCohorts(ds.rates), b)
	timer.ObserveDuration()

	return result(ds, averages, nil), nil
}

// Summary lines up crude rate, TFR and mean age by year and nationality.
// When selected is non-empty only those years are kept.
func (s *FertilityService) Summary(ctx context.Context, q Query, selected []int) (*Result[[]models.SummaryRow], error) {
	ds, err := s.load(ctx, q, needBirths|needPopulation|needRates)
	if err != nil {
		return nil, err
	}
	points, droppedRates, err := s.crudeRates(ctx, ds)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.TimeIndicator("annual_summary")
	tfr := analysis.TotalFertility(ds.rates)
	mac := analysis.MeanAgeAtChildbearing(ds.rates)
	rows, unmatched, err := analysis.BuildSummary(points, tfr, mac, ds.policy)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("failed to build summary: %w", err)
	}
	s.dropped(ctx, "annual_summary", unmatched)

	if len(selected) > 0 {
		rows = analysis.SelectYears(rows, selected)
	}

	res := result(ds, rows, append(droppedRates, unmatched...))
	res.Warnings = incompleteTFR(tfr)
	return res, nil
}

// SelectedYears is Summary restricted to the configured summary years.
func (s *FertilityService) SelectedYears(ctx context.Context, q Query) (*Result[[]models.SummaryRow], error) {
	return s.Summary(ctx, q, s.opts.SummaryYears)
}
