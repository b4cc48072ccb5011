package models

// PopulationMean is the annual mean female population for one
// (year, age band, nationality) key. Snapshots is the number of intra-year
// counts that were averaged.
type PopulationMean struct {
	Year           int         `json:"year"`
	AgeBand        AgeBand     `json:"age_band"`
	Nationality    Nationality `json:"nationality"`
	MeanPopulation float64     `json:"mean_population"`
	Snapshots      int         `json:"snapshots"`
}

// RatePoint is the crude birth rate per 1,000 women aged 15-49.
type RatePoint struct {
	Year           int         `json:"year"`
	Nationality    Nationality `json:"nationality"`
	Births         float64     `json:"births"`
	MeanPopulation float64     `json:"mean_population"`
	RatePer1000    Measure     `json:"rate_per_1000"`
	RateSmoothed   Measure     `json:"rate_smoothed"`
}

// IntensityPoint compares the crude rates of both classes in one year.
type IntensityPoint struct {
	Year          int     `json:"year"`
	RateNative    Measure `json:"rate_native"`
	RateForeign   Measure `json:"rate_foreign"`
	Ratio         Measure `json:"ratio"`
	RatioSmoothed Measure `json:"ratio_smoothed"`
}

// TFRPoint is the total fertility rate in children per woman. BandsCovered
// counts the distinct age bands that contributed; anything below seven
// undercounts.
type TFRPoint struct {
	Year         int         `json:"year"`
	Nationality  Nationality `json:"nationality"`
	TFR          float64     `json:"tfr"`
	BandsCovered int         `json:"bands_covered"`
}

// Complete reports whether all seven bands contributed.
func (p TFRPoint) Complete() bool {
	return p.BandsCovered == len(FertileAgeBands)
}

// MACPoint is the mean age at childbearing.
type MACPoint struct {
	Year        int         `json:"year"`
	Nationality Nationality `json:"nationality"`
	MeanAge     Measure     `json:"mean_age"`
}

// ASFRComparison pairs the native and foreign rates of one (year, band).
type ASFRComparison struct {
	Year        int     `json:"year"`
	AgeBand     AgeBand `json:"age_band"`
	RateNative  float64 `json:"rate_native"`
	RateForeign float64 `json:"rate_foreign"`
	AbsDiff     float64 `json:"abs_diff"`
	Ratio       Measure `json:"ratio"`
}

// AgeSpecificObservation joins mean population and ASFR for one
// (year, band, nationality). ExpectedBirths = population * rate / 1000.
type AgeSpecificObservation struct {
	Year           int         `json:"year"`
	AgeBand        AgeBand     `json:"age_band"`
	Nationality    Nationality `json:"nationality"`
	Population     float64     `json:"population"`
	Rate           float64     `json:"rate"`
	ExpectedBirths float64     `json:"expected_births"`
}

// KitagawaAgeEffect is the contribution of one age band to each effect.
type KitagawaAgeEffect struct {
	AgeBand         AgeBand `json:"age_band"`
	StructureEffect Measure `json:"structure_effect"`
	RateEffect      Measure `json:"rate_effect"`
}

// KitagawaResult decomposes the foreign minus native crude-rate gap of one
// year. Effects are in births per woman. Incomplete is set when some bands
// were only present for one class and were left out.
type KitagawaResult struct {
	Year            int                 `json:"year"`
	TotalDiff       Measure             `json:"total_diff"`
	StructureEffect Measure             `json:"structure_effect"`
	RateEffect      Measure             `json:"rate_effect"`
	CrudeNative     Measure             `json:"crude_native"`
	CrudeForeign    Measure             `json:"crude_foreign"`
	PerAge          []KitagawaAgeEffect `json:"per_age_breakdown"`
	Incomplete      bool                `json:"incomplete"`
	MissingBands    []AgeBand           `json:"missing_bands,omitempty"`
}

// Cohort is an ASFR observation assigned to an approximate birth cohort.
type Cohort struct {
	CohortYear  int         `json:"cohort_year"`
	Age         float64     `json:"age"`
	Year        int         `json:"year"`
	Nationality Nationality `json:"nationality"`
	Rate        float64     `json:"rate"`
}

// CohortAverage is the mean rate of one (cohort, age, nationality) group.
type CohortAverage struct {
	CohortYear   int         `json:"cohort_year"`
	Age          float64     `json:"age"`
	Nationality  Nationality `json:"nationality"`
	MeanRate     float64     `json:"mean_rate"`
	Observations int         `json:"observations"`
}

// TFRReconciliation sets an official TFR value next to the computed one.
type TFRReconciliation struct {
	Year        int         `json:"year"`
	Nationality Nationality `json:"nationality"`
	Official    float64     `json:"official"`
	Computed    float64     `json:"computed"`
	Rescaled    Measure     `json:"rescaled"`
}

// SummaryRow collects the headline indicators of one (year, nationality).
type SummaryRow struct {
	Year        int         `json:"year"`
	Nationality Nationality `json:"nationality"`
	RatePer1000 Measure     `json:"rate_per_1000"`
	TFR         float64     `json:"tfr"`
	MeanAge     Measure     `json:"mean_age"`
}

// ASFRHeatmap is the band x year rate matrix of one nationality. Cells with
// no observation are undefined.
type ASFRHeatmap struct {
	Nationality Nationality `json:"nationality"`
	AgeBands    []AgeBand   `json:"age_bands"`
	Years       []int       `json:"years"`
	Values      [][]Measure `json:"values"`
}
