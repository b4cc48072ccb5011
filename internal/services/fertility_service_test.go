package services

//go:generate mockgen -source=fertility_service.go -destination=mocks/mocks.go -package=mocks DataSource

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fertility-platform/internal/analysis"
	"fertility-platform/internal/models"
	"fertility-platform/internal/repository"
	"fertility-platform/internal/services/mocks"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

var bandLabels = []string{
	"De 15 a 19 años", "De 20 a 24 años", "De 25 a 29 años", "De 30 a 34 años",
	"De 35 a 39 años", "De 40 a 44 años", "De 45 a 49 años",
}

// nativePop sums to 5,000,000 over the seven bands.
var nativePop = []float64{700000, 700000, 700000, 700000, 700000, 700000, 800000}

func fixtureBirths(year int) []models.Birth {
	return []models.Birth{
		{Year: year, NationalityLabel: "Española", Births: 300000},
		{Year: year, NationalityLabel: "Marruecos", Births: 20000},
		{Year: year, NationalityLabel: "Rumanía", Births: 20000},
	}
}

// fixturePopulation gives 50,000 foreign women per band, split over two
// source nationalities.
func fixturePopulation(year int) []models.PopulationCount {
	var rows []models.PopulationCount
	for i, label := range bandLabels {
		rows = append(rows,
			models.PopulationCount{Period: "1 de enero", Year: year, AgeBandRaw: label, NationalityLabel: "Española", Population: nativePop[i]},
			models.PopulationCount{Period: "1 de enero", Year: year, AgeBandRaw: label, NationalityLabel: "Marruecos", Population: 25000},
			models.PopulationCount{Period: "1 de enero", Year: year, AgeBandRaw: label, NationalityLabel: "Rumanía", Population: 25000},
		)
	}
	rows = append(rows, models.PopulationCount{Period: "1 de enero", Year: year, AgeBandRaw: "Total", NationalityLabel: "Española", Population: 9e9})
	return rows
}

func fixtureRates(year int, bands int) []models.FertilityRate {
	var rows []models.FertilityRate
	for _, label := range bandLabels[:bands] {
		rows = append(rows,
			models.FertilityRate{Year: year, AgeBandRaw: label, NationalityLabel: "Española", Rate: 50},
			models.FertilityRate{Year: year, AgeBandRaw: label, NationalityLabel: "Extranjera", Rate: 80},
		)
	}
	return rows
}

type FertilityServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	source  *mocks.MockDataSource
	metrics *metrics.Collector
	service *FertilityService
	ctx     context.Context
	all     models.YearRange
}

func TestFertilityServiceSuite(t *testing.T) {
	suite.Run(t, new(FertilityServiceSuite))
}

func (s *FertilityServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockDataSource(s.ctrl)
	s.metrics = metrics.NewCollectorWith("service_test", prometheus.NewRegistry())
	s.all = models.YearRange{From: 2002, To: 2024}
	s.service = NewFertilityService(s.source, Options{
		Policy:        analysis.DropUnmatched,
		Years:         s.all,
		KitagawaYears: []int{2020},
		SummaryYears:  []int{2020},
	}, logging.Discard(), s.metrics)
	s.ctx = context.Background()
}

func (s *FertilityServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *FertilityServiceSuite) expectBirthsAndPopulation(years models.YearRange, births []models.Birth) {
	s.source.EXPECT().Births(gomock.Any(), years).Return(births, nil)
	s.source.EXPECT().Population(gomock.Any(), years).Return(fixturePopulation(2020), nil)
}

func (s *FertilityServiceSuite) TestRates() {
	s.Run("crude rate per 1000 women", func() {
		s.expectBirthsAndPopulation(s.all, fixtureBirths(2020))

		res, err := s.service.Rates(s.ctx, Query{})
		s.Require().NoError(err)
		s.Require().Len(res.Data, 2)
		s.Equal(models.NationalityNative, res.Data[0].Nationality)
		s.InDelta(60.0, res.Data[0].RatePer1000.Float64(), 1e-9)
		s.InDelta(40000.0/350000*1000, res.Data[1].RatePer1000.Float64(), 1e-9)
		s.Equal("drop", res.JoinPolicy)
		s.Empty(res.DroppedKeys)
	})

	s.Run("query years narrow the configured range", func() {
		narrowed := models.YearRange{From: 2020, To: 2024}
		s.expectBirthsAndPopulation(narrowed, fixtureBirths(2020))

		res, err := s.service.Rates(s.ctx, Query{Years: models.YearRange{From: 2020, To: 2030}})
		s.Require().NoError(err)
		s.Equal(narrowed, res.Years)
	})

	s.Run("range outside configured years is rejected", func() {
		_, err := s.service.Rates(s.ctx, Query{Years: models.YearRange{From: 2030}})
		var ve *models.ValidationError
		s.True(errors.As(err, &ve))
	})

	s.Run("unmatched births are dropped and counted", func() {
		births := append(fixtureBirths(2020), models.Birth{Year: 2021, NationalityLabel: "Española", Births: 1})
		s.expectBirthsAndPopulation(s.all, births)

		res, err := s.service.Rates(s.ctx, Query{})
		s.Require().NoError(err)
		s.Equal([]string{"2021/native"}, res.DroppedKeys)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.UnmatchedKeysDropped.WithLabelValues("crude_birth_rate")))
	})

	s.Run("fail policy refuses unmatched births", func() {
		births := append(fixtureBirths(2020), models.Birth{Year: 2021, NationalityLabel: "Española", Births: 1})
		s.expectBirthsAndPopulation(s.all, births)

		fail := analysis.FailOnUnmatched
		_, err := s.service.Rates(s.ctx, Query{Policy: &fail})
		s.ErrorIs(err, analysis.ErrUnmatchedKeys)
	})

	s.Run("empty births table is not found", func() {
		s.expectBirthsAndPopulation(s.all, nil)

		_, err := s.service.Rates(s.ctx, Query{})
		var nf *repository.NotFoundError
		s.Require().True(errors.As(err, &nf))
		s.Equal("births", nf.Resource)
	})

	s.Run("source error is wrapped", func() {
		boom := errors.New("disk on fire")
		s.source.EXPECT().Births(gomock.Any(), s.all).Return(nil, boom)
		s.source.EXPECT().Population(gomock.Any(), s.all).Return(nil, nil).AnyTimes()

		_, err := s.service.Rates(s.ctx, Query{})
		s.ErrorIs(err, boom)
		s.Contains(err.Error(), "failed to load births")
	})
}

func (s *FertilityServiceSuite) TestIntensity() {
	s.expectBirthsAndPopulation(s.all, fixtureBirths(2020))

	res, err := s.service.Intensity(s.ctx, Query{})
	s.Require().NoError(err)
	s.Require().Len(res.Data, 1)
	s.InDelta((40000.0/350000*1000)/60, res.Data[0].Ratio.Float64(), 1e-9)
	s.InDelta(res.Data[0].Ratio.Float64(), res.Data[0].RatioSmoothed.Float64(), 1e-12)
}

func (s *FertilityServiceSuite) TestASFRAndHeatmaps() {
	s.Run("comparison per band", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		res, err := s.service.ASFR(s.ctx, Query{})
		s.Require().NoError(err)
		s.Require().Len(res.Data, 7)
		for _, row := range res.Data {
			s.InDelta(30.0, row.AbsDiff, 1e-9)
			s.InDelta(1.6, row.Ratio.Float64(), 1e-9)
		}
	})

	s.Run("heatmap of one class", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		res, err := s.service.Heatmaps(s.ctx, Query{}, models.NationalityForeign)
		s.Require().NoError(err)
		s.Require().Len(res.Data, 1)
		s.Equal([]int{2020}, res.Data[0].Years)
		s.InDelta(80.0, res.Data[0].Values[0][0].Float64(), 1e-9)
	})

	s.Run("unknown class is rejected before loading", func() {
		_, err := s.service.Heatmaps(s.ctx, Query{}, models.Nationality("martian"))
		var ve *models.ValidationError
		s.True(errors.As(err, &ve))
	})
}

func (s *FertilityServiceSuite) TestTFR() {
	s.Run("complete schedules", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		res, err := s.service.TFR(s.ctx, Query{})
		s.Require().NoError(err)
		s.Require().Len(res.Data, 2)
		s.InDelta(1.75, res.Data[0].TFR, 1e-12)
		s.InDelta(2.8, res.Data[1].TFR, 1e-12)
		s.Empty(res.Warnings)
	})

	s.Run("partial schedules are flagged", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 5), nil)

		res, err := s.service.TFR(s.ctx, Query{})
		s.Require().NoError(err)
		s.Len(res.Warnings, 2)
		s.Contains(res.Warnings[0], "covers 5 of 7")
	})
}

func (s *FertilityServiceSuite) TestReconciliation() {
	s.Run("official series per 1000 women is rescaled", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)
		s.source.EXPECT().OfficialTFR(gomock.Any(), s.all).Return([]models.OfficialTFR{
			{Year: 2020, NationalityLabel: "Española", TFR: 1750},
			{Year: 2020, NationalityLabel: "Extranjera", TFR: 1400},
		}, nil)

		res, err := s.service.Reconciliation(s.ctx, Query{})
		s.Require().NoError(err)
		s.InDelta(1.0, res.Data.ScaleFactors[models.NationalityNative], 1e-12)
		s.InDelta(2.0, res.Data.ScaleFactors[models.NationalityForeign], 1e-12)
		s.Require().Len(res.Data.Rows, 2)
		s.InDelta(2.8, res.Data.Rows[1].Rescaled.Float64(), 1e-12)
	})

	s.Run("missing official table is not found", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)
		s.source.EXPECT().OfficialTFR(gomock.Any(), s.all).Return(nil, nil)

		_, err := s.service.Reconciliation(s.ctx, Query{})
		var nf *repository.NotFoundError
		s.True(errors.As(err, &nf))
	})
}

func (s *FertilityServiceSuite) TestMAC() {
	s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

	res, err := s.service.MAC(s.ctx, Query{})
	s.Require().NoError(err)
	s.Require().Len(res.Data, 2)
	s.InDelta(32.5, res.Data[0].MeanAge.Float64(), 1e-9)
}

func (s *FertilityServiceSuite) TestKitagawa() {
	s.Run("configured years", func() {
		s.source.EXPECT().Population(gomock.Any(), s.all).Return(fixturePopulation(2020), nil)
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		res, err := s.service.Kitagawa(s.ctx, Query{}, nil)
		s.Require().NoError(err)
		s.Require().Len(res.Data, 1)
		r := res.Data[0]
		s.InDelta(r.TotalDiff.Float64(), r.StructureEffect.Float64()+r.RateEffect.Float64(), 1e-12)
		s.False(r.Incomplete)
	})

	s.Run("undecomposable years become warnings", func() {
		s.source.EXPECT().Population(gomock.Any(), s.all).Return(fixturePopulation(2020), nil)
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		res, err := s.service.Kitagawa(s.ctx, Query{}, []int{2019, 2020})
		s.Require().NoError(err)
		s.Len(res.Data, 1)
		s.Require().Len(res.Warnings, 1)
		s.Contains(res.Warnings[0], "2019")
	})

	s.Run("no decomposable year returns the error", func() {
		s.source.EXPECT().Population(gomock.Any(), s.all).Return(fixturePopulation(2020), nil)
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		_, err := s.service.Kitagawa(s.ctx, Query{}, []int{2019})
		s.ErrorIs(err, analysis.ErrInsufficientData)
	})

	s.Run("asymmetric bands are counted as incomplete", func() {
		rates := append(fixtureRates(2020, 6),
			models.FertilityRate{Year: 2020, AgeBandRaw: "De 45 a 49 años", NationalityLabel: "Española", Rate: 1})
		s.source.EXPECT().Population(gomock.Any(), s.all).Return(fixturePopulation(2020), nil)
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(rates, nil)

		before := testutil.ToFloat64(s.metrics.IncompleteDecompositions)
		res, err := s.service.Kitagawa(s.ctx, Query{}, []int{2020})
		s.Require().NoError(err)
		s.True(res.Data[0].Incomplete)
		s.Equal([]models.AgeBand{models.AgeBand45to49}, res.Data[0].MissingBands)
		s.Equal(before+1, testutil.ToFloat64(s.metrics.IncompleteDecompositions))
	})
}

func (s *FertilityServiceSuite) TestCohorts() {
	s.Run("configured bounds", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		res, err := s.service.Cohorts(s.ctx, Query{}, nil)
		s.Require().NoError(err)
		s.Len(res.Data, 14)
	})

	s.Run("inverted bounds are rejected", func() {
		s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

		lo, hi := 1990, 1980
		_, err := s.service.Cohorts(s.ctx, Query{}, &analysis.CohortBounds{Min: &lo, Max: &hi})
		var ve *models.ValidationError
		s.True(errors.As(err, &ve))
	})
}

func (s *FertilityServiceSuite) TestSummary() {
	s.source.EXPECT().Births(gomock.Any(), s.all).Return(fixtureBirths(2020), nil)
	s.source.EXPECT().Population(gomock.Any(), s.all).Return(fixturePopulation(2020), nil)
	s.source.EXPECT().FertilityRates(gomock.Any(), s.all).Return(fixtureRates(2020, 7), nil)

	res, err := s.service.SelectedYears(s.ctx, Query{})
	s.Require().NoError(err)
	s.Require().Len(res.Data, 2)
	s.InDelta(60.0, res.Data[0].RatePer1000.Float64(), 1e-9)
	s.InDelta(1.75, res.Data[0].TFR, 1e-12)
	s.InDelta(32.5, res.Data[0].MeanAge.Float64(), 1e-9)
}
