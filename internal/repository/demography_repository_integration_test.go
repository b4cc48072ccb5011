//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"fertility-platform/internal/models"
	"fertility-platform/internal/repository"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
	"fertility-platform/pkg/testutil/containers"
)

type DemographyRepositorySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	metrics  *metrics.Collector
	repo     repository.DemographyRepository
}

func TestDemographyRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(DemographyRepositorySuite))
}

func (s *DemographyRepositorySuite) SetupSuite() {
	s.metrics = metrics.NewCollectorWith("repo_it", prometheus.NewRegistry())
	s.postgres = containers.NewPostgresContainer(s.T(), s.metrics,
		filepath.Join("..", "..", "migrations", "001_create_schema.up.sql"))
	s.repo = repository.NewDemographyRepository(s.postgres.DB, logging.Discard(), s.metrics)
}

func (s *DemographyRepositorySuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"raw_births", "raw_population", "raw_fertility_rates", "raw_official_tfr")
	s.Require().NoError(err)
}

func (s *DemographyRepositorySuite) TestReplaceBirthsRoundTrip() {
	ctx := context.Background()
	births := []models.Birth{
		{Year: 2019, NationalityLabel: "Española", Births: 300000},
		{Year: 2020, NationalityLabel: "Extranjera", Births: 20000},
		{Year: 2020, NationalityLabel: "Española", Births: 290000.5},
	}

	s.Require().NoError(s.repo.ReplaceBirths(ctx, births))

	got, err := s.repo.Births(ctx, models.YearRange{})
	s.Require().NoError(err)
	s.Equal(births, got)
	s.Equal(3.0, testutil.ToFloat64(s.metrics.IngestionRowsTotal.WithLabelValues("raw_births")))
}

func (s *DemographyRepositorySuite) TestReplaceSwapsContent() {
	ctx := context.Background()
	first := []models.FertilityRate{
		{Year: 2010, AgeBandRaw: "De 25 a 29 años", NationalityLabel: "Española", Rate: 50},
		{Year: 2011, AgeBandRaw: "De 25 a 29 años", NationalityLabel: "Española", Rate: 51},
	}
	second := []models.FertilityRate{
		{Year: 2012, AgeBandRaw: "De 30 a 34 años", NationalityLabel: "Extranjera", Rate: 80},
	}

	s.Require().NoError(s.repo.ReplaceRates(ctx, first))
	s.Require().NoError(s.repo.ReplaceRates(ctx, second))

	got, err := s.repo.FertilityRates(ctx, models.YearRange{})
	s.Require().NoError(err)
	s.Equal(second, got)
}

func (s *DemographyRepositorySuite) TestYearRangeFilter() {
	ctx := context.Background()
	var counts []models.PopulationCount
	for year := 2000; year <= 2005; year++ {
		counts = append(counts, models.PopulationCount{
			Period:           fmt.Sprintf("1 de enero de %d", year),
			Year:             year,
			AgeBandRaw:       "De 15 a 19 años",
			NationalityLabel: "Española",
			Population:       1000,
		})
	}
	s.Require().NoError(s.repo.ReplacePopulation(ctx, counts))

	tests := []struct {
		name  string
		years models.YearRange
		want  []int
	}{
		{name: "closed", years: models.YearRange{From: 2002, To: 2003}, want: []int{2002, 2003}},
		{name: "open upper", years: models.YearRange{From: 2004}, want: []int{2004, 2005}},
		{name: "open lower", years: models.YearRange{To: 2000}, want: []int{2000}},
		{name: "empty", years: models.YearRange{From: 2030}, want: nil},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := s.repo.Population(ctx, tt.years)
			s.Require().NoError(err)
			var years []int
			for _, c := range got {
				years = append(years, c.Year)
			}
			s.Equal(tt.want, years)
		})
	}
}

func (s *DemographyRepositorySuite) TestRejectedRowRollsBack() {
	ctx := context.Background()
	s.Require().NoError(s.repo.ReplaceOfficialTFR(ctx, []models.OfficialTFR{
		{Year: 2020, NationalityLabel: "Española", TFR: 1180},
	}))

	err := s.repo.ReplaceBirths(ctx, []models.Birth{
		{Year: 2020, NationalityLabel: "Española", Births: 10},
		{Year: 2020, NationalityLabel: "Extranjera", Births: -1},
	})
	s.Require().Error(err)

	births, err := s.repo.Births(ctx, models.YearRange{})
	s.Require().NoError(err)
	s.Empty(births)

	tfr, err := s.repo.OfficialTFR(ctx, models.YearRange{})
	s.Require().NoError(err)
	s.Len(tfr, 1)
}

func (s *DemographyRepositorySuite) TestEmptyReplaceClearsTable() {
	ctx := context.Background()
	s.Require().NoError(s.repo.ReplaceOfficialTFR(ctx, []models.OfficialTFR{
		{Year: 2020, NationalityLabel: "Española", TFR: 1180},
	}))
	s.Require().NoError(s.repo.ReplaceOfficialTFR(ctx, nil))

	tfr, err := s.repo.OfficialTFR(ctx, models.YearRange{})
	s.Require().NoError(err)
	s.Empty(tfr)
}

func (s *DemographyRepositorySuite) TestHealthCheck() {
	s.NoError(s.repo.HealthCheck(context.Background()))
}
