package services

import (
	"context"
	"fmt"
	"time"

	"fertility-platform/internal/models"
	"fertility-platform/internal/repository"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

// IngestionService copies the raw tables of a DataSource into the repository
type IngestionService struct {
	repo    repository.DemographyRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Tables       int
	TotalRows    int
	TableCounts  map[string]int
	FailedTables int
	Duration     time.Duration
	Errors       []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.DemographyRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ingestStep loads one table from the source and replaces it in the store.
type ingestStep struct {
	table string
	run   func(ctx context.Context) (int, error)
}

// Ingest replaces every raw table with the rows src yields inside years.
// A table that fails is reported and the remaining tables are still
// ingested; a cancelled context stops the run.
func (s *IngestionService) Ingest(ctx context.Context, src DataSource, years models.YearRange) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"years": years.String(),
		"stage": "INITIALIZATION",
	})

	result := &IngestionResult{
		TableCounts: make(map[string]int),
		Errors:      make([]string, 0),
	}

	steps := []ingestStep{
		{"births", func(ctx context.Context) (int, error) {
			rows, err := src.Births(ctx, years)
			if err != nil {
				return 0, err
			}
			return len(rows), s.repo.ReplaceBirths(ctx, rows)
		}},
		{"population", func(ctx context.Context) (int, error) {
			rows, err := src.Population(ctx, years)
			if err != nil {
				return 0, err
			}
			return len(rows), s.repo.ReplacePopulation(ctx, rows)
		}},
		{"fertility_rates", func(ctx context.Context) (int, error) {
			rows, err := src.FertilityRates(ctx, years)
			if err != nil {
				return 0, err
			}
			return len(rows), s.repo.ReplaceRates(ctx, rows)
		}},
		{"official_tfr", func(ctx context.Context) (int, error) {
			rows, err := src.OfficialTFR(ctx, years)
			if err != nil {
				return 0, err
			}
			return len(rows), s.repo.ReplaceOfficialTFR(ctx, rows)
		}},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Tables++

		n, err := step.run(ctx)
		if err != nil {
			errMsg := fmt.Sprintf("failed to ingest %s: %v", step.table, err)
			result.Errors = append(result.Errors, errMsg)
			result.FailedTables++
			s.logger.Error(ctx, "[INGEST_TABLE_ERROR] Table ingestion failed", logging.Fields{
				"table": step.table,
				"stage": "TABLE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError(step.table, "table_error")
			continue
		}

		result.TableCounts[step.table] = n
		result.TotalRows += n

		s.logger.Info(ctx, "[INGEST_TABLE_SUCCESS] Table ingested successfully", logging.Fields{
			"table": step.table,
			"rows":  n,
			"stage": "TABLE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"tables":           result.Tables,
		"failed_tables":    result.FailedTables,
		"total_rows":       result.TotalRows,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	if result.FailedTables == result.Tables {
		return result, fmt.Errorf("no table could be ingested: %s", result.Errors[0])
	}
	return result, nil
}
