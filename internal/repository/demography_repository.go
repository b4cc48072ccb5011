package repository

import (
	"context"
	"fmt"
	"time"

	"fertility-platform/internal/models"
	"fertility-platform/pkg/database"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

// DemographyRepository provides data access for the raw input tables
type DemographyRepository interface {
	// Replace operations swap the whole table content in one transaction
	ReplaceBirths(ctx context.Context, births []models.Birth) error
	ReplacePopulation(ctx context.Context, counts []models.PopulationCount) error
	ReplaceRates(ctx context.Context, rates []models.FertilityRate) error
	ReplaceOfficialTFR(ctx context.Context, tfr []models.OfficialTFR) error

	// Read operations
	Births(ctx context.Context, years models.YearRange) ([]models.Birth, error)
	Population(ctx context.Context, years models.YearRange) ([]models.PopulationCount, error)
	FertilityRates(ctx context.Context, years models.YearRange) ([]models.FertilityRate, error)
	OfficialTFR(ctx context.Context, years models.YearRange) ([]models.OfficialTFR, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// Table names as created by migrations/001_create_schema.up.sql
const (
	tableBirths      = "raw_births"
	tablePopulation  = "raw_population"
	tableRates       = "raw_fertility_rates"
	tableOfficialTFR = "raw_official_tfr"
)

// demographyRepository implements DemographyRepository
type demographyRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDemographyRepository creates a new demography repository
func NewDemographyRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) DemographyRepository {
	return &demographyRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// replaceTable deletes every row of table and inserts n rows through insert,
// all inside one serializable transaction. args returns the values of row i.
func (r *demographyRepository) replaceTable(ctx context.Context, table, insert string, n int, args func(i int) []interface{}) error {
	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.logger.Debug(ctx, "[REPO_REPLACE_TABLE] Table replaced", logging.Fields{
			"table":       table,
			"count":       n,
			"duration_ms": duration.Milliseconds(),
		})
	}()

	// Begin transaction
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		r.metrics.RecordDBError("delete_" + table)
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	// Prepare statement
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	// Execute batch
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			r.metrics.RecordDBError("insert_" + table)
			return fmt.Errorf("failed to insert into %s (row %d): %w", table, i, err)
		}
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.RecordIngestedRows(table, n)
	return nil
}

// ReplaceBirths replaces the births table
func (r *demographyRepository) ReplaceBirths(ctx context.Context, births []models.Birth) error {
	return r.replaceTable(ctx, tableBirths, `
		INSERT INTO raw_births (year, nationality_label, births)
		VALUES ($1, $2, $3)
	`, len(births), func(i int) []interface{} {
		b := births[i]
		return []interface{}{b.Year, b.NationalityLabel, b.Births}
	})
}

// ReplacePopulation replaces the female population table
func (r *demographyRepository) ReplacePopulation(ctx context.Context, counts []models.PopulationCount) error {
	return r.replaceTable(ctx, tablePopulation, `
		INSERT INTO raw_population (period, year, age_band_raw, nationality_label, population)
		VALUES ($1, $2, $3, $4, $5)
	`, len(counts), func(i int) []interface{} {
		p := counts[i]
		return []interface{}{p.Period, p.Year, p.AgeBandRaw, p.NationalityLabel, p.Population}
	})
}

// ReplaceRates replaces the age-specific fertility rate table
func (r *demographyRepository) ReplaceRates(ctx context.Context, rates []models.FertilityRate) error {
	return r.replaceTable(ctx, tableRates, `
		INSERT INTO raw_fertility_rates (year, age_band_raw, nationality_label, rate)
		VALUES ($1, $2, $3, $4)
	`, len(rates), func(i int) []interface{} {
		f := rates[i]
		return []interface{}{f.Year, f.AgeBandRaw, f.NationalityLabel, f.Rate}
	})
}

// ReplaceOfficialTFR replaces the official TFR table
func (r *demographyRepository) ReplaceOfficialTFR(ctx context.Context, tfr []models.OfficialTFR) error {
	return r.replaceTable(ctx, tableOfficialTFR, `
		INSERT INTO raw_official_tfr (year, nationality_label, tfr)
		VALUES ($1, $2, $3)
	`, len(tfr), func(i int) []interface{} {
		t := tfr[i]
		return []interface{}{t.Year, t.NationalityLabel, t.TFR}
	})
}

// yearFilter appends the year bounds of years to query, starting at
// placeholder $1.
func yearFilter(query string, years models.YearRange) (string, []interface{}) {
	args := []interface{}{}
	argNum := 1

	if years.From != 0 {
		query += fmt.Sprintf(" AND year >= $%d", argNum)
		args = append(args, years.From)
		argNum++
	}

	if years.To != 0 {
		query += fmt.Sprintf(" AND year <= $%d", argNum)
		args = append(args, years.To)
	}

	return query, args
}

// Births retrieves births inside years, in insertion order
func (r *demographyRepository) Births(ctx context.Context, years models.YearRange) ([]models.Birth, error) {
	query, args := yearFilter(`
		SELECT year, nationality_label, births
		FROM raw_births
		WHERE 1=1
	`, years)
	query += " ORDER BY id"

	var births []models.Birth
	if err := r.db.SelectContext(ctx, "select_births", &births, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get births: %w", err)
	}
	return births, nil
}

// Population retrieves population counts inside years
func (r *demographyRepository) Population(ctx context.Context, years models.YearRange) ([]models.PopulationCount, error) {
	query, args := yearFilter(`
		SELECT period, year, age_band_raw, nationality_label, population
		FROM raw_population
		WHERE 1=1
	`, years)
	query += " ORDER BY id"

	var counts []models.PopulationCount
	if err := r.db.SelectContext(ctx, "select_population", &counts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get population: %w", err)
	}
	return counts, nil
}

// FertilityRates retrieves age-specific fertility rates inside years
func (r *demographyRepository) FertilityRates(ctx context.Context, years models.YearRange) ([]models.FertilityRate, error) {
	query, args := yearFilter(`
		SELECT year, age_band_raw, nationality_label, rate
		FROM raw_fertility_rates
		WHERE 1=1
	`, years)
	query += " ORDER BY id"

	var rates []models.FertilityRate
	if err := r.db.SelectContext(ctx, "select_rates", &rates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get fertility rates: %w", err)
	}
	return rates, nil
}

// OfficialTFR retrieves the official TFR series inside years. An empty
// table yields no rows and no error.
func (r *demographyRepository) OfficialTFR(ctx context.Context, years models.YearRange) ([]models.OfficialTFR, error) {
	query, args := yearFilter(`
		SELECT year, nationality_label, tfr
		FROM raw_official_tfr
		WHERE 1=1
	`, years)
	query += " ORDER BY id"

	var tfr []models.OfficialTFR
	if err := r.db.SelectContext(ctx, "select_official_tfr", &tfr, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get official tfr: %w", err)
	}
	return tfr, nil
}

// HealthCheck performs a repository health check
func (r *demographyRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
