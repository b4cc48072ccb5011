// Package source reads the raw input tables from a directory of CSV, XLSX or
// XLS files and validates their schema.
package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fertility-platform/internal/config"
	"fertility-platform/internal/models"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

// maxReportedErrors caps the row errors kept in a TableReport.
const maxReportedErrors = 20

// Options locates the tables and describes their number formats.
type Options struct {
	Dir              string
	BirthsFile       string
	PopulationFile   string
	RatesFile        string
	OfficialTFRFile  string
	PopulationFormat models.NumberFormat
	NumberFormat     models.NumberFormat
}

// OptionsFromConfig maps the source section of the configuration.
func OptionsFromConfig(cfg config.SourceConfig) Options {
	return Options{
		Dir:              cfg.DataDir,
		BirthsFile:       cfg.BirthsFile,
		PopulationFile:   cfg.PopulationFile,
		RatesFile:        cfg.RatesFile,
		OfficialTFRFile:  cfg.OfficialTFRFile,
		PopulationFormat: cfg.PopulationFormat,
		NumberFormat:     cfg.NumberFormat,
	}
}

// TableReport summarises one table read.
type TableReport struct {
	Table   Table    `json:"table"`
	File    string   `json:"file"`
	Rows    int      `json:"rows"`
	Loaded  int      `json:"loaded"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// Directory reads the four tables from files under Options.Dir.
type Directory struct {
	opts    Options
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDirectory creates a Directory source.
func NewDirectory(opts Options, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Directory {
	return &Directory{
		opts:    opts,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (d *Directory) path(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(d.opts.Dir, file)
}

// Births reads the births table, keeping rows inside years.
func (d *Directory) Births(ctx context.Context, years models.YearRange) ([]models.Birth, error) {
	var out []models.Birth
	_, err := d.load(ctx, TableBirths, d.opts.BirthsFile, func(row []string, cols map[string]int) error {
		raw := models.RawBirthRecord{
			Year:        cell(row, cols, colYear),
			Nationality: cell(row, cols, colNationality),
			Births:      cell(row, cols, colBirths),
		}
		b, err := raw.ToBirth(d.opts.NumberFormat)
		if err != nil {
			return err
		}
		if years.Contains(b.Year) {
			out = append(out, *b)
		}
		return nil
	})
	return out, err
}

// Population reads the women 15-49 population table. Its numbers use
// PopulationFormat and its year column may hold snapshot dates.
func (d *Directory) Population(ctx context.Context, years models.YearRange) ([]models.PopulationCount, error) {
	var out []models.PopulationCount
	_, err := d.load(ctx, TablePopulation, d.opts.PopulationFile, func(row []string, cols map[string]int) error {
		raw := models.RawPopulationRecord{
			Period:      cell(row, cols, colYear),
			AgeBand:     cell(row, cols, colAgeBand),
			Nationality: cell(row, cols, colNationality),
			Population:  cell(row, cols, colPopulation),
		}
		p, err := raw.ToPopulationCount(d.opts.PopulationFormat)
		if err != nil {
			return err
		}
		if years.Contains(p.Year) {
			out = append(out, *p)
		}
		return nil
	})
	return out, err
}

// FertilityRates reads the age-specific fertility rate table.
func (d *Directory) FertilityRates(ctx context.Context, years models.YearRange) ([]models.FertilityRate, error) {
	var out []models.FertilityRate
	_, err := d.load(ctx, TableRates, d.opts.RatesFile, func(row []string, cols map[string]int) error {
		raw := models.RawFertilityRateRecord{
			Year:        cell(row, cols, colYear),
			AgeBand:     cell(row, cols, colAgeBand),
			Nationality: cell(row, cols, colNationality),
			Rate:        cell(row, cols, colRate),
		}
		r, err := raw.ToFertilityRate(d.opts.NumberFormat)
		if err != nil {
			return err
		}
		if years.Contains(r.Year) {
			out = append(out, *r)
		}
		return nil
	})
	return out, err
}

// OfficialTFR reads the optional official TFR table. A table that is not
// configured or not present yields no rows and no error.
func (d *Directory) OfficialTFR(ctx context.Context, years models.YearRange) ([]models.OfficialTFR, error) {
	if d.opts.OfficialTFRFile == "" {
		return nil, nil
	}
	if _, err := os.Stat(d.path(d.opts.OfficialTFRFile)); errors.Is(err, os.ErrNotExist) {
		d.logger.Info(ctx, "[SOURCE_OPTIONAL] Official TFR table not present", logging.Fields{
			"file": d.path(d.opts.OfficialTFRFile),
		})
		return nil, nil
	}

	var out []models.OfficialTFR
	_, err := d.load(ctx, TableOfficialTFR, d.opts.OfficialTFRFile, func(row []string, cols map[string]int) error {
		raw := models.RawOfficialTFRRecord{
			Year:        cell(row, cols, colYear),
			Nationality: cell(row, cols, colNationality),
			TFR:         cell(row, cols, colTFR),
		}
		t, err := raw.ToOfficialTFR(d.opts.NumberFormat)
		if err != nil {
			return err
		}
		if years.Contains(t.Year) {
			out = append(out, *t)
		}
		return nil
	})
	return out, err
}

// Validate reads every configured table and reports what was loaded and
// skipped. A schema error stops validation and is returned.
func (d *Directory) Validate(ctx context.Context) ([]TableReport, error) {
	tables := []struct {
		table Table
		file  string
	}{
		{TableBirths, d.opts.BirthsFile},
		{TablePopulation, d.opts.PopulationFile},
		{TableRates, d.opts.RatesFile},
		{TableOfficialTFR, d.opts.OfficialTFRFile},
	}

	var reports []TableReport
	for _, t := range tables {
		if t.table == TableOfficialTFR {
			if t.file == "" {
				continue
			}
			if _, err := os.Stat(d.path(t.file)); errors.Is(err, os.ErrNotExist) {
				continue
			}
		}

		format := d.opts.NumberFormat
		if t.table == TablePopulation {
			format = d.opts.PopulationFormat
		}
		report, err := d.load(ctx, t.table, t.file, validator(t.table, format))
		if err != nil {
			return reports, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func validator(table Table, format models.NumberFormat) rowHandler {
	return func(row []string, cols map[string]int) error {
		var err error
		switch table {
		case TableBirths:
			_, err = (&models.RawBirthRecord{
				Year: cell(row, cols, colYear), Nationality: cell(row, cols, colNationality), Births: cell(row, cols, colBirths),
			}).ToBirth(format)
		case TablePopulation:
			_, err = (&models.RawPopulationRecord{
				Period: cell(row, cols, colYear), AgeBand: cell(row, cols, colAgeBand),
				Nationality: cell(row, cols, colNationality), Population: cell(row, cols, colPopulation),
			}).ToPopulationCount(format)
		case TableRates:
			_, err = (&models.RawFertilityRateRecord{
				Year: cell(row, cols, colYear), AgeBand: cell(row, cols, colAgeBand),
				Nationality: cell(row, cols, colNationality), Rate: cell(row, cols, colRate),
			}).ToFertilityRate(format)
		case TableOfficialTFR:
			_, err = (&models.RawOfficialTFRRecord{
				Year: cell(row, cols, colYear), Nationality: cell(row, cols, colNationality), TFR: cell(row, cols, colTFR),
			}).ToOfficialTFR(format)
		}
		return err
	}
}

type rowHandler func(row []string, cols map[string]int) error

// load reads one table file, resolves its header and hands every data row
// to handle. Rows the handler rejects are skipped and counted.
func (d *Directory) load(ctx context.Context, table Table, file string, handle rowHandler) (*TableReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := d.path(file)
	timer := d.metrics.NewTimer(d.metrics.TableLoadDuration.WithLabelValues(string(table)))

	rows, err := readRows(path)
	if err != nil {
		d.metrics.RecordIngestionError(string(table), "read_error")
		return nil, fmt.Errorf("failed to read %s table: %w", table, err)
	}

	headerIdx, cols, err := findHeader(table, filepath.Base(path), rows)
	if err != nil {
		d.metrics.RecordIngestionError(string(table), "schema_error")
		d.logger.Error(ctx, "[SOURCE_SCHEMA_ERROR] Required columns missing", logging.Fields{
			"table": string(table),
			"file":  path,
		}, err)
		return nil, err
	}

	report := &TableReport{Table: table, File: path}
	for i, row := range rows[headerIdx+1:] {
		if blankRow(row) {
			continue
		}
		report.Rows++
		if err := handle(row, cols); err != nil {
			report.Skipped++
			d.metrics.RecordIngestionError(string(table), "invalid_row")
			if len(report.Errors) < maxReportedErrors {
				report.Errors = append(report.Errors, fmt.Sprintf("line %d: %v", headerIdx+i+2, err))
			}
			continue
		}
		report.Loaded++
	}

	duration := timer.ObserveDuration()

	fields := logging.Fields{
		"table":       string(table),
		"file":        path,
		"rows":        report.Rows,
		"loaded":      report.Loaded,
		"skipped":     report.Skipped,
		"duration_ms": duration.Milliseconds(),
	}
	if report.Skipped > 0 {
		fields["first_error"] = report.Errors[0]
		d.logger.Warn(ctx, "[SOURCE_ROWS_SKIPPED] Rows with invalid values skipped", fields)
	} else {
		d.logger.Debug(ctx, "[SOURCE_LOADED] Table loaded", fields)
	}

	return report, nil
}
