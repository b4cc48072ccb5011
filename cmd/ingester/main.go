package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"fertility-platform/internal/config"
	"fertility-platform/internal/models"
	"fertility-platform/internal/repository"
	"fertility-platform/internal/services"
	"fertility-platform/internal/source"
	"fertility-platform/pkg/database"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

func main() {
	dataDir := flag.String("data-dir", "", "Directory containing the input tables (overrides DATA_DIR)")
	yearFrom := flag.Int("from", 0, "First year to load (default: configured year_from)")
	yearTo := flag.Int("to", 0, "Last year to load (default: configured year_to)")
	validateOnly := flag.Bool("validate-only", false, "Check the input tables without writing to the database")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Source.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	years := models.YearRange{From: cfg.Analysis.YearFrom, To: cfg.Analysis.YearTo}
	if *yearFrom != 0 {
		years.From = *yearFrom
	}
	if *yearTo != 0 {
		years.To = *yearTo
	}

	logger := logging.NewStructuredLogger("fertility-ingester", "1.0.0", cfg.Logging.LogLevel())

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting fertility data ingestion", logging.Fields{
		"version":       "1.0.0",
		"data_dir":      cfg.Source.DataDir,
		"years":         years.String(),
		"validate_only": *validateOnly,
	})

	metricsCollector := metrics.NewCollector("fertility_ingester")
	dir := source.NewDirectory(source.OptionsFromConfig(cfg.Source), logger, metricsCollector)

	if *validateOnly {
		reports, err := dir.Validate(ctx)
		printValidation(reports)
		if err != nil {
			logger.Fatal(ctx, "[VALIDATION_ERROR] Input tables are not usable", logging.Fields{}, err)
		}
		return
	}

	db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	repo := repository.NewDemographyRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(repo, logger, metricsCollector)

	result, err := ingestionService.Ingest(ctx, dir, years)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Tables:             %d\n", result.Tables)
	fmt.Printf("Failed Tables:      %d\n", result.FailedTables)
	for _, table := range []string{"births", "population", "fertility_rates", "official_tfr"} {
		if n, ok := result.TableCounts[table]; ok {
			fmt.Printf("  %-17s %d rows\n", table+":", n)
		}
	}
	fmt.Printf("Total Rows:         %d\n", result.TotalRows)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for _, errMsg := range result.Errors {
			fmt.Printf("  - %s\n", errMsg)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"tables":           result.Tables,
		"failed_tables":    result.FailedTables,
		"total_rows":       result.TotalRows,
		"duration_seconds": result.Duration.Seconds(),
	})
}

func printValidation(reports []source.TableReport) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INPUT VALIDATION")
	fmt.Println(strings.Repeat("=", 80))
	for _, r := range reports {
		fmt.Printf("%-16s %-48s rows=%d loaded=%d skipped=%d\n", r.Table, r.File, r.Rows, r.Loaded, r.Skipped)
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
}
