package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fertility-platform/internal/config"
	"fertility-platform/internal/handlers"
	"fertility-platform/internal/repository"
	"fertility-platform/internal/services"
	"fertility-platform/internal/source"
	"fertility-platform/pkg/database"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

// fileHealth reports the data directory as the store when serving from files.
type fileHealth struct {
	dir string
}

func (f fileHealth) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

func main() {
	sourceKind := flag.String("source", "postgres", "Where to read the raw tables from: postgres or files")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("fertility-api", "1.0.0", cfg.Logging.LogLevel())

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting fertility platform API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"source":      *sourceKind,
		"join_policy": cfg.Analysis.JoinPolicy,
		"year_from":   cfg.Analysis.YearFrom,
		"year_to":     cfg.Analysis.YearTo,
	})

	metricsCollector := metrics.NewCollector("fertility_platform")

	var (
		data   services.DataSource
		health handlers.HealthChecker
	)
	switch *sourceKind {
	case "postgres":
		db, err := database.NewPostgresDB(cfg.Database.Postgres(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"db_host": cfg.Database.Host,
				"db_name": cfg.Database.Database,
			}, err)
		}
		defer db.Close()

		repo := repository.NewDemographyRepository(db, logger, metricsCollector)
		data, health = repo, repo
	case "files":
		data = source.NewDirectory(source.OptionsFromConfig(cfg.Source), logger, metricsCollector)
		health = fileHealth{dir: cfg.Source.DataDir}
	default:
		fmt.Fprintf(os.Stderr, "Unknown source %q, expected postgres or files\n", *sourceKind)
		os.Exit(1)
	}

	fertilityService := services.NewFertilityService(data, services.OptionsFromConfig(cfg.Analysis), logger, metricsCollector)
	fertilityHandler := handlers.NewFertilityHandler(fertilityService, health, logger, metricsCollector)

	router := mux.NewRouter()
	router.Use(handlers.RequestID)
	fertilityHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
