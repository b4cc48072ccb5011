package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"

	"fertility-platform/internal/config"
	"fertility-platform/internal/models"
	"fertility-platform/internal/report"
	"fertility-platform/internal/services"
	"fertility-platform/internal/source"
	"fertility-platform/pkg/logging"
	"fertility-platform/pkg/metrics"
)

type cohortFlags struct {
	min *int
	max *int
}

// session is the wiring shared by one CLI invocation.
type session struct {
	ctx     context.Context
	cfg     *config.Config
	dir     *source.Directory
	service *services.FertilityService
	out     *report.Printer
}

// openSession loads the configuration, applies the flags and builds the
// file-backed service. args may carry the data directory.
func openSession(g *globalFlags, args []string) (*session, func(), error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if len(args) == 1 {
		cfg.Source.DataDir = args[0]
	}
	if g.policy != "" {
		cfg.Analysis.JoinPolicy = g.policy
	}
	if g.from != 0 {
		cfg.Analysis.YearFrom = g.from
	}
	if g.to != 0 {
		cfg.Analysis.YearTo = g.to
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	tag, err := report.ParseLanguage(g.lang)
	if err != nil {
		return nil, nil, err
	}

	level := logging.WarnLevel
	if g.verbose {
		level = cfg.Logging.LogLevel()
	}
	logger := logging.NewStructuredLogger("fertility-cli", "1.0.0", level)
	logger.SetOutput(os.Stderr)

	// Nothing serves /metrics here.
	metricsCollector := metrics.NewCollectorWith("fertility_cli", prometheus.NewRegistry())

	dir := source.NewDirectory(source.OptionsFromConfig(cfg.Source), logger, metricsCollector)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	return &session{
		ctx:     ctx,
		cfg:     cfg,
		dir:     dir,
		service: services.NewFertilityService(dir, services.OptionsFromConfig(cfg.Analysis), logger, metricsCollector),
		out:     report.New(os.Stdout, tag),
	}, stop, nil
}

func runSummary(g *globalFlags, args []string, years []int, all bool) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	var res *services.Result[[]models.SummaryRow]
	switch {
	case all:
		res, err = s.service.Summary(s.ctx, services.Query{}, nil)
	case len(years) > 0:
		res, err = s.service.Summary(s.ctx, services.Query{}, years)
	default:
		res, err = s.service.SelectedYears(s.ctx, services.Query{})
	}
	if err != nil {
		return fmt.Errorf("computing summary: %w", err)
	}

	if err := s.out.Summary(res.Data); err != nil {
		return err
	}
	s.out.Notes(res.DroppedKeys, res.Warnings)
	return nil
}

func runRates(g *globalFlags, args []string, intensity bool) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	res, err := s.service.Rates(s.ctx, services.Query{})
	if err != nil {
		return fmt.Errorf("computing rates: %w", err)
	}
	if err := s.out.Rates(res.Data); err != nil {
		return err
	}

	if intensity {
		ratio, err := s.service.Intensity(s.ctx, services.Query{})
		if err != nil {
			return fmt.Errorf("computing intensity: %w", err)
		}
		if err := s.out.Intensity(ratio.Data); err != nil {
			return err
		}
	}

	s.out.Notes(res.DroppedKeys, res.Warnings)
	return nil
}

func runASFR(g *globalFlags, args []string, years []int, heatmap bool) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	if heatmap {
		res, err := s.service.Heatmaps(s.ctx, services.Query{})
		if err != nil {
			return fmt.Errorf("building heatmaps: %w", err)
		}
		for _, h := range res.Data {
			if err := s.out.Heatmap(h); err != nil {
				return err
			}
		}
		s.out.Notes(res.DroppedKeys, res.Warnings)
		return nil
	}

	res, err := s.service.ASFR(s.ctx, services.Query{})
	if err != nil {
		return fmt.Errorf("comparing ASFR: %w", err)
	}

	rows := res.Data
	if len(years) > 0 {
		keep := make(map[int]bool, len(years))
		for _, y := range years {
			keep[y] = true
		}
		rows = rows[:0:0]
		for _, c := range res.Data {
			if keep[c.Year] {
				rows = append(rows, c)
			}
		}
	}

	if err := s.out.ASFR(rows); err != nil {
		return err
	}
	s.out.Notes(res.DroppedKeys, res.Warnings)
	return nil
}

func runTFR(g *globalFlags, args []string, reconcile bool) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	if reconcile {
		res, err := s.service.Reconciliation(s.ctx, services.Query{})
		if err != nil {
			return fmt.Errorf("reconciling official TFR: %w", err)
		}
		if err := s.out.Reconciliation(res.Data.Rows, res.Data.ScaleFactors); err != nil {
			return err
		}
		s.out.Notes(res.DroppedKeys, res.Warnings)
		return nil
	}

	res, err := s.service.TFR(s.ctx, services.Query{})
	if err != nil {
		return fmt.Errorf("computing TFR: %w", err)
	}
	if err := s.out.TFR(res.Data); err != nil {
		return err
	}
	s.out.Notes(res.DroppedKeys, res.Warnings)
	return nil
}

func runKitagawa(g *globalFlags, args []string, years []int, dump bool) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	res, err := s.service.Kitagawa(s.ctx, services.Query{}, years)
	if err != nil {
		return fmt.Errorf("decomposing: %w", err)
	}

	if dump {
		spew.Dump(res.Data)
		return nil
	}

	if err := s.out.Kitagawa(res.Data); err != nil {
		return err
	}
	s.out.Notes(res.DroppedKeys, res.Warnings)
	return nil
}

func runCohorts(g *globalFlags, args []string, flags cohortFlags) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	bounds := s.cfg.Analysis.CohortBounds()
	if flags.min != nil {
		bounds.Min = flags.min
	}
	if flags.max != nil {
		bounds.Max = flags.max
	}

	res, err := s.service.Cohorts(s.ctx, services.Query{}, &bounds)
	if err != nil {
		return fmt.Errorf("building cohorts: %w", err)
	}
	if err := s.out.Cohorts(res.Data); err != nil {
		return err
	}
	s.out.Notes(res.DroppedKeys, res.Warnings)
	return nil
}

func runValidate(g *globalFlags, args []string) error {
	s, stop, err := openSession(g, args)
	if err != nil {
		return err
	}
	defer stop()

	reports, err := s.dir.Validate(s.ctx)
	if printErr := s.out.Validation(reports); printErr != nil {
		return printErr
	}
	if err != nil {
		return fmt.Errorf("input tables are not usable: %w", err)
	}
	return nil
}
