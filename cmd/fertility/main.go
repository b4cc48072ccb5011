package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	lang       string
	policy     string
	from       int
	to         int
	verbose    bool
}

func main() {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:          "fertility",
		Short:        "Fertility indicators by nationality from a directory of input tables",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", os.Getenv("FERTILITY_CONFIG"), "YAML configuration file")
	pf.StringVar(&g.lang, "lang", "en", "Number formatting locale (BCP 47 tag, e.g. en or es)")
	pf.StringVar(&g.policy, "policy", "", "Join policy for unmatched keys: drop or fail (default: configured)")
	pf.IntVar(&g.from, "from", 0, "First year (default: configured year_from)")
	pf.IntVar(&g.to, "to", 0, "Last year (default: configured year_to)")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	rootCmd.AddCommand(summaryCmd(&g))
	rootCmd.AddCommand(ratesCmd(&g))
	rootCmd.AddCommand(asfrCmd(&g))
	rootCmd.AddCommand(tfrCmd(&g))
	rootCmd.AddCommand(kitagawaCmd(&g))
	rootCmd.AddCommand(cohortsCmd(&g))
	rootCmd.AddCommand(validateCmd(&g))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func summaryCmd(g *globalFlags) *cobra.Command {
	var (
		years []int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "summary [data-dir]",
		Short: "Crude rate, TFR and mean age at childbearing by year and nationality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSummary(g, args, years, all)
		},
	}

	cmd.Flags().IntSliceVarP(&years, "year", "y", nil, "Years to show (default: configured summary_years)")
	cmd.Flags().BoolVar(&all, "all", false, "Show every year in range")
	return cmd
}

func ratesCmd(g *globalFlags) *cobra.Command {
	var intensity bool

	cmd := &cobra.Command{
		Use:   "rates [data-dir]",
		Short: "Births per 1,000 women aged 15-49 with 3-year centred means",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRates(g, args, intensity)
		},
	}

	cmd.Flags().BoolVarP(&intensity, "intensity", "i", false, "Also print the foreign / native intensity ratio")
	return cmd
}

func asfrCmd(g *globalFlags) *cobra.Command {
	var (
		years   []int
		heatmap bool
	)

	cmd := &cobra.Command{
		Use:   "asfr [data-dir]",
		Short: "Compare age-specific fertility rates of natives and foreigners",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runASFR(g, args, years, heatmap)
		},
	}

	cmd.Flags().IntSliceVarP(&years, "year", "y", nil, "Years to compare (default: all)")
	cmd.Flags().BoolVar(&heatmap, "heatmap", false, "Print the age by year matrix of each class instead")
	return cmd
}

func tfrCmd(g *globalFlags) *cobra.Command {
	var reconcile bool

	cmd := &cobra.Command{
		Use:   "tfr [data-dir]",
		Short: "Total fertility rate by year and nationality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTFR(g, args, reconcile)
		},
	}

	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "Set the computed TFR against the official series")
	return cmd
}

func kitagawaCmd(g *globalFlags) *cobra.Command {
	var (
		years []int
		dump  bool
	)

	cmd := &cobra.Command{
		Use:   "kitagawa [data-dir]",
		Short: "Split the foreign - native crude rate gap into structure and rate effects",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runKitagawa(g, args, years, dump)
		},
	}

	cmd.Flags().IntSliceVarP(&years, "year", "y", nil, "Years to decompose (default: configured kitagawa_years)")
	cmd.Flags().BoolVar(&dump, "dump", false, "Dump the raw decomposition structs")
	return cmd
}

func cohortsCmd(g *globalFlags) *cobra.Command {
	var minCohort, maxCohort int

	cmd := &cobra.Command{
		Use:   "cohorts [data-dir]",
		Short: "Mean fertility rate per pseudo-cohort, age and nationality",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bounds cohortFlags
			if cmd.Flags().Changed("min") {
				bounds.min = &minCohort
			}
			if cmd.Flags().Changed("max") {
				bounds.max = &maxCohort
			}
			return runCohorts(g, args, bounds)
		},
	}

	cmd.Flags().IntVar(&minCohort, "min", 0, "Earliest cohort year")
	cmd.Flags().IntVar(&maxCohort, "max", 0, "Latest cohort year")
	return cmd
}

func validateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [data-dir]",
		Short: "Check the input tables and report loaded and skipped rows",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(g, args)
		},
	}
}
