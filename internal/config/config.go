// Package config loads the settings shared by the server, the ingester, the
// migration tool and the offline CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fertility-platform/internal/analysis"
	"fertility-platform/internal/models"
	"fertility-platform/pkg/database"
	"fertility-platform/pkg/logging"
)

// ConfigPathEnv names the environment variable holding an optional YAML file.
const ConfigPathEnv = "FERTILITY_CONFIG"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Source   SourceConfig   `yaml:"source"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig locates the four input tables. File names are resolved
// against DataDir; the extension selects the reader (.csv, .xlsx, .xls).
type SourceConfig struct {
	DataDir          string              `yaml:"data_dir"`
	BirthsFile       string              `yaml:"births_file"`
	PopulationFile   string              `yaml:"population_file"`
	RatesFile        string              `yaml:"rates_file"`
	OfficialTFRFile  string              `yaml:"official_tfr_file"`
	PopulationFormat models.NumberFormat `yaml:"population_format"`
	NumberFormat     models.NumberFormat `yaml:"number_format"`
}

// AnalysisConfig holds the indicator parameters.
type AnalysisConfig struct {
	JoinPolicy    string `yaml:"join_policy"`
	NativeRoot    string `yaml:"native_root"`
	YearFrom      int    `yaml:"year_from"`
	YearTo        int    `yaml:"year_to"`
	KitagawaYears []int  `yaml:"kitagawa_years"`
	SummaryYears  []int  `yaml:"summary_years"`
	CohortMin     *int   `yaml:"cohort_min"`
	CohortMax     *int   `yaml:"cohort_max"`
}

// Policy returns the parsed join policy. Validate has already rejected
// unknown values.
func (a AnalysisConfig) Policy() analysis.JoinPolicy {
	p, _ := analysis.ParseJoinPolicy(a.JoinPolicy)
	return p
}

// CohortBounds returns the configured cohort filter.
func (a AnalysisConfig) CohortBounds() analysis.CohortBounds {
	return analysis.CohortBounds{Min: a.CohortMin, Max: a.CohortMax}
}

// Postgres returns the connection settings for pkg/database.
func (d DatabaseConfig) Postgres() *database.Config {
	return &database.Config{
		Host:            d.Host,
		Port:            d.Port,
		User:            d.User,
		Password:        d.Password,
		Database:        d.Database,
		SSLMode:         d.SSLMode,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// LogLevel returns the parsed logging level.
func (l LoggingConfig) LogLevel() logging.LogLevel {
	lvl, _ := logging.ParseLevel(l.Level)
	return lvl
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "fertility",
			Password:        "fertility",
			Database:        "fertility",
			SSLMode:         "disable",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Source: SourceConfig{
			DataDir:          "data",
			BirthsFile:       "births_by_nationality.csv",
			PopulationFile:   "women_15_49_by_nationality.csv",
			RatesFile:        "fertility_rates_by_age_and_nationality.csv",
			OfficialTFRFile:  "tfr_by_nationality.csv",
			PopulationFormat: models.SpanishNumbers,
			NumberFormat:     models.PlainNumbers,
		},
		Analysis: AnalysisConfig{
			JoinPolicy:    "drop",
			NativeRoot:    analysis.DefaultNativeRoot,
			YearFrom:      2002,
			YearTo:        2024,
			KitagawaYears: []int{2010, 2020},
			SummaryYears:  []int{2002, 2010, 2015, 2020, 2024},
		},
	}
}

// LoadConfig builds the configuration from defaults, the YAML file named by
// FERTILITY_CONFIG when set, and environment overrides, in that order.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv(ConfigPathEnv))
}

// Load is LoadConfig with an explicit file path. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	years := func(key string, dst *[]int) {
		if v, ok := lookup(key); ok && v != "" {
			parsed, err := parseYearList(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = parsed
		}
	}

	str("SERVER_HOST", &c.Server.Host)
	num("SERVER_PORT", &c.Server.Port)
	dur("SERVER_READ_TIMEOUT", &c.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout)
	dur("SERVER_IDLE_TIMEOUT", &c.Server.IdleTimeout)

	str("DB_HOST", &c.Database.Host)
	num("DB_PORT", &c.Database.Port)
	str("DB_USER", &c.Database.User)
	str("DB_PASSWORD", &c.Database.Password)
	str("DB_NAME", &c.Database.Database)
	str("DB_SSLMODE", &c.Database.SSLMode)
	num("DB_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	num("DB_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	dur("DB_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetime)
	dur("DB_CONN_MAX_IDLE_TIME", &c.Database.ConnMaxIdleTime)

	str("LOG_LEVEL", &c.Logging.Level)

	str("DATA_DIR", &c.Source.DataDir)
	str("BIRTHS_FILE", &c.Source.BirthsFile)
	str("POPULATION_FILE", &c.Source.PopulationFile)
	str("RATES_FILE", &c.Source.RatesFile)
	str("OFFICIAL_TFR_FILE", &c.Source.OfficialTFRFile)
	if v, ok := lookup("POPULATION_THOUSANDS_SEPARATOR"); ok {
		c.Source.PopulationFormat.Thousands = v
	}

	str("JOIN_POLICY", &c.Analysis.JoinPolicy)
	str("NATIVE_ROOT", &c.Analysis.NativeRoot)
	num("YEAR_FROM", &c.Analysis.YearFrom)
	num("YEAR_TO", &c.Analysis.YearTo)
	years("KITAGAWA_YEARS", &c.Analysis.KitagawaYears)
	years("SUMMARY_YEARS", &c.Analysis.SummaryYears)

	return errors.Join(errs...)
}

func parseYearList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", part)
		}
		out = append(out, y)
	}
	return out, nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("database port %d out of range", c.Database.Port))
	}
	if c.Database.MaxOpenConns < 1 {
		errs = append(errs, errors.New("database max_open_conns must be at least 1"))
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := analysis.ParseJoinPolicy(c.Analysis.JoinPolicy); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.YearFrom > c.Analysis.YearTo {
		errs = append(errs, fmt.Errorf("year_from %d is after year_to %d", c.Analysis.YearFrom, c.Analysis.YearTo))
	}
	if c.Analysis.CohortMin != nil && c.Analysis.CohortMax != nil && *c.Analysis.CohortMin > *c.Analysis.CohortMax {
		errs = append(errs, fmt.Errorf("cohort_min %d is after cohort_max %d", *c.Analysis.CohortMin, *c.Analysis.CohortMax))
	}
	for name, f := range map[string]models.NumberFormat{
		"population_format": c.Source.PopulationFormat,
		"number_format":     c.Source.NumberFormat,
	} {
		if f.Thousands != "" && f.Thousands == f.Decimal {
			errs = append(errs, fmt.Errorf("%s uses %q as both thousands and decimal separator", name, f.Thousands))
		}
	}
	for name, file := range map[string]string{
		"births_file":     c.Source.BirthsFile,
		"population_file": c.Source.PopulationFile,
		"rates_file":      c.Source.RatesFile,
	} {
		if file == "" {
			errs = append(errs, fmt.Errorf("source %s is required", name))
		}
	}

	return errors.Join(errs...)
}
