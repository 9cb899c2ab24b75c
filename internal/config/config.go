package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/logging"
	"flood-frequency/internal/series"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Export   ExportConfig   `mapstructure:"export"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and configures the series store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Table           string        `mapstructure:"table"`
}

// AnalysisConfig holds the frequency analysis defaults.
type AnalysisConfig struct {
	Distribution     string  `mapstructure:"distribution"`
	AggFunc          string  `mapstructure:"agg_func"`
	ReturnPeriods    []int   `mapstructure:"return_periods"`
	UseUncertainty   bool    `mapstructure:"use_uncertainty"`
	BootstrapSamples int     `mapstructure:"bootstrap_samples"`
	ConfidenceLevel  float64 `mapstructure:"confidence_level"`
	Seed             uint64  `mapstructure:"seed"`
	MaxAttemptFactor int     `mapstructure:"max_attempt_factor"`
	Workers          int     `mapstructure:"workers"`
	CurvePoints      int     `mapstructure:"curve_points"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	PNGWidth  int   `mapstructure:"png_width"`
	PNGHeight int   `mapstructure:"png_height"`
	Decimals  int32 `mapstructure:"decimals"`
}

// MetricsConfig controls the prometheus textfile written after each run.
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLOODFREQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "floodfreq")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.table", "annual_extremes")

	v.SetDefault("analysis.distribution", "auto")
	v.SetDefault("analysis.agg_func", "max")
	v.SetDefault("analysis.return_periods", []int{2, 5, 10, 25, 50, 100})
	v.SetDefault("analysis.use_uncertainty", false)
	v.SetDefault("analysis.bootstrap_samples", 200)
	v.SetDefault("analysis.confidence_level", 0.95)
	v.SetDefault("analysis.seed", 42)
	v.SetDefault("analysis.max_attempt_factor", 3)
	v.SetDefault("analysis.workers", 0)
	v.SetDefault("analysis.curve_points", 200)

	v.SetDefault("export.png_width", 1280)
	v.SetDefault("export.png_height", 720)
	v.SetDefault("export.decimals", 3)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.WeaklyTypedInput = true
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	a := c.Analysis
	if a.BootstrapSamples <= 0 {
		return fmt.Errorf("analysis.bootstrap_samples must be greater than zero")
	}
	if a.ConfidenceLevel <= 0 || a.ConfidenceLevel >= 1 {
		return fmt.Errorf("analysis.confidence_level must be in (0, 1)")
	}
	if a.MaxAttemptFactor < 1 {
		return fmt.Errorf("analysis.max_attempt_factor must be at least 1")
	}
	if a.Workers < 0 {
		return fmt.Errorf("analysis.workers cannot be negative")
	}
	if a.CurvePoints < 10 {
		return fmt.Errorf("analysis.curve_points must be at least 10")
	}
	if len(a.ReturnPeriods) == 0 {
		return fmt.Errorf("analysis.return_periods cannot be empty")
	}
	for _, t := range a.ReturnPeriods {
		if t < 1 {
			return fmt.Errorf("analysis.return_periods: %d is below one year", t)
		}
	}
	if _, err := series.ParseAggFunc(a.AggFunc); err != nil {
		return fmt.Errorf("analysis.agg_func: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(a.Distribution), "auto") {
		if _, err := distribution.ParseFamily(a.Distribution); err != nil {
			return fmt.Errorf("analysis.distribution: %w", err)
		}
	}
	switch strings.ToLower(c.Database.Driver) {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Export.PNGWidth <= 0 || c.Export.PNGHeight <= 0 {
		return fmt.Errorf("export.png_width and export.png_height must be greater than zero")
	}
	if c.Export.Decimals < 0 {
		return fmt.Errorf("export.decimals cannot be negative")
	}
	return nil
}

// ResolveDecimals returns either the CLI override or config default.
func (c *Config) ResolveDecimals(override int) int32 {
	if override >= 0 {
		return int32(override)
	}
	return c.Export.Decimals
}
