package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "floodfreq", cfg.App.Name)
	assert.Equal(t, "auto", cfg.Analysis.Distribution)
	assert.Equal(t, "max", cfg.Analysis.AggFunc)
	assert.Equal(t, []int{2, 5, 10, 25, 50, 100}, cfg.Analysis.ReturnPeriods)
	assert.Equal(t, 200, cfg.Analysis.BootstrapSamples)
	assert.InDelta(t, 0.95, cfg.Analysis.ConfidenceLevel, 1e-12)
	assert.Equal(t, uint64(42), cfg.Analysis.Seed)
	assert.Equal(t, 3, cfg.Analysis.MaxAttemptFactor)
	assert.Equal(t, 200, cfg.Analysis.CurvePoints)
	assert.Equal(t, "annual_extremes", cfg.Database.Table)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, int32(3), cfg.Export.Decimals)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floodfreq.yaml")
	yaml := `
database:
  driver: sqlite
  path: /tmp/extremes.db
analysis:
  distribution: gev
  return_periods: [10, 100, 500]
  use_uncertainty: true
  bootstrap_samples: 500
metrics:
  textfile_path: /tmp/floodfreq.prom
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("FLOODFREQ_ANALYSIS_CONFIDENCE_LEVEL", "0.9")
	t.Setenv("FLOODFREQ_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/extremes.db", cfg.Database.Path)
	assert.Equal(t, "gev", cfg.Analysis.Distribution)
	assert.Equal(t, []int{10, 100, 500}, cfg.Analysis.ReturnPeriods)
	assert.True(t, cfg.Analysis.UseUncertainty)
	assert.Equal(t, 500, cfg.Analysis.BootstrapSamples)
	assert.InDelta(t, 0.9, cfg.Analysis.ConfidenceLevel, 1e-12)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/floodfreq.prom", cfg.Metrics.TextfilePath)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: "postgres"},
			Analysis: AnalysisConfig{
				Distribution:     "auto",
				AggFunc:          "max",
				ReturnPeriods:    []int{2, 100},
				BootstrapSamples: 200,
				ConfidenceLevel:  0.95,
				MaxAttemptFactor: 3,
				CurvePoints:      200,
			},
			Export: ExportConfig{PNGWidth: 640, PNGHeight: 480, Decimals: 2},
		}
	}

	base := valid()
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"zero samples":       func(c *Config) { c.Analysis.BootstrapSamples = 0 },
		"confidence one":     func(c *Config) { c.Analysis.ConfidenceLevel = 1 },
		"confidence zero":    func(c *Config) { c.Analysis.ConfidenceLevel = 0 },
		"return period zero": func(c *Config) { c.Analysis.ReturnPeriods = []int{0} },
		"no return periods":  func(c *Config) { c.Analysis.ReturnPeriods = nil },
		"unknown agg":        func(c *Config) { c.Analysis.AggFunc = "median" },
		"unknown family":     func(c *Config) { c.Analysis.Distribution = "weibull" },
		"few curve points":   func(c *Config) { c.Analysis.CurvePoints = 5 },
		"attempt factor":     func(c *Config) { c.Analysis.MaxAttemptFactor = 0 },
		"negative workers":   func(c *Config) { c.Analysis.Workers = -1 },
		"bad driver":         func(c *Config) { c.Database.Driver = "mysql" },
		"png size":           func(c *Config) { c.Export.PNGWidth = 0 },
		"log level":          func(c *Config) { c.Logging.Level = "verbose" },
		"log format":         func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveDecimals(t *testing.T) {
	cfg := Config{Export: ExportConfig{Decimals: 3}}
	assert.Equal(t, int32(3), cfg.ResolveDecimals(-1))
	assert.Equal(t, int32(0), cfg.ResolveDecimals(0))
	assert.Equal(t, int32(5), cfg.ResolveDecimals(5))
}
