package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"flood-frequency/internal/analysis"
	"flood-frequency/internal/config"
	"flood-frequency/internal/logging"
	"flood-frequency/internal/observability"
	"flood-frequency/internal/series"
	"flood-frequency/internal/storage"
	"flood-frequency/internal/uncertainty"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer

	clock   clockwork.Clock
	metrics *observability.Metrics
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config:  cfg,
		Logger:  logging.Component(logger, "app"),
		Out:     os.Stdout,
		clock:   clockwork.NewRealClock(),
		metrics: observability.NewMetrics(),
	}
}

// SourceOptions select the annual extremes to analyse. A CSV input takes
// precedence over the configured database.
type SourceOptions struct {
	Input    string
	Stations []string
	AggFunc  string
}

func (a *App) openStore(ctx context.Context) (storage.SeriesStore, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, nil
	}
	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close store")
		}
	}
	return store, closer, nil
}

func (a *App) aggFunc(override string) (series.AggFunc, error) {
	if override != "" {
		return series.ParseAggFunc(override)
	}
	return series.ParseAggFunc(a.Config.Analysis.AggFunc)
}

// reader resolves the series source. The returned closer is never nil.
// A lone station also names the rows of a CSV without a station_id column.
func (a *App) reader(ctx context.Context, src SourceOptions) (storage.SeriesReader, func(), error) {
	if src.Input != "" {
		defaultStation := "input"
		if len(src.Stations) == 1 {
			defaultStation = src.Stations[0]
		}
		rows, err := storage.ReadCSVFile(src.Input, defaultStation)
		if err != nil {
			return nil, func() {}, err
		}
		return rows, func() {}, nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, func() {}, err
	}
	if store == nil {
		return nil, func() {}, errors.New("no --input file given and database not configured")
	}
	return store, closeStore, nil
}

func (a *App) loadSeries(ctx context.Context, src SourceOptions) (series.Series, series.AggFunc, error) {
	agg, err := a.aggFunc(src.AggFunc)
	if err != nil {
		return series.Series{}, "", err
	}
	r, closeReader, err := a.reader(ctx, src)
	if err != nil {
		return series.Series{}, "", err
	}
	defer closeReader()

	s, err := storage.LoadSeries(ctx, r, storage.Query{StationIDs: src.Stations, AggFunc: agg})
	if err != nil {
		return series.Series{}, "", err
	}
	a.Logger.Debug().Strs("stations", s.Stations()).Int("records", s.Len()).Msg("series loaded")
	return s, agg, nil
}

func (a *App) engine() *analysis.Engine {
	return analysis.New(a.Logger, a.metrics, a.clock)
}

// analysisOptions maps configuration onto engine options.
func (a *App) analysisOptions(agg series.AggFunc) analysis.Options {
	cfg := a.Config.Analysis
	return analysis.Options{
		Distribution:   cfg.Distribution,
		AggFunc:        agg,
		ReturnPeriods:  append([]int(nil), cfg.ReturnPeriods...),
		UseUncertainty: cfg.UseUncertainty,
		Bootstrap: uncertainty.Options{
			Samples:          cfg.BootstrapSamples,
			Confidence:       cfg.ConfidenceLevel,
			Seed:             cfg.Seed,
			MaxAttemptFactor: cfg.MaxAttemptFactor,
			Workers:          cfg.Workers,
		},
		CurvePoints: cfg.CurvePoints,
	}
}

// flushMetrics writes the textfile when configured. Failures are logged only.
func (a *App) flushMetrics() {
	path := a.Config.Metrics.TextfilePath
	if path == "" || a.metrics == nil {
		return
	}
	if err := ensureDir(path); err != nil {
		a.Logger.Warn().Err(err).Str("path", path).Msg("metrics directory")
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.Logger.Warn().Err(err).Str("path", path).Msg("metrics textfile not written")
	}
}

// output returns the writer for a command result; path "" or "-" means Out.
func (a *App) output(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return a.Out, func() error { return nil }, nil
	}
	if err := ensureDir(path); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
