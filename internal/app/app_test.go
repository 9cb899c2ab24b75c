package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flood-frequency/internal/config"
	"flood-frequency/internal/observability"
	"flood-frequency/internal/series"
)

var annualPeaks = []float64{
	85.4, 142.7, 167.3, 98.6, 178.9, 156.2, 134.8, 201.5, 189.7, 145.3,
	176.8, 163.4, 198.2, 187.9, 159.6, 203.1, 178.4, 165.9, 192.7, 174.5,
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(t.TempDir(), "extremes.db")

	var out bytes.Buffer
	return &App{
		Config:  cfg,
		Logger:  zerolog.Nop(),
		Out:     &out,
		clock:   clockwork.NewFakeClock(),
		metrics: observability.NewMetricsForTesting(),
	}, &out
}

func writePeaksCSV(t *testing.T, stations ...string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("station_id,year,value\n")
	for _, st := range stations {
		for i, v := range annualPeaks {
			fmt.Fprintf(&b, "%s,%d,%.1f\n", st, 2001+i, v)
		}
	}
	b.WriteString("SHORT,2020,12.0\n")
	path := filepath.Join(t.TempDir(), "peaks.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestAnalyzeFromCSV(t *testing.T) {
	a, out := newTestApp(t)
	input := writePeaksCSV(t, "ST01")

	err := a.Analyze(context.Background(), AnalyzeOptions{
		Source: SourceOptions{Input: input, Stations: []string{"ST01"}},
	})
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, []any{"ST01"}, report["station_ids"])
	assert.Equal(t, "max", report["agg_func"])
	assert.Len(t, report["return_period_estimates"], 6)
	assert.NotEmpty(t, report["selected_distribution"])
	assert.NotContains(t, report, "uncertainty")
}

func TestAnalyzeTableWithBounds(t *testing.T) {
	a, out := newTestApp(t)
	input := writePeaksCSV(t, "ST01")
	withBounds := true

	err := a.Analyze(context.Background(), AnalyzeOptions{
		Source:        SourceOptions{Input: input, Stations: []string{"ST01"}},
		Distribution:  "gumbel",
		ReturnPeriods: []int{10, 100},
		Uncertainty:   &withBounds,
		Samples:       60,
		Format:        FormatTable,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Selected:")
	assert.Contains(t, text, "Gumbel")
	assert.Contains(t, text, "T (years)")
	lines := strings.Split(text, "\n")
	var rows []string
	for _, line := range lines {
		if strings.HasPrefix(line, "10 ") || strings.HasPrefix(line, "100 ") {
			rows = append(rows, line)
		}
	}
	require.Len(t, rows, 2)
	assert.NotContains(t, rows[1], " - ")
}

func TestAnalyzeOutputFile(t *testing.T) {
	a, out := newTestApp(t)
	input := writePeaksCSV(t, "ST01")
	target := filepath.Join(t.TempDir(), "reports", "st01.json")

	err := a.Analyze(context.Background(), AnalyzeOptions{
		Source: SourceOptions{Input: input, Stations: []string{"ST01"}},
		Output: target,
	})
	require.NoError(t, err)
	assert.Empty(t, out.String())

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestAnalyzeInsufficientData(t *testing.T) {
	a, _ := newTestApp(t)
	input := writePeaksCSV(t)

	err := a.Analyze(context.Background(), AnalyzeOptions{
		Source: SourceOptions{Input: input, Stations: []string{"SHORT"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient")
}

func TestImportAndAnalyzePerStation(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)
	input := writePeaksCSV(t, "ST01", "ST02")

	require.NoError(t, a.Import(ctx, ImportOptions{Input: input}))

	require.NoError(t, a.Stations(ctx, StationsOptions{Format: FormatJSON}))
	var stations []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &stations))
	require.Len(t, stations, 3)
	assert.Equal(t, "SHORT", stations[0]["station_id"])
	assert.EqualValues(t, 20, stations[1]["records"])
	out.Reset()

	require.NoError(t, a.Analyze(ctx, AnalyzeOptions{PerStation: true}))
	var entries []struct {
		StationID string `json:"station_id"`
		Error     string `json:"error"`
		Report    *struct {
			Quality struct {
				TotalRecords int `json:"total_records"`
			} `json:"quality"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "SHORT", entries[0].StationID)
	assert.Contains(t, entries[0].Error, "insufficient")
	assert.Nil(t, entries[0].Report)
	for _, entry := range entries[1:] {
		assert.Empty(t, entry.Error)
		require.NotNil(t, entry.Report)
		assert.Equal(t, 20, entry.Report.Quality.TotalRecords)
	}
}

func TestImportRejectsDuplicates(t *testing.T) {
	a, _ := newTestApp(t)
	path := filepath.Join(t.TempDir(), "dup.csv")
	require.NoError(t, os.WriteFile(path, []byte("year,value\n2000,1\n2000,2\n"), 0o644))

	err := a.Import(context.Background(), ImportOptions{Input: path, Station: "X", DryRun: true})
	assert.ErrorIs(t, err, series.ErrDuplicateYear)
}

func TestFitTable(t *testing.T) {
	a, out := newTestApp(t)
	input := writePeaksCSV(t, "ST01")

	err := a.Fit(context.Background(), FitOptions{
		Source:   SourceOptions{Input: input, Stations: []string{"ST01"}},
		Families: []string{"gumbel", "lognorm"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Rank"))
	assert.True(t, strings.HasPrefix(lines[1], "1 "))
	assert.Contains(t, out.String(), "loc=")
}

func TestCurveJSON(t *testing.T) {
	a, out := newTestApp(t)
	input := writePeaksCSV(t, "ST01")

	err := a.Curve(context.Background(), CurveOptions{
		Source:       SourceOptions{Input: input, Stations: []string{"ST01"}},
		Distribution: "gumbel",
		Points:       50,
	})
	require.NoError(t, err)

	var c struct {
		Distribution string           `json:"distribution"`
		Theoretical  []map[string]any `json:"theoretical"`
		Empirical    []map[string]any `json:"empirical"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &c))
	assert.Equal(t, "gumbel", c.Distribution)
	assert.Len(t, c.Theoretical, 50)
	assert.Len(t, c.Empirical, 20)
}

func TestExportCSVAndPNG(t *testing.T) {
	a, _ := newTestApp(t)
	input := writePeaksCSV(t, "ST01")
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "out", "curve.csv")
	pngPath := filepath.Join(dir, "out", "curve.png")

	err := a.Export(context.Background(), ExportOptions{
		Source:       SourceOptions{Input: input, Stations: []string{"ST01"}},
		Distribution: "gumbel",
		Points:       40,
		CSVPath:      csvPath,
		PNGPath:      pngPath,
		Decimals:     2,
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1+40+20)
	assert.Equal(t, "kind,distribution,exceedance_probability_percent,return_period,value,rank,year,station_id", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "theoretical,gumbel,"))
	assert.True(t, strings.HasPrefix(lines[41], "empirical,,"))
	assert.True(t, strings.HasSuffix(lines[41], ",1,2016,ST01"))

	png, err := os.ReadFile(pngPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestExportRequiresTarget(t *testing.T) {
	a, _ := newTestApp(t)
	assert.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func TestMetricsTextfileWritten(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.Metrics.TextfilePath = filepath.Join(t.TempDir(), "metrics", "floodfreq.prom")
	input := writePeaksCSV(t, "ST01")

	require.NoError(t, a.Analyze(context.Background(), AnalyzeOptions{
		Source: SourceOptions{Input: input, Stations: []string{"ST01"}},
	}))

	raw, err := os.ReadFile(a.Config.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `floodfreq_analyses_total{outcome="success"} 1`)
}

func TestNoSourceConfigured(t *testing.T) {
	a, _ := newTestApp(t)
	a.Config.Database.Path = ""
	err := a.Analyze(context.Background(), AnalyzeOptions{Source: SourceOptions{Stations: []string{"ST01"}}})
	assert.Error(t, err)
}
