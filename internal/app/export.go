package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"flood-frequency/internal/curve"
)

// ExportOptions hold parameters for exporting a frequency curve.
type ExportOptions struct {
	Source       SourceOptions
	Distribution string
	Points       int
	PNGPath      string
	CSVPath      string
	// Decimals overrides export.decimals when zero or positive.
	Decimals int
}

// Export renders the frequency curve as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	defer a.flushMetrics()

	report, err := a.curveReport(ctx, opts.Source, opts.Distribution, opts.Points)
	if err != nil {
		return err
	}
	c := report.FrequencyCurve
	a.Logger.Info().
		Str("distribution", string(c.Distribution)).
		Int("theoretical", len(c.Theoretical)).
		Int("empirical", len(c.Empirical)).
		Msg("exporting frequency curve")

	if opts.CSVPath != "" {
		if err := writeCurveCSV(opts.CSVPath, c, a.Config.ResolveDecimals(opts.Decimals)); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeCurvePNG(opts.PNGPath, c, a.Config.Export.PNGWidth, a.Config.Export.PNGHeight); err != nil {
			return err
		}
	}

	return nil
}

func writeCurveCSV(path string, c curve.Curve, places int32) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"kind", "distribution", "exceedance_probability_percent", "return_period", "value", "rank", "year", "station_id"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, p := range c.Theoretical {
		record := []string{
			"theoretical",
			string(c.Distribution),
			formatDecimal(decimal.NewFromFloat(p.ExceedancePercent), 4),
			formatDecimal(decimal.NewFromFloat(100/p.ExceedancePercent), 4),
			formatDecimal(decimal.NewFromFloat(p.Value), places),
			"", "", "",
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	for _, p := range c.Empirical {
		record := []string{
			"empirical",
			"",
			formatDecimal(decimal.NewFromFloat(p.ExceedancePercent), 4),
			formatDecimal(decimal.NewFromFloat(100/p.ExceedancePercent), 4),
			formatDecimal(decimal.NewFromFloat(p.Value), places),
			strconv.Itoa(p.Rank),
			strconv.Itoa(p.Year),
			p.StationID,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeCurvePNG(path string, c curve.Curve, width, height int) error {
	if len(c.Theoretical) < 2 {
		return fmt.Errorf("curve has %d theoretical points; nothing to plot", len(c.Theoretical))
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	tx := make([]float64, len(c.Theoretical))
	ty := make([]float64, len(c.Theoretical))
	for i, p := range c.Theoretical {
		tx[i] = p.ExceedancePercent
		ty[i] = p.Value
	}
	ex := make([]float64, len(c.Empirical))
	ey := make([]float64, len(c.Empirical))
	for i, p := range c.Empirical {
		ex[i] = p.ExceedancePercent
		ey[i] = p.Value
	}

	percentFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.1f")
	}
	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Title:  c.Distribution.DisplayName() + " frequency curve",
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:           "Exceedance probability (%)",
			ValueFormatter: percentFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Annual extreme",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    c.Distribution.DisplayName(),
				XValues: tx,
				YValues: ty,
			},
			chart.ContinuousSeries{
				Name:    "Observed (Weibull)",
				XValues: ex,
				YValues: ey,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
				},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
