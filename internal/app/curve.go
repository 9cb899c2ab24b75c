package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"flood-frequency/internal/analysis"
	"flood-frequency/internal/curve"
)

// CurveOptions configure the curve command.
type CurveOptions struct {
	Source       SourceOptions
	Distribution string
	Points       int
	Format       string
	Output       string
}

// Curve prints the fitted frequency curve and the empirical points.
func (a *App) Curve(ctx context.Context, opts CurveOptions) error {
	defer a.flushMetrics()

	report, err := a.curveReport(ctx, opts.Source, opts.Distribution, opts.Points)
	if err != nil {
		return err
	}

	w, closeOut, err := a.output(opts.Output)
	if err != nil {
		return err
	}
	if strings.EqualFold(opts.Format, FormatTable) {
		err = writeCurveTable(w, report.FrequencyCurve, a.Config.Export.Decimals)
	} else {
		err = writeJSON(w, report.FrequencyCurve)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}

// curveReport runs the analysis without bootstrap bounds.
func (a *App) curveReport(ctx context.Context, src SourceOptions, family string, points int) (analysis.Report, error) {
	s, agg, err := a.loadSeries(ctx, src)
	if err != nil {
		return analysis.Report{}, err
	}
	opts := a.analysisOptions(agg)
	opts.UseUncertainty = false
	if family != "" {
		opts.Distribution = family
	}
	if points > 0 {
		opts.CurvePoints = points
	}
	return a.engine().Analyze(ctx, s, opts)
}

func writeCurveTable(w io.Writer, c curve.Curve, places int32) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Distribution:\t%s\n\n", c.Distribution.DisplayName())
	fmt.Fprintln(tw, "Exceedance %\tT (years)\tQ")
	for _, p := range c.Theoretical {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			formatFloat(p.ExceedancePercent, 3),
			formatFloat(100/p.ExceedancePercent, 2),
			formatFloat(p.Value, places),
		)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Rank\tYear\tExceedance %\tValue")
	for _, p := range c.Empirical {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", p.Rank, p.Year, formatFloat(p.ExceedancePercent, 2), formatFloat(p.Value, places))
	}
	return tw.Flush()
}
