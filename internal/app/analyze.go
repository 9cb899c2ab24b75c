package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"flood-frequency/internal/analysis"
	"flood-frequency/internal/distribution"
	"flood-frequency/internal/logging"
	"flood-frequency/internal/series"
	"flood-frequency/internal/storage"
)

// Output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// AnalyzeOptions configure the analyze command. Zero values fall back to
// configuration.
type AnalyzeOptions struct {
	Source        SourceOptions
	Distribution  string
	ReturnPeriods []int
	Uncertainty   *bool
	Samples       int
	Format        string
	Output        string
	// PerStation analyses every station separately instead of pooling them.
	PerStation bool
}

// Analyze runs the full frequency analysis and writes the report.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	defer a.flushMetrics()

	if opts.PerStation {
		return a.analyzeStations(ctx, opts)
	}

	s, agg, err := a.loadSeries(ctx, opts.Source)
	if err != nil {
		return err
	}
	report, err := a.engine().Analyze(ctx, s, a.mergeOptions(agg, opts))
	if err != nil {
		return err
	}

	w, closeOut, err := a.output(opts.Output)
	if err != nil {
		return err
	}
	if strings.EqualFold(opts.Format, FormatTable) {
		err = writeReportTable(w, report, a.Config.Export.Decimals)
	} else {
		err = writeJSON(w, report)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}

// stationReport is one entry of a per-station run.
type stationReport struct {
	StationID string           `json:"station_id"`
	Report    *analysis.Report `json:"report,omitempty"`
	Error     string           `json:"error,omitempty"`
}

func (a *App) analyzeStations(ctx context.Context, opts AnalyzeOptions) error {
	agg, err := a.aggFunc(opts.Source.AggFunc)
	if err != nil {
		return err
	}
	r, closeReader, err := a.reader(ctx, opts.Source)
	if err != nil {
		return err
	}
	defer closeReader()

	stations, err := r.ListStations(ctx, agg)
	if err != nil {
		return err
	}
	wanted := make(map[string]bool, len(opts.Source.Stations))
	for _, id := range opts.Source.Stations {
		wanted[id] = true
	}

	batch := make([]series.Series, 0, len(stations))
	var loadFailures []stationReport
	for _, st := range stations {
		if len(wanted) > 0 && !wanted[st.ID] {
			continue
		}
		s, err := storage.LoadSeries(ctx, r, storage.Query{StationIDs: []string{st.ID}, AggFunc: agg})
		if err != nil {
			loadFailures = append(loadFailures, stationReport{StationID: st.ID, Error: err.Error()})
			continue
		}
		batch = append(batch, s)
	}
	if len(batch) == 0 && len(loadFailures) == 0 {
		return fmt.Errorf("%w: no stations to analyse", storage.ErrNoRecords)
	}

	results := a.engine().AnalyzeBatch(ctx, batch, a.mergeOptions(agg, opts), a.Config.Analysis.Workers)
	out := make([]stationReport, 0, len(results)+len(loadFailures))
	failed := len(loadFailures)
	for _, res := range results {
		entry := stationReport{StationID: res.StationID}
		if res.Err != nil {
			failed++
			entry.Error = res.Err.Error()
			logging.Stations(a.Logger, res.StationID).Warn().Err(res.Err).Msg("station analysis failed")
		} else {
			report := res.Report
			entry.Report = &report
		}
		out = append(out, entry)
	}
	out = append(out, loadFailures...)
	a.Logger.Info().Int("stations", len(out)).Int("failed", failed).Msg("per-station analysis complete")

	w, closeOut, err := a.output(opts.Output)
	if err != nil {
		return err
	}
	if strings.EqualFold(opts.Format, FormatTable) {
		err = writeStationsSummary(w, out, a.Config.Export.Decimals)
	} else {
		err = writeJSON(w, out)
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	if err == nil && failed == len(out) {
		err = errors.New("every station analysis failed")
	}
	return err
}

func (a *App) mergeOptions(agg series.AggFunc, opts AnalyzeOptions) analysis.Options {
	merged := a.analysisOptions(agg)
	if opts.Distribution != "" {
		merged.Distribution = opts.Distribution
	}
	if len(opts.ReturnPeriods) > 0 {
		merged.ReturnPeriods = append([]int(nil), opts.ReturnPeriods...)
	}
	if opts.Uncertainty != nil {
		merged.UseUncertainty = *opts.Uncertainty
	}
	if opts.Samples > 0 {
		merged.Bootstrap.Samples = opts.Samples
	}
	return merged
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeReportTable(w io.Writer, report analysis.Report, places int32) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Stations:\t%s\n", strings.Join(report.StationIDs, ","))
	fmt.Fprintf(tw, "Records:\t%d (%d-year span, grade %s, score %s)\n",
		report.Quality.TotalRecords, report.Quality.YearsSpan, report.Quality.Grade, formatFloat(report.Quality.QualityScore, 0))
	fmt.Fprintf(tw, "Best fit:\t%s (AIC %s)\n", report.BestDistribution.Family, formatFloat(report.BestDistribution.AIC, places))
	fmt.Fprintf(tw, "Selected:\t%s\n", report.SelectedDistribution.DisplayName())
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "T (years)\tAEP\tQ\tLower\tUpper")
	for _, est := range report.ReturnPeriodEstimates {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			est.ReturnPeriod,
			formatFloat(est.ExceedanceProbability, 4),
			formatFloat(est.Q, places),
			formatOptional(est.Lower, places),
			formatOptional(est.Upper, places),
		)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintln(tw)
		for _, warning := range report.Warnings {
			fmt.Fprintf(tw, "warning:\t%s\n", sanitizeInline(warning))
		}
	}
	return tw.Flush()
}

func writeStationsSummary(w io.Writer, entries []stationReport, places int32) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Station\tRecords\tGrade\tSelected\tQ100\tError")
	for _, entry := range entries {
		if entry.Report == nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t-\t%s\n", entry.StationID, sanitizeInline(entry.Error))
			continue
		}
		q100 := "-"
		if est, ok := entry.Report.Estimate(100); ok {
			q100 = formatFloat(est.Q, places)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t\n",
			entry.StationID,
			entry.Report.Quality.TotalRecords,
			entry.Report.Quality.Grade,
			entry.Report.SelectedDistribution,
			q100,
		)
	}
	return tw.Flush()
}

// formatFloat renders v with fixed decimals; non-finite values print as "-".
func formatFloat(v float64, places int32) string {
	if distribution.Finite(v) == nil {
		return "-"
	}
	return formatDecimal(decimal.NewFromFloat(v), places)
}

func formatOptional(v *float64, places int32) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v, places)
}
