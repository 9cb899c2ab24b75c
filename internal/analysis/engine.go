// Package analysis composes validation, fitting, selection, curves, design
// values and bootstrap bounds into one report.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"flood-frequency/internal/curve"
	"flood-frequency/internal/distribution"
	"flood-frequency/internal/logging"
	"flood-frequency/internal/observability"
	"flood-frequency/internal/plotting"
	"flood-frequency/internal/quality"
	"flood-frequency/internal/returnperiod"
	"flood-frequency/internal/selection"
	"flood-frequency/internal/series"
	"flood-frequency/internal/uncertainty"
)

// Auto asks the engine to pick the distribution by AIC.
const Auto = "auto"

// Options configures one analysis run.
type Options struct {
	Distribution   string
	AggFunc        series.AggFunc
	ReturnPeriods  []int
	UseUncertainty bool
	Bootstrap      uncertainty.Options
	CurvePoints    int
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Distribution:  Auto,
		AggFunc:       series.AggMax,
		ReturnPeriods: append([]int(nil), returnperiod.Standard...),
		Bootstrap: uncertainty.Options{
			Samples:          uncertainty.DefaultSamples,
			Confidence:       uncertainty.DefaultConfidence,
			Seed:             42,
			MaxAttemptFactor: uncertainty.DefaultMaxAttemptFactor,
		},
		CurvePoints: curve.DefaultPoints,
	}
}

// Engine runs frequency analyses. It holds no per-series state and is safe
// for concurrent use.
type Engine struct {
	logger  zerolog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

// New constructs an Engine. metrics and clock may be nil.
func New(logger zerolog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		logger:  logging.Component(logger, "analysis"),
		metrics: metrics,
		clock:   clock,
	}
}

// Analyze runs the full pipeline on s. Validation failures, an unusable
// configuration and the failure of every candidate fit are fatal; individual
// fit failures and bootstrap failures only degrade the report.
func (e *Engine) Analyze(ctx context.Context, s series.Series, opts Options) (Report, error) {
	start := e.clock.Now()
	report, err := e.analyze(ctx, s, opts)
	if e.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		e.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
		e.metrics.AnalysisDuration.Observe(e.clock.Since(start).Seconds())
	}
	return report, err
}

func (e *Engine) analyze(ctx context.Context, s series.Series, opts Options) (Report, error) {
	requested, err := requestedFamily(opts.Distribution)
	if err != nil {
		return Report{}, err
	}
	periods := opts.ReturnPeriods
	if len(periods) == 0 {
		periods = returnperiod.Standard
	}
	for _, t := range periods {
		if err := returnperiod.Validate(t); err != nil {
			return Report{}, err
		}
	}
	aggFunc := opts.AggFunc
	if aggFunc == "" {
		aggFunc = series.AggMax
	}

	logger := logging.Stations(e.logger, s.Stations()...).With().Int("records", s.Len()).Logger()

	grade, err := quality.Validate(s)
	if err != nil {
		return Report{}, fmt.Errorf("validate series: %w", err)
	}
	if e.metrics != nil {
		e.metrics.SeriesLength.Observe(float64(s.Len()))
	}
	assessment := quality.Assess(s)

	report := Report{
		StationIDs: s.Stations(),
		AggFunc:    aggFunc,
		Quality:    grade,
		Assessment: assessment,
		Warnings:   append([]string{}, assessment.Warnings...),
	}
	if grade.LowConfidence() {
		logger.Warn().Str("grade", string(grade.Grade)).Msg("short record, results carry low confidence")
		report.Warnings = append(report.Warnings, fmt.Sprintf("quality grade %s: fewer than 10 years of record", grade.Grade))
	}

	values := s.Values()
	report.DistributionFits = distribution.FitAll(values, nil)
	for _, fit := range report.DistributionFits {
		e.recordFit(logger, fit)
	}

	best, err := selection.SelectBest(report.DistributionFits)
	if err != nil {
		return Report{}, err
	}
	report.BestDistribution = best
	report.Ranking = selection.Names(selection.RankAll(report.DistributionFits))

	selected := best
	if requested != "" && requested != best.Family {
		selected = findFit(report.DistributionFits, requested)
	}
	report.SelectedDistribution = selected.Family
	if !selected.OK() {
		// The requested family stays selected; only the empirical curve is produced.
		logger.Warn().Str("requested", string(requested)).Str("fit_error", selected.FitError).Msg("requested distribution failed to fit")
		report.Warnings = append(report.Warnings, fmt.Sprintf("requested distribution %s could not be fitted (%s); no curve or estimates produced, best fit is %s", requested, selected.FitError, best.Family))
		report.FrequencyCurve = curve.Curve{
			Distribution: selected.Family,
			Theoretical:  []curve.TheoreticalPoint{},
			Empirical:    plotting.EmpiricalPoints(s),
		}
		report.FrequencyTable = []curve.DesignValue{}
		report.Diagnostics = plotting.Diagnostics{Distribution: selected.Family, QQ: []plotting.QQPoint{}, PP: []plotting.PPPoint{}}
		report.ReturnPeriodEstimates = []returnperiod.Estimate{}
		return report, nil
	}
	if e.metrics != nil {
		e.metrics.SelectedTotal.WithLabelValues(string(selected.Family)).Inc()
	}
	dist := selected.Distribution()

	points := opts.CurvePoints
	if points <= 0 {
		points = curve.DefaultPoints
	}
	report.FrequencyCurve = curve.Generate(s, dist, points)
	report.FrequencyTable = curve.FrequencyTable(dist)
	report.Diagnostics = plotting.Diagnose(values, dist)

	report.ReturnPeriodEstimates, err = returnperiod.EstimateAll(dist, periods)
	if err != nil {
		return Report{}, err
	}
	if p := selected.PValue; p != nil && *p < 0.05 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s fit rejected by KS test at 5%% (p=%.3f)", selected.Family, *p))
	}
	report.Warnings = append(report.Warnings, extrapolationWarnings(values, report.ReturnPeriodEstimates)...)

	if opts.UseUncertainty {
		report.Uncertainty = e.bounds(ctx, logger, values, selected.Family, &report, opts.Bootstrap)
	}

	logger.Info().
		Str("selected", string(selected.Family)).
		Float64("aic", selected.AIC).
		Str("grade", string(grade.Grade)).
		Msg("analysis complete")
	return report, nil
}

// bounds attaches bootstrap intervals to the report estimates. A failed or
// cancelled bootstrap leaves every bound nil and records the reason.
func (e *Engine) bounds(ctx context.Context, logger zerolog.Logger, values []float64, family distribution.Family, report *Report, opts uncertainty.Options) *UncertaintyInfo {
	var periods []int
	for _, est := range report.ReturnPeriodEstimates {
		if est.ReturnPeriod > 1 {
			periods = append(periods, est.ReturnPeriod)
		}
	}

	start := e.clock.Now()
	res, err := uncertainty.Bootstrap(ctx, values, family, periods, opts)

	info := &UncertaintyInfo{
		Method:     "bootstrap",
		Samples:    res.Samples,
		Attempts:   res.Attempts,
		Confidence: opts.Confidence,
		Seed:       opts.Seed,
	}
	var short *uncertainty.InsufficientResamplesError
	if errors.As(err, &short) {
		info.Samples, info.Attempts = short.Successes, short.Attempts
	}
	if e.metrics != nil {
		e.metrics.BootstrapDuration.Observe(e.clock.Since(start).Seconds())
		e.metrics.BootstrapAttempts.Add(float64(info.Attempts))
	}
	if info.Confidence == 0 {
		info.Confidence = uncertainty.DefaultConfidence
	}
	if err != nil {
		logger.Warn().Err(err).Msg("bootstrap failed, confidence bounds omitted")
		info.Error = err.Error()
		report.Warnings = append(report.Warnings, "confidence bounds unavailable: "+err.Error())
		if e.metrics != nil {
			e.metrics.BootstrapDegraded.Inc()
		}
		return info
	}
	info.Confidence = res.Confidence

	for i := range report.ReturnPeriodEstimates {
		est := &report.ReturnPeriodEstimates[i]
		if iv, ok := res.Interval(est.ReturnPeriod); ok {
			lower, upper := iv.Lower, iv.Upper
			est.Lower, est.Upper = &lower, &upper
		}
	}
	logger.Debug().Int("samples", res.Samples).Int("attempts", res.Attempts).Msg("bootstrap complete")
	return info
}

func (e *Engine) recordFit(logger zerolog.Logger, fit distribution.FitResult) {
	outcome := "success"
	if !fit.OK() {
		outcome = "error"
		logger.Warn().Str("family", string(fit.Family)).Str("error", fit.FitError).Msg("distribution fit failed")
	}
	if e.metrics != nil {
		e.metrics.FitsTotal.WithLabelValues(string(fit.Family), outcome).Inc()
	}
}

func requestedFamily(name string) (distribution.Family, error) {
	if name == "" || strings.EqualFold(strings.TrimSpace(name), Auto) {
		return "", nil
	}
	return distribution.ParseFamily(name)
}

func findFit(fits []distribution.FitResult, f distribution.Family) distribution.FitResult {
	for _, fit := range fits {
		if fit.Family == f {
			return fit
		}
	}
	return distribution.FitResult{Family: f, FitError: "not evaluated"}
}

// extrapolationWarnings flags return periods far beyond the record length and
// design values implausibly large relative to the observed maximum.
func extrapolationWarnings(values []float64, estimates []returnperiod.Estimate) []string {
	maxObserved := math.Inf(-1)
	for _, v := range values {
		maxObserved = math.Max(maxObserved, v)
	}
	reliable := 2 * len(values)

	var beyond []string
	var out []string
	for _, est := range estimates {
		if est.ReturnPeriod > reliable {
			beyond = append(beyond, fmt.Sprint(est.ReturnPeriod))
		}
		if maxObserved > 0 && est.Q > 5*maxObserved {
			out = append(out, fmt.Sprintf("T=%d estimate %.2f exceeds five times the observed maximum", est.ReturnPeriod, est.Q))
		}
	}
	if len(beyond) > 0 {
		out = append([]string{fmt.Sprintf("return periods %s extrapolate beyond twice the %d-year record", strings.Join(beyond, ", "), len(values))}, out...)
	}
	return out
}

// BatchResult pairs one series' report with its error.
type BatchResult struct {
	StationID string
	Report    Report
	Err       error
}

// AnalyzeBatch analyses independent series concurrently. Results keep the
// input order; one station's failure does not stop the others.
func (e *Engine) AnalyzeBatch(ctx context.Context, batch []series.Series, opts Options, workers int) []BatchResult {
	out := make([]BatchResult, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, s := range batch {
		g.Go(func() error {
			id := strings.Join(s.Stations(), ",")
			report, err := e.Analyze(gctx, s, opts)
			out[i] = BatchResult{StationID: id, Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
