package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/observability"
	"flood-frequency/internal/quality"
	"flood-frequency/internal/returnperiod"
	"flood-frequency/internal/selection"
	"flood-frequency/internal/series"
)

var annualPeaks = []float64{
	85.4, 142.7, 167.3, 98.6, 178.9, 156.2, 134.8, 201.5, 189.7, 145.3,
	176.8, 163.4, 198.2, 187.9, 159.6, 203.1, 178.4, 165.9, 192.7, 174.5,
}

func peaksSeries(t *testing.T) series.Series {
	t.Helper()
	s, err := series.FromValues("ST01", 2005, annualPeaks)
	require.NoError(t, err)
	return s
}

func newEngine() *Engine {
	return New(zerolog.Nop(), observability.NewMetricsForTesting(), clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAnalyzeEndToEnd(t *testing.T) {
	report, err := newEngine().Analyze(context.Background(), peaksSeries(t), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, series.AggMax, report.AggFunc)
	assert.Equal(t, []string{"ST01"}, report.StationIDs)
	assert.Equal(t, quality.GradeGood, report.Quality.Grade)
	assert.Equal(t, 20, report.Quality.TotalRecords)
	assert.Equal(t, 20, report.Quality.YearsSpan)

	require.True(t, report.BestDistribution.OK())
	assert.Less(t, report.BestDistribution.AIC, 1e300)
	assert.Equal(t, report.BestDistribution.Family, report.SelectedDistribution)
	assert.Equal(t, report.BestDistribution.Family, report.Ranking[0])
	assert.Len(t, report.DistributionFits, len(distribution.Families))
	for _, fit := range report.DistributionFits {
		if fit.OK() {
			assert.GreaterOrEqual(t, fit.AIC, report.BestDistribution.AIC)
		}
	}

	empirical := report.FrequencyCurve.Empirical
	require.Len(t, empirical, 20)
	assert.InDelta(t, 4.76, empirical[0].ExceedancePercent, 0.005)
	assert.InDelta(t, 95.24, empirical[19].ExceedancePercent, 0.005)
	assert.NotEmpty(t, report.FrequencyCurve.Theoretical)

	require.Len(t, report.ReturnPeriodEstimates, len(returnperiod.Standard))
	q100, ok := report.Estimate(100)
	require.True(t, ok)
	assert.Greater(t, q100.Q, 203.1)
	assert.InDelta(t, 0.01, q100.ExceedanceProbability, 1e-15)
	assert.Nil(t, q100.Lower)
	assert.Nil(t, report.Uncertainty)

	assert.NotEmpty(t, report.FrequencyTable)
	assert.Len(t, report.Diagnostics.PP, 20)
}

func TestAnalyzeSelectedFitExceedsRecord(t *testing.T) {
	report, err := newEngine().Analyze(context.Background(), peaksSeries(t), DefaultOptions())
	require.NoError(t, err)

	record := annualPeaks[0]
	for _, v := range annualPeaks {
		record = max(record, v)
	}
	q100, ok := report.Estimate(100)
	require.True(t, ok)
	assert.Greater(t, q100.Q, record, "selected %s", report.SelectedDistribution)

	for _, fit := range report.DistributionFits {
		if fit.Family == distribution.PearsonIII && fit.OK() {
			assert.Less(t, math.Abs(fit.Params[2]), math.Sqrt2, "pearson3 skew")
		}
		if !fit.OK() && fit.Family == report.SelectedDistribution {
			t.Fatalf("selected family %s has no fit", fit.Family)
		}
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	opts := DefaultOptions()
	opts.UseUncertainty = true
	opts.Bootstrap.Samples = 80
	opts.Bootstrap.Seed = 2024

	first, err := newEngine().Analyze(context.Background(), peaksSeries(t), opts)
	require.NoError(t, err)
	second, err := newEngine().Analyze(context.Background(), peaksSeries(t), opts)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAnalyzeBootstrapBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.UseUncertainty = true
	opts.Distribution = "gumbel"

	report, err := newEngine().Analyze(context.Background(), peaksSeries(t), opts)
	require.NoError(t, err)

	require.NotNil(t, report.Uncertainty)
	assert.Empty(t, report.Uncertainty.Error)
	assert.Equal(t, 200, report.Uncertainty.Samples)
	assert.Equal(t, "bootstrap", report.Uncertainty.Method)
	for _, est := range report.ReturnPeriodEstimates {
		require.NotNil(t, est.Lower, "T=%d", est.ReturnPeriod)
		require.NotNil(t, est.Upper, "T=%d", est.ReturnPeriod)
		assert.LessOrEqual(t, *est.Lower, est.Q, "T=%d", est.ReturnPeriod)
		assert.GreaterOrEqual(t, *est.Upper, est.Q, "T=%d", est.ReturnPeriod)
	}
}

func TestAnalyzeDegradesOnCancelledBootstrap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := DefaultOptions()
	opts.UseUncertainty = true

	report, err := newEngine().Analyze(ctx, peaksSeries(t), opts)
	require.NoError(t, err)

	require.NotNil(t, report.Uncertainty)
	assert.NotEmpty(t, report.Uncertainty.Error)
	for _, est := range report.ReturnPeriodEstimates {
		assert.Nil(t, est.Lower)
		assert.Nil(t, est.Upper)
	}
	assert.Contains(t, report.Warnings[len(report.Warnings)-1], "confidence bounds unavailable")
}

func TestAnalyzeRequestedDistribution(t *testing.T) {
	opts := DefaultOptions()
	opts.Distribution = "Logistic"

	report, err := newEngine().Analyze(context.Background(), peaksSeries(t), opts)
	require.NoError(t, err)
	assert.Equal(t, distribution.Logistic, report.SelectedDistribution)
	assert.Equal(t, distribution.Logistic, report.FrequencyCurve.Distribution)
}

func TestAnalyzeKeepsRequestedFamilyWhenFitFails(t *testing.T) {
	s, err := series.FromValues("ST02", 2000, []float64{0, 12, 15, 19, 22, 31, 18, 25})
	require.NoError(t, err)
	opts := DefaultOptions()
	opts.Distribution = "lognorm"
	opts.UseUncertainty = true

	report, err := newEngine().Analyze(context.Background(), s, opts)
	require.NoError(t, err)
	assert.Equal(t, distribution.LogNormal, report.SelectedDistribution)
	assert.NotEqual(t, distribution.LogNormal, report.BestDistribution.Family)
	assert.True(t, report.BestDistribution.OK())
	assert.Equal(t, quality.GradeAcceptable, report.Quality.Grade)

	lognorm := report.DistributionFits[indexOfFamily(distribution.LogNormal)]
	assert.False(t, lognorm.OK())
	assert.NotEmpty(t, lognorm.FitError)

	assert.Equal(t, distribution.LogNormal, report.FrequencyCurve.Distribution)
	assert.Empty(t, report.FrequencyCurve.Theoretical)
	assert.Len(t, report.FrequencyCurve.Empirical, 8)
	assert.Empty(t, report.ReturnPeriodEstimates)
	assert.Empty(t, report.FrequencyTable)
	assert.Nil(t, report.Uncertainty)
	_, ok := report.Estimate(100)
	assert.False(t, ok)

	found := false
	for _, w := range report.Warnings {
		if strings.Contains(w, "lognorm") && strings.Contains(w, "could not be fitted") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %v", report.Warnings)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"return_period_estimates":[]`)
}

func indexOfFamily(f distribution.Family) int {
	for i, g := range distribution.Families {
		if g == f {
			return i
		}
	}
	return -1
}

func TestAnalyzeFatalErrors(t *testing.T) {
	engine := newEngine()
	ctx := context.Background()

	short, err := series.FromValues("ST03", 2020, []float64{10})
	require.NoError(t, err)
	_, err = engine.Analyze(ctx, short, DefaultOptions())
	assert.ErrorIs(t, err, quality.ErrInsufficientData)

	flat, err := series.FromValues("ST03", 2020, []float64{10, 10, 10, 10})
	require.NoError(t, err)
	_, err = engine.Analyze(ctx, flat, DefaultOptions())
	assert.ErrorIs(t, err, selection.ErrNoViableDistribution)

	opts := DefaultOptions()
	opts.ReturnPeriods = []int{10, 0}
	_, err = engine.Analyze(ctx, peaksSeries(t), opts)
	assert.ErrorIs(t, err, returnperiod.ErrInvalidReturnPeriod)

	opts = DefaultOptions()
	opts.Distribution = "weibull"
	_, err = engine.Analyze(ctx, peaksSeries(t), opts)
	assert.ErrorIs(t, err, distribution.ErrUnknownFamily)
}

func TestAnalyzeBatchKeepsOrder(t *testing.T) {
	short, err := series.FromValues("B", 2020, []float64{10})
	require.NoError(t, err)

	results := newEngine().AnalyzeBatch(context.Background(), []series.Series{peaksSeries(t), short}, DefaultOptions(), 2)

	require.Len(t, results, 2)
	assert.Equal(t, "ST01", results[0].StationID)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "B", results[1].StationID)
	assert.True(t, errors.Is(results[1].Err, quality.ErrInsufficientData))
}

func TestAnalyzeRecordsMetrics(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	engine := New(zerolog.Nop(), metrics, clockwork.NewFakeClock())

	_, err := engine.Analyze(context.Background(), peaksSeries(t), DefaultOptions())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, metrics.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `floodfreq_analyses_total{outcome="success"} 1`)
	assert.Contains(t, string(raw), `floodfreq_fits_total{family="gumbel",outcome="success"} 1`)
}
