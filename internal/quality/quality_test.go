package quality

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flood-frequency/internal/series"
)

func mustSeries(t *testing.T, values []float64) series.Series {
	t.Helper()
	s, err := series.FromValues("ST01", 2000, values)
	require.NoError(t, err)
	return s
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestValidateInsufficient(t *testing.T) {
	for _, values := range [][]float64{nil, {12.5}} {
		q, err := Validate(mustSeries(t, values))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInsufficientData))

		var insufficient *InsufficientDataError
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, len(values), insufficient.Records)
		assert.Equal(t, GradeInsufficient, q.Grade)
	}
}

func TestValidateGrades(t *testing.T) {
	cases := []struct {
		n     int
		grade Grade
	}{
		{2, GradeAcceptable},
		{9, GradeAcceptable},
		{10, GradeGood},
		{29, GradeGood},
		{30, GradeExcellent},
		{60, GradeExcellent},
	}
	for _, tc := range cases {
		q, err := Validate(mustSeries(t, ramp(tc.n)))
		require.NoError(t, err)
		assert.Equal(t, tc.grade, q.Grade, "n=%d", tc.n)
		assert.Equal(t, tc.n, q.TotalRecords)
		assert.Equal(t, tc.n, q.YearsSpan)
		assert.GreaterOrEqual(t, q.QualityScore, 0.0)
		assert.LessOrEqual(t, q.QualityScore, 100.0)
	}
}

func TestYearsSpanCountsGaps(t *testing.T) {
	s, err := series.New([]series.Record{
		{StationID: "A", Year: 1990, Value: 3},
		{StationID: "A", Year: 2009, Value: 5},
	})
	require.NoError(t, err)

	q, err := Validate(s)
	require.NoError(t, err)
	assert.Equal(t, 2, q.TotalRecords)
	assert.Equal(t, 20, q.YearsSpan)
}

func TestAssessTrendingSeries(t *testing.T) {
	a := Assess(mustSeries(t, ramp(20)))

	assert.True(t, a.Trend.Performed)
	assert.True(t, a.Trend.Significant)
	assert.Equal(t, "increasing", a.Trend.Direction)
	assert.Equal(t, 190, a.Trend.S)
	assert.InDelta(t, 1.0, a.Trend.SenSlope, 1e-12)

	assert.True(t, a.Homogeneity.Performed)
	assert.False(t, a.Homogeneity.Homogeneous)
	assert.Equal(t, 100.0, a.Homogeneity.K)
	assert.Equal(t, 2009, a.Homogeneity.ChangePointYear)

	assert.Empty(t, a.Outliers.Combined)
	assert.Equal(t, 50.0, a.QualityScore)
	assert.NotEmpty(t, a.Warnings)
}

func TestAssessDetectsOutlier(t *testing.T) {
	values := []float64{10, 11, 12, 10, 11, 12, 10, 11, 12, 10, 11, 12, 10, 11, 12, 10, 11, 12, 100, 11}
	a := Assess(mustSeries(t, values))

	assert.Contains(t, a.Outliers.IQR, 2018)
	assert.Contains(t, a.Outliers.Grubbs, 2018)
	assert.Contains(t, a.Outliers.ModifiedZ, 2018)
	assert.Equal(t, []int{2018}, a.Outliers.Combined)
	assert.Equal(t, []float64{100}, a.Outliers.Values)
	assert.InDelta(t, 5.0, a.Outliers.Percent, 1e-12)
}

func TestAssessSummary(t *testing.T) {
	a := Assess(mustSeries(t, []float64{2, 4, 4, 4, 5, 5, 7, 9}))

	assert.Equal(t, 8, a.Summary.Count)
	assert.InDelta(t, 5.0, a.Summary.Mean, 1e-12)
	assert.InDelta(t, 4.5, a.Summary.Median, 1e-12)
	assert.InDelta(t, 7.0, a.Summary.Range, 1e-12)
	assert.InDelta(t, 32.0/7.0, a.Summary.Variance, 1e-12)
	assert.Contains(t, a.Summary.Percentiles, "p50")
}

func TestShortSeriesSkipsTests(t *testing.T) {
	a := Assess(mustSeries(t, []float64{3, 9}))

	assert.False(t, a.Trend.Performed)
	assert.False(t, a.Homogeneity.Performed)
	assert.False(t, a.Independence.Performed)
	assert.Equal(t, 60.0, a.QualityScore)
}

func TestLag1PValue(t *testing.T) {
	assert.InDelta(t, 0.02477, lag1PValue(0.5, 20), 1e-4)
	assert.InDelta(t, 0.10725, lag1PValue(-0.3, 30), 1e-4)
	assert.InDelta(t, 1.0, lag1PValue(0, 12), 1e-12)
	assert.Equal(t, 0.0, lag1PValue(1, 12))
	assert.Equal(t, 0.0, lag1PValue(-1, 12))
	assert.Greater(t, lag1PValue(0.3, 20), lag1PValue(0.3, 60))
}
