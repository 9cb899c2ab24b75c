package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flood-frequency/internal/distribution"
)

var values = []float64{85.4, 142.7, 167.3, 98.6, 178.9, 156.2, 134.8, 201.5}

func okResult(t *testing.T, f distribution.Family, aic, p float64) distribution.FitResult {
	t.Helper()
	d, err := distribution.New(f, []float64{50, 60})
	require.NoError(t, err)
	r := distribution.Score(values, d)
	require.True(t, r.OK())
	r.AIC = aic
	r.PValue = &p
	return r
}

func failedResult(f distribution.Family) distribution.FitResult {
	return distribution.Fit([]float64{1}, f)
}

func TestSelectBestMinimumAIC(t *testing.T) {
	results := []distribution.FitResult{
		okResult(t, distribution.Gumbel, 210.4, 0.5),
		failedResult(distribution.GEV),
		okResult(t, distribution.Logistic, 205.1, 0.2),
		okResult(t, distribution.Exponential, 230.0, 0.9),
	}

	best, err := SelectBest(results)
	require.NoError(t, err)
	assert.Equal(t, distribution.Logistic, best.Family)
}

func TestSelectBestTieBreaksOnPValue(t *testing.T) {
	results := []distribution.FitResult{
		okResult(t, distribution.Gumbel, 200, 0.30),
		okResult(t, distribution.Logistic, 200+1e-12, 0.70),
	}

	best, err := SelectBest(results)
	require.NoError(t, err)
	assert.Equal(t, distribution.Logistic, best.Family)
}

func TestSelectBestAllFailed(t *testing.T) {
	_, err := SelectBest([]distribution.FitResult{
		failedResult(distribution.Gumbel),
		failedResult(distribution.GEV),
	})
	assert.ErrorIs(t, err, ErrNoViableDistribution)

	_, err = SelectBest(nil)
	assert.ErrorIs(t, err, ErrNoViableDistribution)
}

func TestRankAll(t *testing.T) {
	results := []distribution.FitResult{
		failedResult(distribution.Frechet),
		okResult(t, distribution.Gumbel, 210, 0.5),
		failedResult(distribution.GPD),
		okResult(t, distribution.Logistic, 205, 0.2),
		okResult(t, distribution.Exponential, 230, 0.9),
	}

	ranked := RankAll(results)

	assert.Equal(t, []distribution.Family{
		distribution.Logistic,
		distribution.Gumbel,
		distribution.Exponential,
		distribution.Frechet,
		distribution.GPD,
	}, Names(ranked))
	assert.Equal(t, distribution.Frechet, results[0].Family, "input must not be reordered")
}
