package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/series"
)

func TestGridShape(t *testing.T) {
	grid := Grid(DefaultPoints)

	require.Len(t, grid, DefaultPoints)
	assert.Equal(t, MinPercent, grid[0])
	assert.Equal(t, MaxPercent, grid[len(grid)-1])
	for i := 1; i < len(grid); i++ {
		assert.Greater(t, grid[i], grid[i-1])
	}

	mid := len(grid) / 2
	tailStep := grid[1] - grid[0]
	midStep := grid[mid+1] - grid[mid]
	assert.Less(t, tailStep, midStep/10, "grid must be denser near the tails")
	assert.InDelta(t, grid[mid+1]-grid[mid], grid[len(grid)-mid-1]-grid[len(grid)-mid-2], 1e-9)
}

func TestGenerateGumbel(t *testing.T) {
	s, err := series.FromValues("ST01", 2001, []float64{55, 72, 48, 90, 61})
	require.NoError(t, err)
	d := distribution.GumbelDist{Loc: 50, Scale: 10}

	c := Generate(s, d, 0)

	assert.Equal(t, distribution.Gumbel, c.Distribution)
	require.Len(t, c.Theoretical, DefaultPoints)
	require.Len(t, c.Empirical, 5)
	for i := 1; i < len(c.Theoretical); i++ {
		assert.Greater(t, c.Theoretical[i].ExceedancePercent, c.Theoretical[i-1].ExceedancePercent)
		assert.Less(t, c.Theoretical[i].Value, c.Theoretical[i-1].Value)
	}
	first := c.Theoretical[0]
	assert.InDelta(t, d.Quantile(0.999), first.Value, 1e-9)
}

func TestTheoreticalOmitsUndefinedPoints(t *testing.T) {
	d := distribution.LogNormalDist{Mu: 0, Sigma: 300}

	points := Theoretical(d, Grid(50))

	assert.NotEmpty(t, points)
	assert.Less(t, len(points), 50)
	for _, p := range points {
		assert.False(t, math.IsInf(p.Value, 0) || math.IsNaN(p.Value))
	}
}

func TestFrequencyTable(t *testing.T) {
	d := distribution.GumbelDist{Loc: 50, Scale: 10}

	table := FrequencyTable(d)

	require.Len(t, table, len(DesignPercents))
	for _, row := range table {
		assert.InDelta(t, 100/row.ExceedancePercent, row.ReturnPeriod, 1e-12)
	}
	assert.Equal(t, 1.0, table[5].ExceedancePercent)
	assert.InDelta(t, 96.0, table[5].Value, 0.01)
}
