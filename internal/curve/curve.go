// Package curve builds theoretical frequency curves for fitted distributions.
package curve

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/plotting"
	"flood-frequency/internal/series"
)

const (
	// DefaultPoints is the size of the theoretical probability grid.
	DefaultPoints = 200
	// MinPercent and MaxPercent bound the grid in exceedance percent.
	MinPercent = 0.1
	MaxPercent = 99.9
)

// TheoreticalPoint is one point on the fitted curve.
type TheoreticalPoint struct {
	ExceedancePercent float64 `json:"exceedance_probability_percent"`
	Value             float64 `json:"value"`
}

// Curve pairs the fitted curve with the observations it is drawn against.
type Curve struct {
	Distribution distribution.Family       `json:"distribution"`
	Theoretical  []TheoreticalPoint        `json:"theoretical"`
	Empirical    []plotting.EmpiricalPoint `json:"empirical"`
}

// Grid returns n exceedance percentages from MinPercent to MaxPercent in
// ascending order. Points are equally spaced in standard normal deviates, so
// they crowd together near both tails.
func Grid(n int) []float64 {
	if n < 2 {
		n = 2
	}
	lo := distuv.UnitNormal.Quantile(MinPercent / 100)
	hi := distuv.UnitNormal.Quantile(MaxPercent / 100)
	step := (hi - lo) / float64(n-1)

	out := make([]float64, n)
	for i := range out {
		out[i] = distuv.UnitNormal.CDF(lo+float64(i)*step) * 100
	}
	out[0], out[n-1] = MinPercent, MaxPercent
	return out
}

// Theoretical evaluates d on the grid at non-exceedance 1 - P/100. Points where
// the quantile is undefined are omitted.
func Theoretical(d distribution.Distribution, grid []float64) []TheoreticalPoint {
	out := make([]TheoreticalPoint, 0, len(grid))
	for _, p := range grid {
		v := d.Quantile(1 - p/100)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, TheoreticalPoint{ExceedancePercent: p, Value: v})
	}
	return out
}

// Generate builds the theoretical curve of d over an n-point grid together with
// the empirical plotting positions of s.
func Generate(s series.Series, d distribution.Distribution, n int) Curve {
	if n <= 0 {
		n = DefaultPoints
	}
	return Curve{
		Distribution: d.Family(),
		Theoretical:  Theoretical(d, Grid(n)),
		Empirical:    plotting.EmpiricalPoints(s),
	}
}
