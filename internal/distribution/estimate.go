package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// ErrFitFailed marks a numerical failure while estimating parameters.
var ErrFitFailed = errors.New("distribution: fit failed")

// ErrBoundary marks a likelihood maximum that sits on the edge of the
// admissible shape region. Such fits are reported as failures.
var ErrBoundary = fmt.Errorf("%w: parameter at domain boundary", ErrFitFailed)

const eulerGamma = 0.5772156649015329

// Shape limits of the regular maximum likelihood region. Below a GEV or GPD
// shape of -0.5, or with a Pearson III skew of magnitude sqrt(2) or more,
// the likelihood is unbounded at the support endpoint.
const (
	minTailShape    = -0.5
	maxTailShape    = 1.5
	maxPearsonSkew  = math.Sqrt2
	maxFrechetShape = 100.0
	boundaryMargin  = 0.01
)

// Estimate fits family f to values by maximum likelihood. Families with a
// closed-form estimator (log-normal, exponential) skip the numeric search.
func Estimate(values []float64, f Family) (d Distribution, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("%w: %s: %v", ErrFitFailed, f, r)
		}
	}()

	if !f.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
	n := len(values)
	if n < 2 || n < f.NumParams() {
		return nil, fmt.Errorf("%w: %s needs at least %d observations, got %d", ErrFitFailed, f, max(2, f.NumParams()), n)
	}
	mean, std := stat.MeanStdDev(values, nil)
	if !(std > 0) || math.IsNaN(mean) {
		return nil, fmt.Errorf("%w: %s: sample has zero variance", ErrFitFailed, f)
	}

	s := standardized{values: values, mean: mean, std: std}
	switch f {
	case Gumbel:
		return fitGumbel(s)
	case LogNormal:
		return fitLogNormal(values)
	case Gamma:
		return fitGamma(values, mean, std)
	case Logistic:
		return fitLogistic(s)
	case GEV:
		return fitGEV(s)
	case GPD:
		return fitGPD(s)
	case Exponential:
		return fitExponential(values, mean)
	case PearsonIII:
		return fitPearsonIII(s)
	case Frechet:
		return fitFrechet(s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
}

// standardized holds z = (x - mean) / std so the simplex search works on
// dimensionless location and scale parameters.
type standardized struct {
	values    []float64
	mean, std float64
}

func (s standardized) z() []float64 {
	out := make([]float64, len(s.values))
	for i, v := range s.values {
		out[i] = (v - s.mean) / s.std
	}
	return out
}

func (s standardized) loc(z float64) float64   { return s.mean + s.std*z }
func (s standardized) scale(z float64) float64 { return s.std * z }

func negLogLik(data []float64, d Distribution) float64 {
	sum := 0.0
	for _, x := range data {
		lp := d.LogPDF(x)
		if math.IsNaN(lp) || math.IsInf(lp, 0) {
			return math.Inf(1)
		}
		sum += lp
	}
	return -sum
}

// minimize runs a Nelder-Mead search and rejects non-converged results.
func minimize(f Family, nll func([]float64) float64, x0 []float64) ([]float64, error) {
	if v := nll(x0); math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s: infeasible starting point", ErrFitFailed, f)
	}

	problem := optimize.Problem{Func: nll}
	settings := &optimize.Settings{
		FuncEvaluations: 20000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 200,
		},
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFitFailed, f, err)
	}
	if res == nil || math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, fmt.Errorf("%w: %s: optimizer returned non-finite likelihood", ErrFitFailed, f)
	}
	return res.X, nil
}

// interior rejects a shape estimate within boundaryMargin of its limits.
func interior(f Family, name string, v, lo, hi float64) error {
	if v-lo < boundaryMargin || hi-v < boundaryMargin {
		return fmt.Errorf("%w: %s %s=%.4g, admissible range (%g, %g)", ErrBoundary, f, name, v, lo, hi)
	}
	return nil
}

func fitGumbel(s standardized) (Distribution, error) {
	z := s.z()
	nll := func(x []float64) float64 {
		return negLogLik(z, GumbelDist{Loc: x[0], Scale: math.Exp(x[1])})
	}
	scale0 := math.Sqrt(6) / math.Pi
	x, err := minimize(Gumbel, nll, []float64{-eulerGamma * scale0, math.Log(scale0)})
	if err != nil {
		return nil, err
	}
	return New(Gumbel, []float64{s.loc(x[0]), s.scale(math.Exp(x[1]))})
}

func fitLogistic(s standardized) (Distribution, error) {
	z := s.z()
	nll := func(x []float64) float64 {
		return negLogLik(z, LogisticDist{Loc: x[0], Scale: math.Exp(x[1])})
	}
	scale0 := math.Sqrt(3) / math.Pi
	x, err := minimize(Logistic, nll, []float64{0, math.Log(scale0)})
	if err != nil {
		return nil, err
	}
	return New(Logistic, []float64{s.loc(x[0]), s.scale(math.Exp(x[1]))})
}

func fitLogNormal(values []float64) (Distribution, error) {
	logs := make([]float64, len(values))
	for i, v := range values {
		if v <= 0 {
			return nil, fmt.Errorf("%w: lognorm requires strictly positive values", ErrFitFailed)
		}
		logs[i] = math.Log(v)
	}
	mu := stat.Mean(logs, nil)
	ss := 0.0
	for _, l := range logs {
		ss += (l - mu) * (l - mu)
	}
	sigma := math.Sqrt(ss / float64(len(logs)))
	if !(sigma > 0) {
		return nil, fmt.Errorf("%w: lognorm: zero variance of log values", ErrFitFailed)
	}
	return New(LogNormal, []float64{mu, sigma})
}

func fitExponential(values []float64, mean float64) (Distribution, error) {
	lo := values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
	}
	return New(Exponential, []float64{lo, mean - lo})
}

func fitGamma(values []float64, mean, std float64) (Distribution, error) {
	scaled := make([]float64, len(values))
	for i, v := range values {
		if v <= 0 {
			return nil, fmt.Errorf("%w: gamma requires strictly positive values", ErrFitFailed)
		}
		scaled[i] = v / mean
	}
	nll := func(x []float64) float64 {
		return negLogLik(scaled, GammaDist{Shape: math.Exp(x[0]), Scale: math.Exp(x[1])})
	}
	cv := std / mean
	shape0 := 1 / (cv * cv)
	x, err := minimize(Gamma, nll, []float64{math.Log(shape0), math.Log(1 / shape0)})
	if err != nil {
		return nil, err
	}
	return New(Gamma, []float64{math.Exp(x[0]), mean * math.Exp(x[1])})
}

func fitGEV(s standardized) (Distribution, error) {
	z := s.z()
	nll := func(x []float64) float64 {
		if x[2] <= minTailShape || x[2] >= maxTailShape {
			return math.Inf(1)
		}
		return negLogLik(z, GEVDist{Loc: x[0], Scale: math.Exp(x[1]), Shape: x[2]})
	}
	scale0 := math.Sqrt(6) / math.Pi
	loc0 := -eulerGamma * scale0
	var (
		x   []float64
		err error
	)
	for _, shape0 := range []float64{0.1, -0.1, 0.01} {
		x, err = minimize(GEV, nll, []float64{loc0, math.Log(scale0), shape0})
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	if err := interior(GEV, "shape", x[2], minTailShape, maxTailShape); err != nil {
		return nil, err
	}
	return New(GEV, []float64{s.loc(x[0]), s.scale(math.Exp(x[1])), x[2]})
}

func fitGPD(s standardized) (Distribution, error) {
	z := s.z()
	zmin, zmax := bounds(z)
	nll := func(x []float64) float64 {
		if x[2] <= minTailShape || x[2] >= maxTailShape {
			return math.Inf(1)
		}
		return negLogLik(z, GPDDist{Loc: x[0], Scale: math.Exp(x[1]), Shape: x[2]})
	}

	loc0 := zmin - 0.05*(zmax-zmin)
	excess := make([]float64, len(z))
	for i, v := range z {
		excess[i] = v - loc0
	}
	em, ev := stat.MeanVariance(excess, nil)
	ratio := em * em / ev
	shape0 := clamp(0.5*(1-ratio), -0.4, 0.4)
	scale0 := 0.5 * em * (ratio + 1)
	if shape0 < 0 && loc0-scale0/shape0 <= zmax {
		shape0 = 0
	}

	x, err := minimize(GPD, nll, []float64{loc0, math.Log(scale0), shape0})
	if err != nil {
		return nil, err
	}
	if err := interior(GPD, "shape", x[2], minTailShape, maxTailShape); err != nil {
		return nil, err
	}
	return New(GPD, []float64{s.loc(x[0]), s.scale(math.Exp(x[1])), x[2]})
}

func fitPearsonIII(s standardized) (Distribution, error) {
	z := s.z()
	zmin, zmax := bounds(z)
	nll := func(x []float64) float64 {
		if math.Abs(x[2]) >= maxPearsonSkew {
			return math.Inf(1)
		}
		return negLogLik(z, PearsonIIIDist{Loc: x[0], Scale: math.Exp(x[1]), Skew: x[2]})
	}

	skew0 := clamp(stat.Skew(s.values, nil), -0.9*maxPearsonSkew, 0.9*maxPearsonSkew)
	if math.Abs(skew0) < 0.05 {
		skew0 = math.Copysign(0.05, skew0)
	}
	// The gamma origin lies at -2/skew standard deviations; shrink the skew
	// until every observation is strictly inside the support.
	for i := 0; i < 30; i++ {
		origin := -2 / skew0
		if (skew0 > 0 && origin < zmin) || (skew0 < 0 && origin > zmax) {
			break
		}
		skew0 /= 2
	}

	x, err := minimize(PearsonIII, nll, []float64{0, 0, skew0})
	if err != nil {
		return nil, err
	}
	if err := interior(PearsonIII, "skew", x[2], -maxPearsonSkew, maxPearsonSkew); err != nil {
		return nil, err
	}
	return New(PearsonIII, []float64{s.loc(x[0]), s.scale(math.Exp(x[1])), x[2]})
}

func fitFrechet(s standardized) (Distribution, error) {
	z := s.z()
	zmin, _ := bounds(z)
	maxLogShape := math.Log(maxFrechetShape)
	nll := func(x []float64) float64 {
		if x[2] >= maxLogShape {
			return math.Inf(1)
		}
		return negLogLik(z, FrechetDist{Loc: x[0], Scale: math.Exp(x[1]), Shape: math.Exp(x[2])})
	}

	loc0 := zmin - 2
	logs := make([]float64, len(z))
	for i, v := range z {
		logs[i] = math.Log(v - loc0)
	}
	lm, ls := stat.MeanStdDev(logs, nil)
	if !(ls > 0) {
		return nil, fmt.Errorf("%w: frechet: degenerate starting point", ErrFitFailed)
	}
	shape0 := math.Pi / (ls * math.Sqrt(6))
	logScale0 := lm - eulerGamma/shape0

	x, err := minimize(Frechet, nll, []float64{loc0, logScale0, math.Log(shape0)})
	if err != nil {
		return nil, err
	}
	if err := interior(Frechet, "log shape", x[2], math.Inf(-1), maxLogShape); err != nil {
		return nil, err
	}
	return New(Frechet, []float64{s.loc(x[0]), s.scale(math.Exp(x[1])), math.Exp(x[2])})
}

func bounds(values []float64) (lo, hi float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[0], sorted[len(sorted)-1]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
