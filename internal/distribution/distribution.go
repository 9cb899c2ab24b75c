package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// shapeEps is the |shape| below which shape families collapse onto their limit form.
const shapeEps = 1e-9

// Distribution is a fully parameterised member of a Family.
type Distribution interface {
	Family() Family
	Params() []float64
	CDF(x float64) float64
	LogPDF(x float64) float64
	// Quantile is the inverse CDF evaluated at non-exceedance probability p.
	Quantile(p float64) float64
	sealed()
}

// ClosedForm is implemented by families with an explicit frequency-factor
// (reduced variate) quantile, computed independently of Quantile.
type ClosedForm interface {
	ClosedFormQuantile(p float64) float64
}

// New builds a distribution from a family and its parameters.
func New(f Family, params []float64) (Distribution, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
	}
	if len(params) != f.NumParams() {
		return nil, fmt.Errorf("distribution: %s expects %d parameters, got %d", f, f.NumParams(), len(params))
	}
	for i, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("distribution: %s parameter %s is not finite", f, f.ParamNames()[i])
		}
	}

	switch f {
	case Gumbel:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return GumbelDist{Loc: params[0], Scale: params[1]}, nil
	case LogNormal:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return LogNormalDist{Mu: params[0], Sigma: params[1]}, nil
	case Gamma:
		if params[0] <= 0 || params[1] <= 0 {
			return nil, fmt.Errorf("distribution: gamma shape and scale must be positive")
		}
		return GammaDist{Shape: params[0], Scale: params[1]}, nil
	case Logistic:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return LogisticDist{Loc: params[0], Scale: params[1]}, nil
	case GEV:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return GEVDist{Loc: params[0], Scale: params[1], Shape: params[2]}, nil
	case GPD:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return GPDDist{Loc: params[0], Scale: params[1], Shape: params[2]}, nil
	case Exponential:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return ExponentialDist{Loc: params[0], Scale: params[1]}, nil
	case PearsonIII:
		if params[1] <= 0 {
			return nil, errNonPositiveScale(f)
		}
		return PearsonIIIDist{Loc: params[0], Scale: params[1], Skew: params[2]}, nil
	case Frechet:
		if params[1] <= 0 || params[2] <= 0 {
			return nil, fmt.Errorf("distribution: frechet scale and shape must be positive")
		}
		return FrechetDist{Loc: params[0], Scale: params[1], Shape: params[2]}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFamily, f)
}

func errNonPositiveScale(f Family) error {
	return fmt.Errorf("distribution: %s scale must be positive", f)
}

func validProb(p float64) bool {
	return p > 0 && p < 1
}

// GumbelDist is the right-skewed Gumbel (EV1) distribution.
type GumbelDist struct {
	Loc, Scale float64
}

func (d GumbelDist) lib() distuv.GumbelRight { return distuv.GumbelRight{Mu: d.Loc, Beta: d.Scale} }

func (GumbelDist) Family() Family             { return Gumbel }
func (d GumbelDist) Params() []float64        { return []float64{d.Loc, d.Scale} }
func (d GumbelDist) CDF(x float64) float64    { return d.lib().CDF(x) }
func (d GumbelDist) LogPDF(x float64) float64 { return d.lib().LogProb(x) }
func (GumbelDist) sealed()                    {}

func (d GumbelDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	return d.lib().Quantile(p)
}

// ClosedFormQuantile uses the reduced variate y = -ln(-ln p).
func (d GumbelDist) ClosedFormQuantile(p float64) float64 {
	y := -math.Log(-math.Log(p))
	return d.Loc + d.Scale*y
}

// LogNormalDist is the two-parameter log-normal distribution.
type LogNormalDist struct {
	Mu, Sigma float64
}

func (d LogNormalDist) lib() distuv.LogNormal { return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma} }

func (LogNormalDist) Family() Family      { return LogNormal }
func (d LogNormalDist) Params() []float64 { return []float64{d.Mu, d.Sigma} }
func (LogNormalDist) sealed()             {}

func (d LogNormalDist) CDF(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return d.lib().CDF(x)
}

func (d LogNormalDist) LogPDF(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return d.lib().LogProb(x)
}

func (d LogNormalDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	return d.lib().Quantile(p)
}

// ClosedFormQuantile uses the frequency factor form exp(mu + sigma*z_p).
func (d LogNormalDist) ClosedFormQuantile(p float64) float64 {
	return math.Exp(d.Mu + d.Sigma*distuv.UnitNormal.Quantile(p))
}

// GammaDist is the two-parameter gamma distribution with shape and scale.
type GammaDist struct {
	Shape, Scale float64
}

func (d GammaDist) lib() distuv.Gamma { return distuv.Gamma{Alpha: d.Shape, Beta: 1 / d.Scale} }

func (GammaDist) Family() Family      { return Gamma }
func (d GammaDist) Params() []float64 { return []float64{d.Shape, d.Scale} }
func (GammaDist) sealed()             {}

func (d GammaDist) CDF(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return d.lib().CDF(x)
}

func (d GammaDist) LogPDF(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return d.lib().LogProb(x)
}

func (d GammaDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	return d.lib().Quantile(p)
}

// LogisticDist is the logistic distribution.
type LogisticDist struct {
	Loc, Scale float64
}

func (LogisticDist) Family() Family      { return Logistic }
func (d LogisticDist) Params() []float64 { return []float64{d.Loc, d.Scale} }
func (LogisticDist) sealed()             {}

func (d LogisticDist) CDF(x float64) float64 {
	z := (x - d.Loc) / d.Scale
	return 1 / (1 + math.Exp(-z))
}

func (d LogisticDist) LogPDF(x float64) float64 {
	z := math.Abs((x - d.Loc) / d.Scale)
	return -z - math.Log(d.Scale) - 2*math.Log1p(math.Exp(-z))
}

func (d LogisticDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	return d.Loc - d.Scale*math.Log(1/p-1)
}

// ClosedFormQuantile uses the reduced variate y = ln(p/(1-p)).
func (d LogisticDist) ClosedFormQuantile(p float64) float64 {
	y := math.Log(p) - math.Log1p(-p)
	return d.Loc + d.Scale*y
}

// GEVDist is the generalized extreme value distribution.
type GEVDist struct {
	Loc, Scale, Shape float64
}

func (GEVDist) Family() Family      { return GEV }
func (d GEVDist) Params() []float64 { return []float64{d.Loc, d.Scale, d.Shape} }
func (GEVDist) sealed()             {}

func (d GEVDist) gumbel() GumbelDist { return GumbelDist{Loc: d.Loc, Scale: d.Scale} }

func (d GEVDist) CDF(x float64) float64 {
	if math.Abs(d.Shape) < shapeEps {
		return d.gumbel().CDF(x)
	}
	t := 1 + d.Shape*(x-d.Loc)/d.Scale
	if t <= 0 {
		if d.Shape > 0 {
			return 0
		}
		return 1
	}
	return math.Exp(-math.Pow(t, -1/d.Shape))
}

func (d GEVDist) LogPDF(x float64) float64 {
	if math.Abs(d.Shape) < shapeEps {
		return d.gumbel().LogPDF(x)
	}
	t := 1 + d.Shape*(x-d.Loc)/d.Scale
	if t <= 0 {
		return math.Inf(-1)
	}
	return -math.Log(d.Scale) - (1+1/d.Shape)*math.Log(t) - math.Pow(t, -1/d.Shape)
}

// Quantile solves F(x) = p for x.
func (d GEVDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	if math.Abs(d.Shape) < shapeEps {
		return d.gumbel().Quantile(p)
	}
	return d.Loc + d.Scale*(math.Exp(-d.Shape*math.Log(-math.Log(p)))-1)/d.Shape
}

// ClosedFormQuantile uses the frequency factor K = ((-ln p)^-ξ - 1)/ξ.
func (d GEVDist) ClosedFormQuantile(p float64) float64 {
	if math.Abs(d.Shape) < shapeEps {
		return d.gumbel().ClosedFormQuantile(p)
	}
	k := (math.Pow(-math.Log(p), -d.Shape) - 1) / d.Shape
	return d.Loc + d.Scale*k
}

// GPDDist is the generalized Pareto distribution.
type GPDDist struct {
	Loc, Scale, Shape float64
}

func (GPDDist) Family() Family      { return GPD }
func (d GPDDist) Params() []float64 { return []float64{d.Loc, d.Scale, d.Shape} }
func (GPDDist) sealed()             {}

func (d GPDDist) CDF(x float64) float64 {
	z := (x - d.Loc) / d.Scale
	if z <= 0 {
		return 0
	}
	if math.Abs(d.Shape) < shapeEps {
		return -math.Expm1(-z)
	}
	t := 1 + d.Shape*z
	if t <= 0 {
		return 1
	}
	return 1 - math.Pow(t, -1/d.Shape)
}

func (d GPDDist) LogPDF(x float64) float64 {
	z := (x - d.Loc) / d.Scale
	if z < 0 {
		return math.Inf(-1)
	}
	if math.Abs(d.Shape) < shapeEps {
		return -math.Log(d.Scale) - z
	}
	t := 1 + d.Shape*z
	if t <= 0 {
		return math.Inf(-1)
	}
	return -math.Log(d.Scale) - (1+1/d.Shape)*math.Log(t)
}

// Quantile solves F(x) = p for x.
func (d GPDDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	if math.Abs(d.Shape) < shapeEps {
		return d.Loc - d.Scale*math.Log1p(-p)
	}
	return d.Loc + d.Scale*math.Expm1(-d.Shape*math.Log1p(-p))/d.Shape
}

// ClosedFormQuantile uses the frequency factor K = ((1-p)^-ξ - 1)/ξ.
func (d GPDDist) ClosedFormQuantile(p float64) float64 {
	if math.Abs(d.Shape) < shapeEps {
		return d.Loc - d.Scale*math.Log(1-p)
	}
	k := (math.Pow(1-p, -d.Shape) - 1) / d.Shape
	return d.Loc + d.Scale*k
}

// ExponentialDist is the shifted exponential distribution.
type ExponentialDist struct {
	Loc, Scale float64
}

func (d ExponentialDist) lib() distuv.Exponential { return distuv.Exponential{Rate: 1 / d.Scale} }

func (ExponentialDist) Family() Family      { return Exponential }
func (d ExponentialDist) Params() []float64 { return []float64{d.Loc, d.Scale} }
func (ExponentialDist) sealed()             {}

func (d ExponentialDist) CDF(x float64) float64 {
	if x <= d.Loc {
		return 0
	}
	return d.lib().CDF(x - d.Loc)
}

func (d ExponentialDist) LogPDF(x float64) float64 {
	if x < d.Loc {
		return math.Inf(-1)
	}
	return d.lib().LogProb(x - d.Loc)
}

func (d ExponentialDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	return d.Loc + d.lib().Quantile(p)
}

// ClosedFormQuantile uses the reduced variate y = -ln(1-p).
func (d ExponentialDist) ClosedFormQuantile(p float64) float64 {
	return d.Loc - d.Scale*math.Log(1-p)
}

// PearsonIIIDist is the Pearson type III distribution in moment form.
type PearsonIIIDist struct {
	Loc, Scale, Skew float64
}

func (PearsonIIIDist) Family() Family      { return PearsonIII }
func (d PearsonIIIDist) Params() []float64 { return []float64{d.Loc, d.Scale, d.Skew} }
func (PearsonIIIDist) sealed()             {}

// skewEps is the |skew| below which Pearson III is treated as normal.
const skewEps = 1e-6

func (d PearsonIIIDist) normal() distuv.Normal { return distuv.Normal{Mu: d.Loc, Sigma: d.Scale} }

// gamma returns the standard gamma, its scale and origin.
func (d PearsonIIIDist) gamma() (distuv.Gamma, float64, float64) {
	alpha := 4 / (d.Skew * d.Skew)
	beta := math.Abs(d.Skew) * d.Scale / 2
	zeta := d.Loc - 2*d.Scale/d.Skew
	return distuv.Gamma{Alpha: alpha, Beta: 1}, beta, zeta
}

func (d PearsonIIIDist) reduced(x float64) (distuv.Gamma, float64, float64) {
	g, beta, zeta := d.gamma()
	y := (x - zeta) / beta
	if d.Skew < 0 {
		y = -y
	}
	return g, y, beta
}

func (d PearsonIIIDist) CDF(x float64) float64 {
	if math.Abs(d.Skew) < skewEps {
		return d.normal().CDF(x)
	}
	g, y, _ := d.reduced(x)
	var c float64
	if y > 0 {
		c = g.CDF(y)
	}
	if d.Skew < 0 {
		return 1 - c
	}
	return c
}

func (d PearsonIIIDist) LogPDF(x float64) float64 {
	if math.Abs(d.Skew) < skewEps {
		return d.normal().LogProb(x)
	}
	g, y, beta := d.reduced(x)
	if y <= 0 {
		return math.Inf(-1)
	}
	return g.LogProb(y) - math.Log(beta)
}

func (d PearsonIIIDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	if math.Abs(d.Skew) < skewEps {
		return d.normal().Quantile(p)
	}
	g, beta, zeta := d.gamma()
	if d.Skew > 0 {
		return zeta + beta*g.Quantile(p)
	}
	return zeta - beta*g.Quantile(1-p)
}

// FrechetDist is the three-parameter Fréchet (EV2) distribution.
type FrechetDist struct {
	Loc, Scale, Shape float64
}

func (FrechetDist) Family() Family      { return Frechet }
func (d FrechetDist) Params() []float64 { return []float64{d.Loc, d.Scale, d.Shape} }
func (FrechetDist) sealed()             {}

func (d FrechetDist) CDF(x float64) float64 {
	z := (x - d.Loc) / d.Scale
	if z <= 0 {
		return 0
	}
	return math.Exp(-math.Pow(z, -d.Shape))
}

func (d FrechetDist) LogPDF(x float64) float64 {
	z := (x - d.Loc) / d.Scale
	if z <= 0 {
		return math.Inf(-1)
	}
	return math.Log(d.Shape) - math.Log(d.Scale) - (1+d.Shape)*math.Log(z) - math.Pow(z, -d.Shape)
}

// Quantile solves F(x) = p for x.
func (d FrechetDist) Quantile(p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	return d.Loc + d.Scale*math.Exp(-math.Log(-math.Log(p))/d.Shape)
}

// ClosedFormQuantile uses the reduced variate y = (-ln p)^(-1/α).
func (d FrechetDist) ClosedFormQuantile(p float64) float64 {
	return d.Loc + d.Scale*math.Pow(-math.Log(p), -1/d.Shape)
}

// InvertCDF finds x with CDF(x) = p by bracketing and bisection. It is used
// to cross-check Quantile implementations and returns NaN when no bracket is found.
func InvertCDF(d Distribution, p float64) float64 {
	if !validProb(p) {
		return math.NaN()
	}
	lo, hi := -1.0, 1.0
	for i := 0; d.CDF(lo) > p; i++ {
		if i > 200 {
			return math.NaN()
		}
		lo = lo*2 - 1
	}
	for i := 0; d.CDF(hi) < p; i++ {
		if i > 200 {
			return math.NaN()
		}
		hi = hi*2 + 1
	}
	for i := 0; i < 200; i++ {
		mid := lo + (hi-lo)/2
		if d.CDF(mid) < p {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo <= 1e-12*math.Max(1, math.Abs(mid)) {
			break
		}
	}
	return lo + (hi-lo)/2
}
