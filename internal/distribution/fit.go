package distribution

import (
	"encoding/json"
	"fmt"
	"math"
)

// FitResult is the outcome of fitting one family. Exactly one of a usable
// parameter set or FitError is populated; failed fits carry +Inf AIC and BIC
// so they sort after every successful fit.
type FitResult struct {
	Family          Family
	Params          []float64
	LogLikelihood   float64
	AIC             float64
	BIC             float64
	KSStatistic     float64
	PValue          *float64
	AndersonDarling float64
	ChiSquare       float64
	ChiSquarePValue *float64
	FitError        string

	dist Distribution
	err  error
}

// OK reports whether the fit succeeded.
func (r FitResult) OK() bool { return r.FitError == "" && r.dist != nil }

// Err returns the recorded failure, or nil.
func (r FitResult) Err() error {
	if r.OK() {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return fmt.Errorf("%w: %s", ErrFitFailed, r.Family)
}

// Distribution returns the fitted distribution, nil when the fit failed.
func (r FitResult) Distribution() Distribution { return r.dist }

// KSPValue returns the KS p-value or NaN.
func (r FitResult) KSPValue() float64 {
	if r.PValue == nil {
		return math.NaN()
	}
	return *r.PValue
}

func failed(f Family, err error) FitResult {
	nan := math.NaN()
	return FitResult{
		Family:          f,
		LogLikelihood:   nan,
		AIC:             math.Inf(1),
		BIC:             math.Inf(1),
		KSStatistic:     nan,
		AndersonDarling: nan,
		ChiSquare:       nan,
		FitError:        err.Error(),
		err:             err,
	}
}

// Fit estimates family f on values and scores the fit. It never returns an
// error: failures are captured in FitResult.FitError.
func Fit(values []float64, f Family) FitResult {
	d, err := Estimate(values, f)
	if err != nil {
		return failed(f, err)
	}
	return Score(values, d)
}

// Score computes likelihood, information criteria and goodness-of-fit
// statistics for an already parameterised distribution.
func Score(values []float64, d Distribution) FitResult {
	f := d.Family()
	logL := -negLogLik(values, d)
	if math.IsNaN(logL) || math.IsInf(logL, 0) {
		return failed(f, fmt.Errorf("%w: observations outside fitted support", ErrFitFailed))
	}

	n := float64(len(values))
	k := float64(f.NumParams())
	ks, p := KolmogorovSmirnov(values, d.CDF)
	chi, chiP := ChiSquare(values, d.CDF, f.NumParams())

	res := FitResult{
		Family:          f,
		Params:          d.Params(),
		LogLikelihood:   logL,
		AIC:             2*k - 2*logL,
		BIC:             k*math.Log(n) - 2*logL,
		KSStatistic:     ks,
		AndersonDarling: AndersonDarling(values, d.CDF),
		ChiSquare:       chi,
		ChiSquarePValue: chiP,
		dist:            d,
	}
	if !math.IsNaN(p) {
		res.PValue = &p
	}
	return res
}

// FitAll fits every family in order; an empty list means Families.
func FitAll(values []float64, families []Family) []FitResult {
	if len(families) == 0 {
		families = Families
	}
	out := make([]FitResult, len(families))
	for i, f := range families {
		out[i] = Fit(values, f)
	}
	return out
}

type fitResultJSON struct {
	Name            Family             `json:"name"`
	DisplayName     string             `json:"display_name"`
	Parameters      []*float64         `json:"parameters"`
	ParameterNames  []string           `json:"parameter_names"`
	NamedParameters map[string]float64 `json:"named_parameters,omitempty"`
	LogLikelihood   *float64           `json:"log_likelihood"`
	AIC             *float64           `json:"aic"`
	BIC             *float64           `json:"bic"`
	KSStatistic     *float64           `json:"ks_statistic"`
	PValue          *float64           `json:"p_value"`
	AndersonDarling *float64           `json:"anderson_darling"`
	ChiSquare       *float64           `json:"chi_square"`
	ChiSquarePValue *float64           `json:"chi_square_p_value"`
	FitError        *string            `json:"fit_error"`
}

// MarshalJSON renders non-finite numbers as null.
func (r FitResult) MarshalJSON() ([]byte, error) {
	out := fitResultJSON{
		Name:            r.Family,
		DisplayName:     r.Family.DisplayName(),
		Parameters:      make([]*float64, 0, len(r.Params)),
		ParameterNames:  r.Family.ParamNames(),
		LogLikelihood:   Finite(r.LogLikelihood),
		AIC:             Finite(r.AIC),
		BIC:             Finite(r.BIC),
		KSStatistic:     Finite(r.KSStatistic),
		PValue:          r.PValue,
		AndersonDarling: Finite(r.AndersonDarling),
		ChiSquare:       Finite(r.ChiSquare),
		ChiSquarePValue: r.ChiSquarePValue,
	}
	if len(r.Params) > 0 {
		out.NamedParameters = make(map[string]float64, len(r.Params))
		names := r.Family.ParamNames()
		for i, v := range r.Params {
			out.Parameters = append(out.Parameters, Finite(v))
			if i < len(names) {
				out.NamedParameters[names[i]] = v
			}
		}
	}
	if r.FitError != "" {
		msg := r.FitError
		out.FitError = &msg
	}
	return json.Marshal(out)
}

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
