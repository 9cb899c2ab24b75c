// Package returnperiod converts return periods into design quantiles.
package returnperiod

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"flood-frequency/internal/distribution"
)

// ErrInvalidReturnPeriod is returned for return periods below one year.
var ErrInvalidReturnPeriod = errors.New("returnperiod: invalid return period")

// Standard lists the return periods reported by default.
var Standard = []int{2, 5, 10, 25, 50, 100}

// Estimate is the design value for one return period. The confidence bounds
// are nil when no interval was computed.
type Estimate struct {
	ReturnPeriod          int      `json:"T_years"`
	ExceedanceProbability float64  `json:"exceedance_probability"`
	Q                     float64  `json:"Q"`
	Lower                 *float64 `json:"Q_ci_lower"`
	Upper                 *float64 `json:"Q_ci_upper"`
}

// MarshalJSON renders a non-finite Q as null.
func (e Estimate) MarshalJSON() ([]byte, error) {
	type plain Estimate
	return json.Marshal(struct {
		plain
		Q *float64 `json:"Q"`
	}{plain: plain(e), Q: distribution.Finite(e.Q)})
}

// Validate rejects return periods below one year.
func Validate(t int) error {
	if t < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidReturnPeriod, t)
	}
	return nil
}

// NonExceedance returns 1 - 1/T.
func NonExceedance(t int) float64 {
	return 1 - 1/float64(t)
}

// Quantile computes Q = F⁻¹(1 - 1/T) for d. T = 1 has no finite quantile and
// yields NaN.
func Quantile(d distribution.Distribution, t int) (float64, error) {
	if err := Validate(t); err != nil {
		return math.NaN(), err
	}
	return d.Quantile(NonExceedance(t)), nil
}

// ClosedForm evaluates the reduced-variate formula for d. The boolean is false
// when the family has none.
func ClosedForm(d distribution.Distribution, t int) (float64, bool, error) {
	if err := Validate(t); err != nil {
		return math.NaN(), false, err
	}
	cf, ok := d.(distribution.ClosedForm)
	if !ok {
		return math.NaN(), false, nil
	}
	return cf.ClosedFormQuantile(NonExceedance(t)), true, nil
}

// EstimateFor builds the point estimate for return period t.
func EstimateFor(d distribution.Distribution, t int) (Estimate, error) {
	q, err := Quantile(d, t)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		ReturnPeriod:          t,
		ExceedanceProbability: 1 / float64(t),
		Q:                     q,
	}, nil
}

// EstimateAll builds point estimates for every return period, failing on the
// first invalid one.
func EstimateAll(d distribution.Distribution, periods []int) ([]Estimate, error) {
	out := make([]Estimate, 0, len(periods))
	for _, t := range periods {
		e, err := EstimateFor(d, t)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
