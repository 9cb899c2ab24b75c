// Package selection ranks fitted families by information criterion.
package selection

import (
	"errors"
	"math"
	"sort"

	"flood-frequency/internal/distribution"
)

// ErrNoViableDistribution is returned when every candidate fit failed.
var ErrNoViableDistribution = errors.New("selection: no viable distribution")

// aicTolerance is the relative difference under which two AIC values tie.
const aicTolerance = 1e-9

// better reports whether a should rank before b.
func better(a, b distribution.FitResult) bool {
	if a.OK() != b.OK() {
		return a.OK()
	}
	if !a.OK() {
		return false
	}
	if !tied(a.AIC, b.AIC) {
		return a.AIC < b.AIC
	}
	pa, pb := a.KSPValue(), b.KSPValue()
	switch {
	case math.IsNaN(pb):
		return !math.IsNaN(pa)
	case math.IsNaN(pa):
		return false
	default:
		return pa > pb
	}
}

func tied(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= aicTolerance*scale
}

// SelectBest returns the successful fit with minimum AIC. AIC ties go to the
// higher KS p-value; remaining ties keep input order.
func SelectBest(results []distribution.FitResult) (distribution.FitResult, error) {
	best := -1
	for i, r := range results {
		if !r.OK() {
			continue
		}
		if best < 0 || better(r, results[best]) {
			best = i
		}
	}
	if best < 0 {
		return distribution.FitResult{}, ErrNoViableDistribution
	}
	return results[best], nil
}

// RankAll returns a copy of results ordered best first; failed fits go last in
// their original order.
func RankAll(results []distribution.FitResult) []distribution.FitResult {
	out := append([]distribution.FitResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

// Names lists the families of ranked results.
func Names(results []distribution.FitResult) []distribution.Family {
	out := make([]distribution.Family, len(results))
	for i, r := range results {
		out[i] = r.Family
	}
	return out
}
