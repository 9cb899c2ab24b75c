package distribution

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// KolmogorovSmirnov returns the one-sample KS statistic of values against
// cdf and its asymptotic p-value with Stephens' small-sample correction.
func KolmogorovSmirnov(values []float64, cdf func(float64) float64) (float64, float64) {
	n := len(values)
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := sortedCopy(values)
	fn := float64(n)
	d := 0.0
	for i, x := range sorted {
		f := cdf(x)
		d = math.Max(d, math.Max(float64(i+1)/fn-f, f-float64(i)/fn))
	}
	sq := math.Sqrt(fn)
	return d, kolmogorovSurvival((sq + 0.12 + 0.11/sq) * d)
}

// kolmogorovSurvival evaluates Q(λ) = 2 Σ (-1)^(k-1) exp(-2k²λ²).
func kolmogorovSurvival(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	sum := 0.0
	sign := 1.0
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(-2*float64(k*k)*lambda*lambda)
		sum += term
		if math.Abs(term) < 1e-12 {
			break
		}
		sign = -sign
	}
	return clamp(2*sum, 0, 1)
}

// AndersonDarling returns the A² statistic of values against cdf.
func AndersonDarling(values []float64, cdf func(float64) float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := sortedCopy(values)
	const eps = 1e-15
	sum := 0.0
	for i := 0; i < n; i++ {
		lo := clamp(cdf(sorted[i]), eps, 1-eps)
		hi := clamp(cdf(sorted[n-1-i]), eps, 1-eps)
		sum += float64(2*i+1) * (math.Log(lo) + math.Log1p(-hi))
	}
	return -float64(n) - sum/float64(n)
}

// SturgesBins returns the histogram bin count used by ChiSquare.
func SturgesBins(n int) int {
	return max(5, int(math.Ceil(1+math.Log2(float64(n)+1))))
}

// ChiSquare bins values into equal-width classes over their range and compares
// observed to expected counts. The p-value is nil when the test has no degrees
// of freedom left after subtracting the k fitted parameters.
func ChiSquare(values []float64, cdf func(float64) float64, k int) (float64, *float64) {
	n := len(values)
	if n == 0 {
		return math.NaN(), nil
	}
	sorted := sortedCopy(values)
	lo, hi := sorted[0], sorted[n-1]
	bins := SturgesBins(n)
	width := (hi - lo) / float64(bins)

	observed := make([]float64, bins)
	for _, v := range sorted {
		j := bins - 1
		if width > 0 {
			j = min(int((v-lo)/width), bins-1)
		}
		observed[j]++
	}

	chi := 0.0
	prev := 0.0
	for j := 0; j < bins; j++ {
		upper := 1.0
		if j < bins-1 {
			upper = cdf(lo + float64(j+1)*width)
		}
		expected := float64(n) * (upper - prev)
		prev = upper
		if expected > 0 {
			diff := observed[j] - expected
			chi += diff * diff / expected
		}
	}

	df := bins - 1 - k
	if df <= 0 || math.IsNaN(chi) || math.IsInf(chi, 0) {
		return chi, nil
	}
	p := 1 - distuv.ChiSquared{K: float64(df)}.CDF(chi)
	return chi, &p
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}
