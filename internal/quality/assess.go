package quality

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"flood-frequency/internal/series"
)

const (
	alpha          = 0.05
	zThreshold     = 3.0
	modZThreshold  = 3.5
	iqrFence       = 1.5
	pettittMinSize = 10
)

// Summary holds descriptive statistics of the series values.
type Summary struct {
	Count       int                `json:"count"`
	Mean        float64            `json:"mean"`
	Median      float64            `json:"median"`
	Std         float64            `json:"std"`
	Variance    float64            `json:"variance"`
	CV          float64            `json:"cv"`
	Skewness    float64            `json:"skewness"`
	Kurtosis    float64            `json:"kurtosis"`
	Min         float64            `json:"min"`
	Max         float64            `json:"max"`
	Range       float64            `json:"range"`
	Percentiles map[string]float64 `json:"percentiles"`
}

// Outliers lists flagged observations by year for each detection method.
type Outliers struct {
	ZScore    []int     `json:"z_score"`
	ModifiedZ []int     `json:"modified_z"`
	IQR       []int     `json:"iqr"`
	Grubbs    []int     `json:"grubbs"`
	Combined  []int     `json:"combined"`
	Values    []float64 `json:"values"`
	Percent   float64   `json:"percent"`
}

// Trend is the outcome of a Mann-Kendall test.
type Trend struct {
	Performed   bool    `json:"performed"`
	S           int     `json:"s"`
	Z           float64 `json:"z"`
	PValue      float64 `json:"p_value"`
	SenSlope    float64 `json:"sen_slope"`
	Direction   string  `json:"direction"`
	Significant bool    `json:"significant"`
}

// Homogeneity is the outcome of a Pettitt change-point test.
type Homogeneity struct {
	Performed       bool    `json:"performed"`
	K               float64 `json:"k"`
	ChangePointYear int     `json:"change_point_year,omitempty"`
	PValue          float64 `json:"p_value"`
	Homogeneous     bool    `json:"homogeneous"`
}

// Independence is the lag-1 autocorrelation check.
type Independence struct {
	Performed   bool    `json:"performed"`
	Lag1        float64 `json:"lag1_autocorrelation"`
	PValue      float64 `json:"p_value"`
	Independent bool    `json:"independent"`
}

// Assessment is the extended quality review of a series.
type Assessment struct {
	Summary      Summary      `json:"summary"`
	Outliers     Outliers     `json:"outliers"`
	Trend        Trend        `json:"trend"`
	Homogeneity  Homogeneity  `json:"homogeneity"`
	Independence Independence `json:"independence"`
	QualityScore float64      `json:"quality_score"`
	Warnings     []string     `json:"warnings"`
}

// Assess runs descriptive statistics, outlier detection, trend, homogeneity
// and independence checks and folds them into a 0-100 score.
func Assess(s series.Series) Assessment {
	values := s.Values()
	years := s.Years()

	a := Assessment{
		Summary:      summarize(values),
		Outliers:     detectOutliers(values, years),
		Trend:        mannKendall(values, years),
		Homogeneity:  pettitt(values, years),
		Independence: lag1(values),
		Warnings:     []string{},
	}
	a.QualityScore = score(a, len(values))

	n := len(values)
	switch {
	case n < 10:
		a.Warnings = append(a.Warnings, fmt.Sprintf("only %d years of data: results are unreliable for design", n))
	case n < 30:
		a.Warnings = append(a.Warnings, fmt.Sprintf("%d years of data: adequate for preliminary analysis, use design values with caution", n))
	}
	if len(a.Outliers.Combined) > 0 {
		a.Warnings = append(a.Warnings, fmt.Sprintf("%d potential outliers detected in years %v", len(a.Outliers.Combined), a.Outliers.Combined))
	}
	if a.Trend.Significant {
		a.Warnings = append(a.Warnings, fmt.Sprintf("significant %s trend (Mann-Kendall p=%.3f): series may be non-stationary", a.Trend.Direction, a.Trend.PValue))
	}
	if a.Homogeneity.Performed && !a.Homogeneity.Homogeneous {
		a.Warnings = append(a.Warnings, fmt.Sprintf("change point detected around %d (Pettitt p=%.3f)", a.Homogeneity.ChangePointYear, a.Homogeneity.PValue))
	}
	if a.Independence.Performed && !a.Independence.Independent {
		a.Warnings = append(a.Warnings, fmt.Sprintf("significant lag-1 autocorrelation %.2f", a.Independence.Lag1))
	}
	return a
}

func score(a Assessment, n int) float64 {
	total := 100.0
	total -= math.Min(2*a.Outliers.Percent, 20)
	if a.Trend.Significant {
		total -= 15
	}
	if a.Homogeneity.Performed && !a.Homogeneity.Homogeneous {
		total -= 15
	}
	switch {
	case n < 10:
		total -= 40
	case n < 30:
		total -= 20
	case n < 50:
		total -= 10
	}
	return math.Max(total, 0)
}

func summarize(values []float64) Summary {
	sum := Summary{Count: len(values), Percentiles: map[string]float64{}}
	if len(values) == 0 {
		return sum
	}
	sum.Mean, _ = stats.Mean(values)
	sum.Median, _ = stats.Median(values)
	sum.Min, _ = stats.Min(values)
	sum.Max, _ = stats.Max(values)
	sum.Range = sum.Max - sum.Min
	if len(values) > 1 {
		sum.Std, _ = stats.StandardDeviationSample(values)
		sum.Variance, _ = stats.SampleVariance(values)
	}
	if sum.Mean != 0 {
		sum.CV = sum.Std / sum.Mean
	}
	// Sample skew and kurtosis need three and four values.
	if sum.Std > 0 && len(values) >= 3 {
		sum.Skewness = stat.Skew(values, nil)
	}
	if sum.Std > 0 && len(values) >= 4 {
		sum.Kurtosis = stat.ExKurtosis(values, nil)
	}
	for _, p := range []float64{5, 10, 25, 50, 75, 90, 95} {
		if v, err := stats.Percentile(values, p); err == nil {
			sum.Percentiles[fmt.Sprintf("p%g", p)] = v
		}
	}
	return sum
}

func detectOutliers(values []float64, years []int) Outliers {
	n := len(values)
	out := Outliers{ZScore: []int{}, ModifiedZ: []int{}, IQR: []int{}, Grubbs: []int{}, Combined: []int{}, Values: []float64{}}
	if n < 3 {
		return out
	}
	flagged := make(map[int]struct{})
	mark := func(dst *[]int, i int) {
		*dst = append(*dst, years[i])
		flagged[i] = struct{}{}
	}

	mean, std := stat.MeanStdDev(values, nil)
	popStd := std * math.Sqrt(float64(n-1)/float64(n))
	if popStd > 0 {
		for i, v := range values {
			if math.Abs(v-mean)/popStd > zThreshold {
				mark(&out.ZScore, i)
			}
		}
	}

	median, _ := stats.Median(values)
	if mad, err := stats.MedianAbsoluteDeviation(values); err == nil && mad > 0 {
		for i, v := range values {
			if math.Abs(0.6745*(v-median)/mad) > modZThreshold {
				mark(&out.ModifiedZ, i)
			}
		}
	}

	if q, err := stats.Quartile(values); err == nil {
		iqr := q.Q3 - q.Q1
		lo, hi := q.Q1-iqrFence*iqr, q.Q3+iqrFence*iqr
		for i, v := range values {
			if v < lo || v > hi {
				mark(&out.IQR, i)
			}
		}
	}

	for _, i := range grubbs(values) {
		mark(&out.Grubbs, i)
	}

	idx := make([]int, 0, len(flagged))
	for i := range flagged {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	for _, i := range idx {
		out.Combined = append(out.Combined, years[i])
		out.Values = append(out.Values, values[i])
	}
	out.Percent = float64(len(idx)) / float64(n) * 100
	return out
}

// grubbs iteratively removes the most extreme observation while the Grubbs
// statistic exceeds its two-sided critical value, returning original indices.
func grubbs(values []float64) []int {
	type obs struct {
		idx int
		v   float64
	}
	data := make([]obs, len(values))
	for i, v := range values {
		data[i] = obs{i, v}
	}

	var out []int
	for len(data) >= 3 {
		n := len(data)
		vs := make([]float64, n)
		for i, o := range data {
			vs[i] = o.v
		}
		mean, std := stat.MeanStdDev(vs, nil)
		if !(std > 0) {
			break
		}
		worst, g := 0, 0.0
		for i, v := range vs {
			if d := math.Abs(v-mean) / std; d > g {
				worst, g = i, d
			}
		}
		if g <= grubbsCritical(n) {
			break
		}
		out = append(out, data[worst].idx)
		data = append(data[:worst], data[worst+1:]...)
	}
	return out
}

func grubbsCritical(n int) float64 {
	nf := float64(n)
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nf - 2}.Quantile(1 - alpha/(2*nf))
	return (nf - 1) / math.Sqrt(nf) * math.Sqrt(t*t/(nf-2+t*t))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func mannKendall(values []float64, years []int) Trend {
	n := len(values)
	tr := Trend{Direction: "none", PValue: 1}
	if n < 3 {
		return tr
	}
	tr.Performed = true

	var slopes []float64
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			tr.S += sign(values[j] - values[i])
			if dy := years[j] - years[i]; dy != 0 {
				slopes = append(slopes, (values[j]-values[i])/float64(dy))
			}
		}
	}
	if len(slopes) > 0 {
		tr.SenSlope, _ = stats.Median(slopes)
	}

	nf := float64(n)
	variance := nf * (nf - 1) * (2*nf + 5) / 18
	switch {
	case tr.S > 0:
		tr.Z = float64(tr.S-1) / math.Sqrt(variance)
	case tr.S < 0:
		tr.Z = float64(tr.S+1) / math.Sqrt(variance)
	}
	tr.PValue = 2 * (1 - distuv.UnitNormal.CDF(math.Abs(tr.Z)))
	if tr.PValue < alpha {
		tr.Significant = true
		tr.Direction = "decreasing"
		if tr.S > 0 {
			tr.Direction = "increasing"
		}
	}
	return tr
}

func pettitt(values []float64, years []int) Homogeneity {
	n := len(values)
	h := Homogeneity{Homogeneous: true, PValue: 1}
	if n < pettittMinSize {
		return h
	}
	h.Performed = true

	// U_t = sum over i <= t < j of sgn(x_i - x_j), accumulated row by row.
	u := 0.0
	best := 0
	for t := 0; t < n-1; t++ {
		for j := 0; j < n; j++ {
			u += float64(sign(values[t] - values[j]))
		}
		if math.Abs(u) > h.K {
			h.K = math.Abs(u)
			best = t
		}
	}
	nf := float64(n)
	h.PValue = math.Min(1, 2*math.Exp(-6*h.K*h.K/(nf*nf*nf+nf*nf)))
	h.Homogeneous = h.PValue >= alpha
	if h.K > 0 {
		h.ChangePointYear = years[best]
	}
	return h
}

func lag1(values []float64) Independence {
	n := len(values)
	ind := Independence{Independent: true, PValue: 1}
	if n < 4 {
		return ind
	}
	r, err := stats.Correlation(values[:n-1], values[1:])
	if err != nil || math.IsNaN(r) {
		return ind
	}
	ind.Performed = true
	ind.Lag1 = r
	ind.PValue = lag1PValue(r, n)
	ind.Independent = ind.PValue > alpha
	return ind
}

// lag1PValue is the two-sided p-value of t = r*sqrt((n-2)/(1-r^2)) under t(n-2).
func lag1PValue(r float64, n int) float64 {
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(float64(n-2)/(1-r*r))
	return 2 * (1 - distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}.CDF(math.Abs(t)))
}
