// Package plotting assigns Weibull plotting positions to annual extremes.
package plotting

import (
	"math"
	"sort"

	"flood-frequency/internal/distribution"
	"flood-frequency/internal/series"
)

// EmpiricalPoint is one observation with its plotting position. Rank 1 is the
// largest value; equal values share the lowest rank of their group.
type EmpiricalPoint struct {
	Rank              int     `json:"rank"`
	ExceedancePercent float64 `json:"exceedance_probability_percent"`
	Value             float64 `json:"value"`
	Year              int     `json:"year"`
	StationID         string  `json:"station_id,omitempty"`
}

// WeibullPercent returns r/(n+1)*100.
func WeibullPercent(rank, n int) float64 {
	return float64(rank) / float64(n+1) * 100
}

// EmpiricalPoints ranks the series in descending value order and returns the
// points in ascending rank (and therefore ascending exceedance) order.
func EmpiricalPoints(s series.Series) []EmpiricalPoint {
	recs := s.Records()
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Value != recs[j].Value {
			return recs[i].Value > recs[j].Value
		}
		if recs[i].Year != recs[j].Year {
			return recs[i].Year < recs[j].Year
		}
		return recs[i].StationID < recs[j].StationID
	})

	n := len(recs)
	out := make([]EmpiricalPoint, n)
	rank := 0
	for i, rec := range recs {
		if i == 0 || rec.Value != recs[i-1].Value {
			rank = i + 1
		}
		out[i] = EmpiricalPoint{
			Rank:              rank,
			ExceedancePercent: WeibullPercent(rank, n),
			Value:             rec.Value,
			Year:              rec.Year,
			StationID:         rec.StationID,
		}
	}
	return out
}

// QQPoint pairs an observed order statistic with the fitted quantile at the
// same plotting position.
type QQPoint struct {
	Theoretical float64 `json:"theoretical"`
	Observed    float64 `json:"observed"`
}

// PPPoint pairs the fitted CDF at an observation with its plotting position.
type PPPoint struct {
	Theoretical float64 `json:"theoretical"`
	Empirical   float64 `json:"empirical"`
}

// Diagnostics holds QQ and PP data for one fitted distribution.
type Diagnostics struct {
	Distribution distribution.Family `json:"distribution"`
	QQ           []QQPoint           `json:"qq"`
	PP           []PPPoint           `json:"pp"`
}

// Diagnose computes QQ and PP points on ascending data with positions i/(n+1).
// QQ points whose fitted quantile is undefined are dropped.
func Diagnose(values []float64, d distribution.Distribution) Diagnostics {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	diag := Diagnostics{
		Distribution: d.Family(),
		QQ:           make([]QQPoint, 0, n),
		PP:           make([]PPPoint, 0, n),
	}
	for i, x := range sorted {
		p := float64(i+1) / float64(n+1)
		if q := d.Quantile(p); !math.IsNaN(q) && !math.IsInf(q, 0) {
			diag.QQ = append(diag.QQ, QQPoint{Theoretical: q, Observed: x})
		}
		diag.PP = append(diag.PP, PPPoint{Theoretical: d.CDF(x), Empirical: p})
	}
	return diag
}
