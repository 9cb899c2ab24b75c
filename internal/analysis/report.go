package analysis

import (
	"flood-frequency/internal/curve"
	"flood-frequency/internal/distribution"
	"flood-frequency/internal/plotting"
	"flood-frequency/internal/quality"
	"flood-frequency/internal/returnperiod"
	"flood-frequency/internal/series"
)

// Report is the complete result of one frequency analysis. It carries no
// timestamps so identical inputs produce identical reports.
type Report struct {
	StationIDs            []string                 `json:"station_ids"`
	AggFunc               series.AggFunc           `json:"agg_func"`
	Quality               quality.QualityGrade     `json:"quality"`
	Assessment            quality.Assessment       `json:"assessment"`
	DistributionFits      []distribution.FitResult `json:"distribution_fits"`
	Ranking               []distribution.Family    `json:"ranking"`
	BestDistribution      distribution.FitResult   `json:"best_distribution"`
	SelectedDistribution  distribution.Family      `json:"selected_distribution"`
	FrequencyCurve        curve.Curve              `json:"frequency_curve"`
	ReturnPeriodEstimates []returnperiod.Estimate  `json:"return_period_estimates"`
	FrequencyTable        []curve.DesignValue      `json:"frequency_table"`
	Diagnostics           plotting.Diagnostics     `json:"diagnostics"`
	Uncertainty           *UncertaintyInfo         `json:"uncertainty,omitempty"`
	Warnings              []string                 `json:"warnings"`
}

// UncertaintyInfo describes how confidence bounds were obtained. Error is set
// when the bootstrap failed and the bounds were dropped.
type UncertaintyInfo struct {
	Method     string  `json:"method"`
	Samples    int     `json:"samples"`
	Attempts   int     `json:"attempts"`
	Confidence float64 `json:"confidence_level"`
	Seed       uint64  `json:"seed"`
	Error      string  `json:"error,omitempty"`
}

// Selected returns the fit result used for the curve and design values.
func (r Report) Selected() (distribution.FitResult, bool) {
	for _, f := range r.DistributionFits {
		if f.Family == r.SelectedDistribution {
			return f, f.OK()
		}
	}
	return distribution.FitResult{}, false
}

// Estimate returns the design value for return period t.
func (r Report) Estimate(t int) (returnperiod.Estimate, bool) {
	for _, e := range r.ReturnPeriodEstimates {
		if e.ReturnPeriod == t {
			return e, true
		}
	}
	return returnperiod.Estimate{}, false
}
