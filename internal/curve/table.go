package curve

import (
	"math"

	"flood-frequency/internal/distribution"
)

// DesignPercents are the exceedance percentages of the standard design table.
var DesignPercents = []float64{
	0.01, 0.1, 0.2, 0.33, 0.5, 1, 1.5, 2, 3, 5, 10, 20, 25, 30,
	40, 50, 60, 70, 75, 80, 85, 90, 95, 97, 99, 99.9, 99.99,
}

// DesignValue is one row of the design frequency table.
type DesignValue struct {
	ExceedancePercent float64 `json:"exceedance_probability_percent"`
	ReturnPeriod      float64 `json:"return_period"`
	Value             float64 `json:"value"`
}

// FrequencyTable evaluates d at every DesignPercents entry, skipping rows with
// an undefined quantile.
func FrequencyTable(d distribution.Distribution) []DesignValue {
	out := make([]DesignValue, 0, len(DesignPercents))
	for _, p := range DesignPercents {
		v := d.Quantile(1 - p/100)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, DesignValue{ExceedancePercent: p, ReturnPeriod: 100 / p, Value: v})
	}
	return out
}
