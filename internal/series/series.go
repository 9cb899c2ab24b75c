package series

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrDuplicateYear indicates two records share the same (station, year) key.
	ErrDuplicateYear = errors.New("series: duplicate station year")
	// ErrInvalidValue indicates a negative or non-finite record value.
	ErrInvalidValue = errors.New("series: invalid value")
	// ErrUnknownAggFunc indicates an unsupported aggregation label.
	ErrUnknownAggFunc = errors.New("series: unknown aggregation function")
)

// Source labels the provenance of an annual extreme.
type Source string

const (
	SourceMeasured   Source = "measured"
	SourceTest       Source = "test"
	SourceValidation Source = "validation"
)

// ParseSource maps a free-form label onto a Source, defaulting to measured.
func ParseSource(v string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(SourceMeasured):
		return SourceMeasured, nil
	case string(SourceTest):
		return SourceTest, nil
	case string(SourceValidation):
		return SourceValidation, nil
	default:
		return "", fmt.Errorf("series: unknown source %q", v)
	}
}

// AggFunc names how sub-annual measurements were reduced upstream.
type AggFunc string

const (
	AggMax  AggFunc = "max"
	AggMin  AggFunc = "min"
	AggMean AggFunc = "mean"
)

// ParseAggFunc validates an aggregation label.
func ParseAggFunc(v string) (AggFunc, error) {
	switch AggFunc(strings.ToLower(strings.TrimSpace(v))) {
	case AggMax:
		return AggMax, nil
	case AggMin:
		return AggMin, nil
	case AggMean:
		return AggMean, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAggFunc, v)
	}
}

// Record is one aggregated value for a station and year.
type Record struct {
	StationID string  `json:"station_id"`
	Year      int     `json:"year"`
	Value     float64 `json:"value"`
	Source    Source  `json:"source"`
}

// DuplicateYearError reports the first offending key.
type DuplicateYearError struct {
	StationID string
	Year      int
}

func (e *DuplicateYearError) Error() string {
	return fmt.Sprintf("series: duplicate record for station %q year %d", e.StationID, e.Year)
}

func (e *DuplicateYearError) Unwrap() error { return ErrDuplicateYear }

// Series is an immutable, year-ordered collection of annual extremes.
type Series struct {
	records []Record
}

// New validates records and returns them ordered by year then station.
func New(records []Record) (Series, error) {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) || rec.Value < 0 {
			return Series{}, fmt.Errorf("%w: station %q year %d value %v", ErrInvalidValue, rec.StationID, rec.Year, rec.Value)
		}
		key := fmt.Sprintf("%s|%d", rec.StationID, rec.Year)
		if _, dup := seen[key]; dup {
			return Series{}, &DuplicateYearError{StationID: rec.StationID, Year: rec.Year}
		}
		seen[key] = struct{}{}
		if rec.Source == "" {
			rec.Source = SourceMeasured
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].StationID < out[j].StationID
	})
	return Series{records: out}, nil
}

// FromValues builds a single-station series with consecutive years starting at firstYear.
func FromValues(stationID string, firstYear int, values []float64) (Series, error) {
	records := make([]Record, len(values))
	for i, v := range values {
		records[i] = Record{StationID: stationID, Year: firstYear + i, Value: v, Source: SourceMeasured}
	}
	return New(records)
}

// Len returns the number of records.
func (s Series) Len() int { return len(s.records) }

// Records returns a copy of the ordered records.
func (s Series) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Values returns the record values in year order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Value
	}
	return out
}

// Years returns the record years in order.
func (s Series) Years() []int {
	out := make([]int, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Year
	}
	return out
}

// YearSpan returns max(year) - min(year) + 1, or 0 for an empty series.
func (s Series) YearSpan() int {
	if len(s.records) == 0 {
		return 0
	}
	return s.records[len(s.records)-1].Year - s.records[0].Year + 1
}

// Stations lists distinct station ids in ascending order.
func (s Series) Stations() []string {
	set := make(map[string]struct{})
	for _, rec := range s.records {
		set[rec.StationID] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
