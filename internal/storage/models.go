package storage

import (
	"github.com/shopspring/decimal"

	"flood-frequency/internal/series"
)

// Station summarises the annual extremes stored for one gauge.
type Station struct {
	ID        string `json:"station_id"`
	Records   int    `json:"records"`
	FirstYear int    `json:"first_year"`
	LastYear  int    `json:"last_year"`
}

// Query selects annual extremes. An empty StationIDs matches every station.
type Query struct {
	StationIDs []string
	AggFunc    series.AggFunc
}

// ExtremeRow is the persisted shape of one annual extreme. Value is kept as a
// decimal so NUMERIC columns round-trip without float noise.
type ExtremeRow struct {
	StationID string
	Year      int
	AggFunc   series.AggFunc
	Value     decimal.Decimal
	Source    series.Source
}

// Record converts the row into a series record.
func (r ExtremeRow) Record() series.Record {
	return series.Record{
		StationID: r.StationID,
		Year:      r.Year,
		Value:     r.Value.InexactFloat64(),
		Source:    r.Source,
	}
}

// RowFromRecord builds a row for persistence.
func RowFromRecord(rec series.Record, agg series.AggFunc) ExtremeRow {
	source := rec.Source
	if source == "" {
		source = series.SourceMeasured
	}
	return ExtremeRow{
		StationID: rec.StationID,
		Year:      rec.Year,
		AggFunc:   agg,
		Value:     decimal.NewFromFloat(rec.Value),
		Source:    source,
	}
}
