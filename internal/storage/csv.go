package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"flood-frequency/internal/series"
)

// ErrMissingColumn indicates a CSV header without a required column.
var ErrMissingColumn = errors.New("storage: missing csv column")

// ReadCSV parses annual extremes from a headed CSV stream. Required columns
// are year and value; station_id and source are optional and default to
// defaultStation and measured. Header names are case-insensitive.
func ReadCSV(r io.Reader, defaultStation string) ([]ExtremeRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}

	index := make(map[string]int, len(all[0]))
	for i, h := range all[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"year", "value"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	field := func(rec []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	rows := make([]ExtremeRow, 0, len(all)-1)
	for n, rec := range all[1:] {
		line := n + 2
		year, err := strconv.Atoi(field(rec, "year"))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse year: %w", line, err)
		}
		value, err := decimal.NewFromString(field(rec, "value"))
		if err != nil {
			return nil, fmt.Errorf("line %d: parse value: %w", line, err)
		}
		station := field(rec, "station_id")
		if station == "" {
			station = defaultStation
		}
		source, err := series.ParseSource(field(rec, "source"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		agg := series.AggMax
		if raw := field(rec, "agg_func"); raw != "" {
			if agg, err = series.ParseAggFunc(raw); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		rows = append(rows, ExtremeRow{
			StationID: station,
			Year:      year,
			AggFunc:   agg,
			Value:     value,
			Source:    source,
		})
	}
	return rows, nil
}

// ReadCSVFile reads the annual extremes in path.
func ReadCSVFile(path, defaultStation string) (RowSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadCSV(f, defaultStation)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return RowSet(rows), nil
}

// RowSet serves in-memory rows through the SeriesReader interface. Rows
// without an aggregation label count as max.
type RowSet []ExtremeRow

func (rs RowSet) ListExtremes(_ context.Context, q Query) ([]ExtremeRow, error) {
	wanted := make(map[string]bool, len(q.StationIDs))
	for _, id := range q.StationIDs {
		wanted[id] = true
	}
	agg := aggOrDefault(q.AggFunc)
	out := make([]ExtremeRow, 0, len(rs))
	for _, row := range rs {
		if aggOrDefault(row.AggFunc) != agg {
			continue
		}
		if len(wanted) > 0 && !wanted[row.StationID] {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

func (rs RowSet) ListStations(ctx context.Context, agg series.AggFunc) ([]Station, error) {
	rows, _ := rs.ListExtremes(ctx, Query{AggFunc: agg})
	byID := make(map[string]*Station)
	order := make([]string, 0)
	for _, row := range rows {
		st, ok := byID[row.StationID]
		if !ok {
			st = &Station{ID: row.StationID, FirstYear: row.Year, LastYear: row.Year}
			byID[row.StationID] = st
			order = append(order, row.StationID)
		}
		st.Records++
		st.FirstYear = min(st.FirstYear, row.Year)
		st.LastYear = max(st.LastYear, row.Year)
	}
	sort.Strings(order)
	out := make([]Station, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out, nil
}
