package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"flood-frequency/internal/storage"
)

// StationsOptions configure the stations command.
type StationsOptions struct {
	Source SourceOptions
	Format string
}

// Stations lists the stations and record counts available in the source.
func (a *App) Stations(ctx context.Context, opts StationsOptions) error {
	agg, err := a.aggFunc(opts.Source.AggFunc)
	if err != nil {
		return err
	}
	r, closeReader, err := a.reader(ctx, opts.Source)
	if err != nil {
		return err
	}
	defer closeReader()

	stations, err := r.ListStations(ctx, agg)
	if err != nil {
		return err
	}
	if strings.EqualFold(opts.Format, FormatJSON) {
		if stations == nil {
			stations = []storage.Station{}
		}
		return writeJSON(a.Out, stations)
	}
	if len(stations) == 0 {
		fmt.Fprintln(a.Out, "no stations found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Station\tRecords\tFirst year\tLast year\tSpan")
	for _, st := range stations {
		fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%d\n", st.ID, st.Records, st.FirstYear, st.LastYear, st.LastYear-st.FirstYear+1)
	}
	return writer.Flush()
}
