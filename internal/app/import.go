package app

import (
	"context"
	"errors"
	"fmt"

	"flood-frequency/internal/series"
	"flood-frequency/internal/storage"
)

// ImportOptions configure loading a CSV file into the database.
type ImportOptions struct {
	Input   string
	Station string
	// AggFunc labels rows whose CSV has no agg_func column.
	AggFunc string
	DryRun  bool
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Import validates the CSV rows and upserts them into the configured store.
func (a *App) Import(ctx context.Context, opts ImportOptions) error {
	if opts.Input == "" {
		return errors.New("--input is required")
	}
	rows, err := storage.ReadCSVFile(opts.Input, opts.Station)
	if err != nil {
		return err
	}
	if opts.AggFunc != "" {
		agg, err := series.ParseAggFunc(opts.AggFunc)
		if err != nil {
			return err
		}
		for i := range rows {
			rows[i].AggFunc = agg
		}
	}

	// Reject duplicates and invalid values before touching the database.
	byAgg := make(map[series.AggFunc][]series.Record)
	for _, row := range rows {
		byAgg[row.AggFunc] = append(byAgg[row.AggFunc], row.Record())
	}
	for agg, records := range byAgg {
		if _, err := series.New(records); err != nil {
			return fmt.Errorf("agg %s: %w", agg, err)
		}
	}

	if opts.DryRun {
		a.Logger.Info().Int("rows", len(rows)).Msg("dry run: rows validated, nothing written")
		return nil
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot import")
	}
	defer closeStore()

	if m, ok := store.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}
	if err := store.UpsertExtremes(ctx, rows); err != nil {
		return err
	}
	a.Logger.Info().Int("rows", len(rows)).Str("input", opts.Input).Msg("annual extremes imported")
	return nil
}
