package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"flood-frequency/internal/series"
)

// SQLiteStore keeps annual extremes in a local SQLite file with the same
// layout as the PostgreSQL table. Values are stored as decimal text.
type SQLiteStore struct {
	db    *sql.DB
	table string
}

// NewSQLiteStore opens (and migrates) the database at path.
func NewSQLiteStore(ctx context.Context, path, table string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	if table == "" {
		table = DefaultTable
	}
	if !ValidTable(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db, table: table}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			station_id TEXT NOT NULL,
			year INTEGER NOT NULL,
			agg_func TEXT NOT NULL DEFAULT 'max',
			value TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'measured',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (station_id, year, agg_func)
		);`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_agg ON %s(agg_func, station_id);`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

// UpsertExtremes persists rows in one transaction.
func (s *SQLiteStore) UpsertExtremes(ctx context.Context, rows []ExtremeRow) (err error) {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (station_id, year, agg_func, value, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(station_id, year, agg_func)
		DO UPDATE SET
			value = excluded.value,
			source = excluded.source
	`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err = stmt.ExecContext(ctx, row.StationID, row.Year, string(aggOrDefault(row.AggFunc)), row.Value.String(), string(row.Source)); err != nil {
			return fmt.Errorf("upsert %s/%d: %w", row.StationID, row.Year, err)
		}
	}
	return tx.Commit()
}

// ListExtremes lists rows ordered by year then station.
func (s *SQLiteStore) ListExtremes(ctx context.Context, q Query) ([]ExtremeRow, error) {
	query := fmt.Sprintf(`SELECT station_id, year, agg_func, value, source FROM %s WHERE agg_func = ?`, s.table)
	args := []any{string(aggOrDefault(q.AggFunc))}
	if len(q.StationIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.StationIDs)), ",")
		query += " AND station_id IN (" + placeholders + ")"
		for _, id := range q.StationIDs {
			args = append(args, id)
		}
	}
	query += " ORDER BY year, station_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list extremes: %w", err)
	}
	defer rows.Close()

	out := make([]ExtremeRow, 0)
	for rows.Next() {
		var (
			row      ExtremeRow
			agg      string
			valueStr string
			source   string
		)
		if err := rows.Scan(&row.StationID, &row.Year, &agg, &valueStr, &source); err != nil {
			return nil, err
		}
		if row, err = finishRow(row, agg, valueStr, source); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ListStations summarises the stations holding extremes for agg.
func (s *SQLiteStore) ListStations(ctx context.Context, agg series.AggFunc) ([]Station, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT station_id, COUNT(*), MIN(year), MAX(year)
		FROM %s
		WHERE agg_func = ?
		GROUP BY station_id
		ORDER BY station_id`, s.table), string(aggOrDefault(agg)))
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	defer rows.Close()

	stations := make([]Station, 0)
	for rows.Next() {
		var st Station
		if err := rows.Scan(&st.ID, &st.Records, &st.FirstYear, &st.LastYear); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}
