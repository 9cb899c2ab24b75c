package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"flood-frequency/internal/series"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNoRecords indicates a query matched no annual extremes.
	ErrNoRecords = errors.New("storage: no annual extremes found")
	// ErrInvalidTable indicates a table name that is not a plain identifier.
	ErrInvalidTable = errors.New("storage: invalid table name")
)

// DefaultTable holds annual extremes unless configured otherwise.
const DefaultTable = "annual_extremes"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTable reports whether name can be interpolated into SQL as a table.
func ValidTable(name string) bool {
	return identifierPattern.MatchString(name)
}

const (
	pgCreateTableSQL = `CREATE TABLE IF NOT EXISTS %s (
        station_id TEXT     NOT NULL,
        year       INTEGER  NOT NULL,
        agg_func   TEXT     NOT NULL DEFAULT 'max',
        value      NUMERIC  NOT NULL CHECK (value >= 0),
        source     TEXT     NOT NULL DEFAULT 'measured',
        created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (station_id, year, agg_func)
    );`

	pgUpsertExtremeSQL = `INSERT INTO %s (
        station_id,
        year,
        agg_func,
        value,
        source
    ) VALUES (
        $1,$2,$3,$4::numeric,$5
    )
    ON CONFLICT (station_id, year, agg_func) DO UPDATE
    SET
        value  = EXCLUDED.value,
        source = EXCLUDED.source;`

	pgListExtremesSQL = `SELECT
        station_id,
        year,
        agg_func,
        value::text,
        source
    FROM %s
    WHERE agg_func = $1
      AND (cardinality($2::text[]) = 0 OR station_id = ANY($2::text[]))
    ORDER BY year, station_id;`

	pgListStationsSQL = `SELECT
        station_id,
        COUNT(*),
        MIN(year),
        MAX(year)
    FROM %s
    WHERE agg_func = $1
    GROUP BY station_id
    ORDER BY station_id;`
)

// SeriesReader loads annual extremes.
type SeriesReader interface {
	ListExtremes(ctx context.Context, q Query) ([]ExtremeRow, error)
	ListStations(ctx context.Context, agg series.AggFunc) ([]Station, error)
}

// SeriesWriter persists annual extremes.
type SeriesWriter interface {
	UpsertExtremes(ctx context.Context, rows []ExtremeRow) error
}

// SeriesStore is a closable read/write store.
type SeriesStore interface {
	SeriesReader
	SeriesWriter
	Close() error
}

// LoadSeries reads the rows matching q and builds a validated series.
func LoadSeries(ctx context.Context, r SeriesReader, q Query) (series.Series, error) {
	rows, err := r.ListExtremes(ctx, q)
	if err != nil {
		return series.Series{}, err
	}
	if len(rows) == 0 {
		return series.Series{}, fmt.Errorf("%w: stations %v agg %s", ErrNoRecords, q.StationIDs, q.AggFunc)
	}
	records := make([]series.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record()
	}
	return series.New(records)
}

// Store reads and writes annual extremes in PostgreSQL.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !ValidTable(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// Migrate creates the extremes table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(pgCreateTableSQL, s.table)); err != nil {
		return fmt.Errorf("create %s: %w", s.table, err)
	}
	return nil
}

// UpsertExtremes persists rows in one transaction.
func (s *Store) UpsertExtremes(ctx context.Context, rows []ExtremeRow) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	query := fmt.Sprintf(pgUpsertExtremeSQL, s.table)
	for _, row := range rows {
		batch.Queue(query, row.StationID, row.Year, string(row.AggFunc), row.Value.String(), string(row.Source))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert extremes: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// ListExtremes lists rows ordered by year then station.
func (s *Store) ListExtremes(ctx context.Context, q Query) ([]ExtremeRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	stations := q.StationIDs
	if stations == nil {
		stations = []string{}
	}
	rows, queryErr := pool.Query(ctx, fmt.Sprintf(pgListExtremesSQL, s.table), string(aggOrDefault(q.AggFunc)), stations)
	if queryErr != nil {
		return nil, fmt.Errorf("list extremes: %w", queryErr)
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
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListStations summarises the stations holding extremes for agg.
func (s *Store) ListStations(ctx context.Context, agg series.AggFunc) ([]Station, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, fmt.Sprintf(pgListStationsSQL, s.table), string(aggOrDefault(agg)))
	if queryErr != nil {
		return nil, fmt.Errorf("list stations: %w", queryErr)
	}
	defer rows.Close()

	stations := make([]Station, 0)
	for rows.Next() {
		var st Station
		var count int64
		if err := rows.Scan(&st.ID, &count, &st.FirstYear, &st.LastYear); err != nil {
			return nil, err
		}
		st.Records = int(count)
		stations = append(stations, st)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stations, nil
}

func aggOrDefault(agg series.AggFunc) series.AggFunc {
	if agg == "" {
		return series.AggMax
	}
	return agg
}

func finishRow(row ExtremeRow, agg, valueStr, source string) (ExtremeRow, error) {
	var err error
	if row.AggFunc, err = series.ParseAggFunc(agg); err != nil {
		return ExtremeRow{}, err
	}
	if row.Value, err = decimal.NewFromString(valueStr); err != nil {
		return ExtremeRow{}, fmt.Errorf("parse value for %s/%d: %w", row.StationID, row.Year, err)
	}
	if row.Source, err = series.ParseSource(source); err != nil {
		return ExtremeRow{}, err
	}
	return row, nil
}
