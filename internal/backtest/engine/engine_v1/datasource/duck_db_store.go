package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"go.uber.org/zap"
)

// CacheFileName is the DuckDB file created inside the cache location.
const CacheFileName = "price_cache.duckdb"

// insertBatchSize bounds the rows of one INSERT statement.
const insertBatchSize = 500

// DuckDBStore keeps cached series in a DuckDB file.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens (or creates) <location>/price_cache.duckdb.
// Use ":memory:" as location for an in-memory store.
func NewDuckDBStore(location string, log *logger.Logger) (*DuckDBStore, error) {
	path := location
	if location != ":memory:" {
		if err := os.MkdirAll(location, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache location: %w", err)
		}

		path = filepath.Join(location, CacheFileName)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache: %w", err)
	}

	store := &DuckDBStore{
		db:     db,
		logger: log.Named("duckdb_store"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	store.logger.Debug("Opened price cache", zap.String("path", path))

	return store, nil
}

func (d *DuckDBStore) initialize() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			symbol TEXT,
			granularity BIGINT,
			ts BIGINT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, granularity, ts)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create bars table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS coverage (
			symbol TEXT,
			granularity BIGINT,
			range_start BIGINT,
			range_end BIGINT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create coverage table: %w", err)
	}

	return nil
}

// Load implements Store.
func (d *DuckDBStore) Load(ctx context.Context, key SeriesKey) ([]types.Bar, []TimeRange, error) {
	seconds := int64(key.Granularity / time.Second)

	query, args, err := d.sq.
		Select("ts", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.And{
			squirrel.Eq{"symbol": key.Symbol},
			squirrel.Eq{"granularity": seconds},
		}).
		OrderBy("ts ASC").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var (
			ts                             int64
			open, high, low, close, volume float64
		)

		if err := rows.Scan(&ts, &open, &high, &low, &close, &volume); err != nil {
			return nil, nil, fmt.Errorf("failed to scan bar: %w", err)
		}

		bars = append(bars, types.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate bars: %w", err)
	}

	query, args, err = d.sq.
		Select("range_start", "range_end").
		From("coverage").
		Where(squirrel.And{
			squirrel.Eq{"symbol": key.Symbol},
			squirrel.Eq{"granularity": seconds},
		}).
		OrderBy("range_start ASC").
		ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build query: %w", err)
	}

	coverageRows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query coverage: %w", err)
	}
	defer coverageRows.Close()

	var covered []TimeRange

	for coverageRows.Next() {
		var start, end int64
		if err := coverageRows.Scan(&start, &end); err != nil {
			return nil, nil, fmt.Errorf("failed to scan coverage: %w", err)
		}

		covered = append(covered, TimeRange{Start: time.Unix(start, 0).UTC(), End: time.Unix(end, 0).UTC()})
	}

	return bars, covered, coverageRows.Err()
}

// Save implements Store.
func (d *DuckDBStore) Save(ctx context.Context, key SeriesKey, bars []types.Bar, covered []TimeRange) error {
	seconds := int64(key.Granularity / time.Second)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for start := 0; start < len(bars); start += insertBatchSize {
		end := min(start+insertBatchSize, len(bars))

		insert := d.sq.
			Insert("bars").
			Options("OR IGNORE").
			Columns("symbol", "granularity", "ts", "open", "high", "low", "close", "volume")

		for _, bar := range bars[start:end] {
			insert = insert.Values(key.Symbol, seconds, bar.Time.Unix(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to build insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to insert bars: %w", err)
		}
	}

	query, args, err := d.sq.
		Delete("coverage").
		Where(squirrel.And{
			squirrel.Eq{"symbol": key.Symbol},
			squirrel.Eq{"granularity": seconds},
		}).
		ToSql()
	if err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to build delete: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		tx.Rollback()

		return fmt.Errorf("failed to clear coverage: %w", err)
	}

	if len(covered) > 0 {
		insert := d.sq.Insert("coverage").Columns("symbol", "granularity", "range_start", "range_end")
		for _, r := range covered {
			insert = insert.Values(key.Symbol, seconds, r.Start.Unix(), r.End.Unix())
		}

		query, args, err := insert.ToSql()
		if err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to build insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback()

			return fmt.Errorf("failed to insert coverage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close implements Store.
func (d *DuckDBStore) Close() error {
	if d.db != nil {
		return d.db.Close()
	}

	return nil
}
var _ Store = (*DuckDBStore)(nil)
