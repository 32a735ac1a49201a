// Package datasource holds the historical price cache used by backtests.
//
// Rows are fetched from an exchange.HistorySource on demand, kept in memory
// keyed by (symbol, granularity) and optionally persisted to DuckDB so later
// runs over the same range do not hit the network.
package datasource

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// SeriesKey identifies one cached series.
type SeriesKey struct {
	Symbol      string
	Granularity time.Duration
}

// Store persists cached series between runs.
type Store interface {
	// Load returns every stored row and covered range of the series.
	Load(ctx context.Context, key SeriesKey) ([]types.Bar, []TimeRange, error)
	// Save inserts rows that are not stored yet and replaces the coverage.
	Save(ctx context.Context, key SeriesKey, bars []types.Bar, covered []TimeRange) error
	// Close releases the underlying database.
	Close() error
}

// PriceReader is the cached-only view used while a backtest is replaying.
// None of its methods touch the network.
type PriceReader interface {
	// PriceAt returns the column of the latest row at or before t.
	PriceAt(symbol string, t time.Time, column types.PriceColumn) (float64, bool)
	// Bar aggregates the rows of the series for resolution inside [from, to).
	Bar(symbol string, resolution time.Duration, from, to time.Time) (types.Bar, bool)
	// History returns up to count rows with time <= now, oldest first.
	History(symbol string, resolution time.Duration, count int, now time.Time) []types.Bar
}
