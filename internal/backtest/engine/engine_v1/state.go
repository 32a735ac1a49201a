package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	TradesFileName        = "trades.parquet"
	OrdersFileName        = "orders.parquet"
	AccountValuesFileName = "account_values.parquet"
)

var orderColumns = []string{
	"order_id", "symbol", "side", "order_type", "status", "size", "funds",
	"price", "fee", "created_at", "filled_at",
}

// BacktestState records the orders and account values of one run in an
// in-memory DuckDB database.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(log *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestStateNil, "failed to open state database", err)
	}

	return &BacktestState{
		db:     db,
		logger: log.Named("state"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the tables used by the run.
func (b *BacktestState) Initialize() error {
	_, err := b.db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			order_type TEXT,
			status TEXT,
			size DOUBLE,
			funds DOUBLE,
			price DOUBLE,
			fee DOUBLE,
			created_at TIMESTAMP,
			filled_at TIMESTAMP
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create orders table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS account_values (
			time TIMESTAMP,
			value DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create account_values table", err)
	}

	return nil
}

// RecordOrder inserts order or replaces the row with the same id.
func (b *BacktestState) RecordOrder(order types.Order) error {
	var filledAt any
	if !order.FilledAt.IsZero() {
		filledAt = order.FilledAt
	}

	_, err := b.sq.
		Insert("orders").
		Options("OR REPLACE").
		Columns(orderColumns...).
		Values(
			order.ID, order.Symbol, string(order.Side), string(order.Type), string(order.Status),
			order.Size, order.Funds, order.Price, order.Fee, order.CreatedAt, filledAt,
		).
		RunWith(b.db).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to record order %s", order.ID)
	}

	return nil
}

// RecordAccountValue appends one account value sample.
func (b *BacktestState) RecordAccountValue(sample types.AccountValueSample) error {
	_, err := b.sq.
		Insert("account_values").
		Columns("time", "value").
		Values(sample.Time, sample.Value).
		RunWith(b.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to record account value", err)
	}

	return nil
}

// GetAccountValues returns the recorded samples in time order.
func (b *BacktestState) GetAccountValues() ([]types.AccountValueSample, error) {
	rows, err := b.sq.Select("time", "value").From("account_values").OrderBy("time").RunWith(b.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query account values", err)
	}
	defer rows.Close()

	var samples []types.AccountValueSample

	for rows.Next() {
		var sample types.AccountValueSample
		if err := rows.Scan(&sample.Time, &sample.Value); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan account value", err)
		}

		sample.Time = sample.Time.UTC()
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read account values", err)
	}

	return samples, nil
}

// GetOrderByID returns the latest recorded version of an order.
func (b *BacktestState) GetOrderByID(orderID string) (optional.Option[types.Order], error) {
	orders, err := b.queryOrders(b.sq.Select(orderColumns...).From("orders").Where(squirrel.Eq{"order_id": orderID}))
	if err != nil {
		return optional.None[types.Order](), err
	}

	if len(orders) == 0 {
		return optional.None[types.Order](), nil
	}

	return optional.Some(orders[0]), nil
}

// GetFilledOrders returns every filled order by fill time.
func (b *BacktestState) GetFilledOrders() ([]types.Order, error) {
	return b.queryOrders(b.sq.
		Select(orderColumns...).
		From("orders").
		Where(squirrel.Eq{"status": string(types.OrderStatusFilled)}).
		OrderBy("filled_at", "created_at"))
}

// TotalFees sums the fees of filled orders.
func (b *BacktestState) TotalFees() (float64, error) {
	query, args, err := b.sq.
		Select("COALESCE(SUM(fee), 0)").
		From("orders").
		Where(squirrel.Eq{"status": string(types.OrderStatusFilled)}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build fee query", err)
	}

	var total float64
	if err := b.db.QueryRow(query, args...).Scan(&total); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to sum fees", err)
	}

	return total, nil
}

func (b *BacktestState) queryOrders(builder squirrel.SelectBuilder) ([]types.Order, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build order query", err)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query orders", err)
	}
	defer rows.Close()

	var orders []types.Order

	for rows.Next() {
		var (
			order                   types.Order
			side, orderType, status string
			filledAt                sql.NullTime
		)

		err := rows.Scan(&order.ID, &order.Symbol, &side, &orderType, &status,
			&order.Size, &order.Funds, &order.Price, &order.Fee, &order.CreatedAt, &filledAt)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan order", err)
		}

		order.Side = types.Side(side)
		order.Type = types.OrderType(orderType)
		order.Status = types.OrderStatus(status)
		order.CreatedAt = order.CreatedAt.UTC()

		if filledAt.Valid {
			order.FilledAt = filledAt.Time.UTC()
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read orders", err)
	}

	return orders, nil
}

// Cleanup removes every recorded row.
func (b *BacktestState) Cleanup() error {
	for _, table := range []string{"orders", "account_values"} {
		if _, err := b.db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to clean up %s", table)
		}
	}

	return nil
}

// Write exports trades, orders and account values to parquet files in path.
func (b *BacktestState) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to create result folder", err)
	}

	// squirrel cannot build COPY statements
	exports := []struct {
		file  string
		query string
	}{
		{file: TradesFileName, query: "SELECT * FROM orders WHERE status = 'filled' ORDER BY filled_at, created_at"},
		{file: OrdersFileName, query: "SELECT * FROM orders ORDER BY created_at"},
		{file: AccountValuesFileName, query: "SELECT * FROM account_values ORDER BY time"},
	}

	for _, export := range exports {
		target := filepath.Join(path, export.file)

		_, err := b.db.Exec(fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)", export.query, target))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestResultWrite, err, "failed to export %s", export.file)
		}

		b.logger.Debug("Exported run state", zap.String("path", target))
	}

	return nil
}

// Close closes the database.
func (b *BacktestState) Close() error {
	return b.db.Close()
}
