// Package trading defines the interface strategies trade through.
//
// The same TradingSystem is handed to strategy callbacks in live mode, where
// it is backed by an exchange, and in backtests, where the order simulator
// implements it on a paper ledger.
package trading

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

//nolint:interfacebloat // strategy-facing surface shared by live and paper mode
type TradingSystem interface {
	// MarketOrder buys or sells size base units at the current price.
	MarketOrder(symbol string, side types.Side, size float64) (types.Order, error)
	// MarketOrderFunds buys or sells base units worth funds of the quote currency.
	MarketOrderFunds(symbol string, side types.Side, funds float64) (types.Order, error)
	// LimitOrder places a resting order for size base units at price.
	LimitOrder(symbol string, side types.Side, price float64, size float64) (types.Order, error)
	// CancelOrder cancels an open order and returns it with status canceled.
	CancelOrder(symbol string, orderID string) (types.Order, error)
	// GetOpenOrders returns the open orders of symbol, oldest first.
	GetOpenOrders(symbol string) ([]types.Order, error)
	// GetOrder returns any order placed through this system.
	GetOrder(symbol string, orderID string) (types.Order, error)
	// GetAccount returns every known balance.
	GetAccount() (map[string]types.AssetBalance, error)
	// GetPrice returns the price of symbol at Time().
	GetPrice(symbol string) (float64, error)
	// GetFees returns the maker and taker rates charged for symbol.
	GetFees(symbol string) (types.Fees, error)
	// History returns the last count bars of symbol at resolution ending at Time().
	History(symbol string, count int, resolution time.Duration) ([]types.Bar, error)
	// Time is the simulated now in backtests and the wall clock live.
	Time() time.Time
}
