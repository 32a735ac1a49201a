package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called once the range is resolved and every init succeeded.
type OnBacktestStartCallback func(start time.Time, end time.Time, totalTicks int) error

// OnBacktestEndCallback is called when the backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnTickCallback is called after every firing, once the account value is sampled.
type OnTickCallback func(current int, total int) error

// OnOrderFilledCallback is called for every simulated fill.
type OnOrderFilledCallback func(order types.Order)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart *OnBacktestStartCallback
	OnBacktestEnd   *OnBacktestEndCallback
	OnTick          *OnTickCallback
	OnOrderFilled   *OnOrderFilledCallback
}

type Engine interface {
	// LoadEvents sets the events the next Run drives.
	LoadEvents(registered []*events.EventDefinition) error
	// AddPrices primes the price cache for symbol at resolution over [start, end).
	AddPrices(ctx context.Context, symbol string, resolution time.Duration, start, end time.Time) error
	// WriteInitialPriceValues seeds the paper account, asset to amount.
	WriteInitialPriceValues(values map[string]float64) error
	// Run runs the backtest end to end.
	// The context can be used to cancel the backtest operation.
	// Use LifecycleCallbacks to receive notifications at different phases of the backtest.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.BacktestResult, error)
	// Stop ends a running backtest at the next tick boundary.
	Stop()
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
	// Close releases the price cache and run state.
	Close() error
}
