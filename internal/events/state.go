package events

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/trading"
)

// State is handed to every invocation of one event. The same pointer is
// reused for the whole run.
type State struct {
	// Interface is the trading system the strategy trades on, paper or live.
	Interface  trading.TradingSystem
	Variables  *Variables
	Symbol     string
	Resolution time.Duration
}

// Time returns the simulated now in backtests and the wall clock live.
func (s *State) Time() time.Time {
	return s.Interface.Time()
}
