package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/strategy"
)

// builtinStrategy registers its events for symbol at resolution.
type builtinStrategy func(s *strategy.Strategy, symbol string, resolution time.Duration) error

var builtinStrategies = map[string]builtinStrategy{
	"buy-and-hold": buyAndHold,
	"sma-cross":    smaCross(5, 20),
}

func strategyNames() []string {
	names := make([]string, 0, len(builtinStrategies))
	for name := range builtinStrategies {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// buyAndHold spends the whole quote balance on the first firing.
func buyAndHold(s *strategy.Strategy, symbol string, resolution time.Duration) error {
	_, quote, err := types.SplitSymbol(symbol)
	if err != nil {
		return err
	}

	return s.AddPriceEvent(func(_ float64, symbol string, state *strategy.State) error {
		if state.Variables.Has("bought") {
			return nil
		}

		account, err := state.Interface.GetAccount()
		if err != nil {
			return err
		}

		funds := account[quote].Available
		if funds <= 0 {
			return nil
		}

		if _, err := state.Interface.MarketOrderFunds(symbol, types.SideBuy, funds); err != nil {
			return err
		}

		state.Variables.Set("bought", true)

		return nil
	}, symbol, resolution)
}

// smaCross goes all in when the fast average of closes crosses above the
// slow one and exits when it crosses below.
func smaCross(fast, slow int) builtinStrategy {
	return func(s *strategy.Strategy, symbol string, resolution time.Duration) error {
		base, quote, err := types.SplitSymbol(symbol)
		if err != nil {
			return err
		}

		return s.AddBarEvent(func(_ types.Bar, symbol string, state *strategy.State) error {
			bars, err := state.Interface.History(symbol, slow, resolution)
			if err != nil || len(bars) < slow {
				//nolint:nilerr // not enough history yet
				return nil
			}

			fastAvg := averageClose(bars[len(bars)-fast:])
			slowAvg := averageClose(bars)

			account, err := state.Interface.GetAccount()
			if err != nil {
				return err
			}

			switch held := account[base].Available; {
			case fastAvg > slowAvg && held == 0 && account[quote].Available > 0:
				_, err = state.Interface.MarketOrderFunds(symbol, types.SideBuy, account[quote].Available)
			case fastAvg < slowAvg && held > 0:
				_, err = state.Interface.MarketOrder(symbol, types.SideSell, held)
			}

			if err != nil {
				return fmt.Errorf("sma-cross order failed: %w", err)
			}

			return nil
		}, symbol, resolution, strategy.WithName(fmt.Sprintf("sma-cross-%d-%d", fast, slow)))
	}
}

func averageClose(bars []types.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}

	var sum float64
	for _, bar := range bars {
		sum += bar.Close
	}

	return sum / float64(len(bars))
}
