package engine

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Valuator prices a set of balances in one quote asset.
type Valuator struct {
	quote  string
	prices datasource.PriceReader
	column types.PriceColumn
	logger *logger.Logger

	mu     sync.Mutex
	warned map[string]bool
}

func NewValuator(quote string, prices datasource.PriceReader, column types.PriceColumn, log *logger.Logger) *Valuator {
	return &Valuator{
		quote:  quote,
		prices: prices,
		column: column,
		logger: log.Named("valuation"),
		mu:     sync.Mutex{},
		warned: make(map[string]bool),
	}
}

// Sample values balances at now. Each asset counts available plus hold
// times the price of <asset>-<quote>. An asset without a known price
// counts as zero and is reported once.
func (v *Valuator) Sample(balances map[string]types.AssetBalance, now time.Time) types.AccountValueSample {
	total := decimal.Zero
	holdings := make(map[string]float64, len(balances))

	for asset, balance := range balances {
		amount := decimal.NewFromFloat(balance.Available).Add(decimal.NewFromFloat(balance.Hold))
		holdings[asset] = amount.InexactFloat64()

		if amount.IsZero() {
			continue
		}

		if asset == v.quote {
			total = total.Add(amount)

			continue
		}

		price, ok := v.prices.PriceAt(types.JoinSymbol(asset, v.quote), now, v.column)
		if !ok {
			v.warnOnce(asset, now)

			continue
		}

		total = total.Add(amount.Mul(decimal.NewFromFloat(price)))
	}

	return types.AccountValueSample{
		Time:     now,
		Value:    total.InexactFloat64(),
		Holdings: holdings,
	}
}

func (v *Valuator) warnOnce(asset string, now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.warned[asset] {
		return
	}

	v.warned[asset] = true
	v.logger.Warn("No price to value asset, counting it as zero",
		zap.String("asset", asset),
		zap.String("quote", v.quote),
		zap.Time("time", now))
}
