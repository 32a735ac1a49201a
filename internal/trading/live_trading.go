package trading

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds every exchange call made by LiveTrading.
const DefaultRequestTimeout = 30 * time.Second

// LiveTrading implements TradingSystem on a real exchange.
type LiveTrading struct {
	ctx      context.Context
	exchange exchange.Exchange
	logger   *logger.Logger
	timeout  time.Duration
	now      func() time.Time
}

// NewLiveTrading binds the exchange to ctx; cancelling ctx aborts pending calls.
func NewLiveTrading(ctx context.Context, ex exchange.Exchange, log *logger.Logger) *LiveTrading {
	return &LiveTrading{
		ctx:      ctx,
		exchange: ex,
		logger:   log.Named("live_trading"),
		timeout:  DefaultRequestTimeout,
		now:      time.Now,
	}
}

// SetTimeout overrides DefaultRequestTimeout. Non-positive values are ignored.
func (l *LiveTrading) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		l.timeout = timeout
	}
}

func (l *LiveTrading) call() (context.Context, context.CancelFunc) {
	return context.WithTimeout(l.ctx, l.timeout)
}

func (l *LiveTrading) MarketOrder(symbol string, side types.Side, size float64) (types.Order, error) {
	ctx, cancel := l.call()
	defer cancel()

	order, err := l.exchange.MarketOrder(ctx, types.MarketOrderRequest{Symbol: symbol, Side: side, Size: size, Funds: 0})
	if err != nil {
		return types.Order{}, err
	}

	l.logger.Info("Market order placed",
		zap.String("id", order.ID),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("size", size))

	return order, nil
}

func (l *LiveTrading) MarketOrderFunds(symbol string, side types.Side, funds float64) (types.Order, error) {
	ctx, cancel := l.call()
	defer cancel()

	order, err := l.exchange.MarketOrder(ctx, types.MarketOrderRequest{Symbol: symbol, Side: side, Size: 0, Funds: funds})
	if err != nil {
		return types.Order{}, err
	}

	l.logger.Info("Market order placed",
		zap.String("id", order.ID),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("funds", funds))

	return order, nil
}

func (l *LiveTrading) LimitOrder(symbol string, side types.Side, price float64, size float64) (types.Order, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.LimitOrder(ctx, types.LimitOrderRequest{Symbol: symbol, Side: side, Price: price, Size: size})
}

func (l *LiveTrading) CancelOrder(symbol string, orderID string) (types.Order, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.CancelOrder(ctx, symbol, orderID)
}

func (l *LiveTrading) GetOpenOrders(symbol string) ([]types.Order, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.GetOpenOrders(ctx, symbol)
}

func (l *LiveTrading) GetOrder(symbol string, orderID string) (types.Order, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.GetOrder(ctx, symbol, orderID)
}

func (l *LiveTrading) GetAccount() (map[string]types.AssetBalance, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.GetAccount(ctx)
}

func (l *LiveTrading) GetPrice(symbol string) (float64, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.GetPrice(ctx, symbol)
}

func (l *LiveTrading) GetFees(symbol string) (types.Fees, error) {
	ctx, cancel := l.call()
	defer cancel()

	return l.exchange.GetFees(ctx, symbol)
}

// History fetches the last count bars directly from the exchange.
// resolution is rounded to the nearest granularity the exchange accepts.
func (l *LiveTrading) History(symbol string, count int, resolution time.Duration) ([]types.Bar, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "count must be positive, got %d", count)
	}

	ctx, cancel := l.call()
	defer cancel()

	granularity, _ := exchange.RoundGranularity(resolution, l.exchange.Granularities())
	end := l.Time()
	start := end.Add(-time.Duration(count+1) * granularity)

	bars, err := l.exchange.GetProductHistory(ctx, symbol, start, end, granularity)
	if err != nil {
		return nil, err
	}

	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}

	return bars, nil
}

func (l *LiveTrading) Time() time.Time {
	return l.now().UTC()
}
