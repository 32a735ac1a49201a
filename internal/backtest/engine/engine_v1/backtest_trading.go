package engine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/ledger"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/trading"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ trading.TradingSystem = (*BacktestTrading)(nil)

// MarketRules supplies the fees and trading rules of a symbol.
// exchange.Exchange satisfies it.
type MarketRules interface {
	GetFees(ctx context.Context, symbol string) (types.Fees, error)
	GetOrderFilter(ctx context.Context, symbol string) (types.OrderFilter, error)
}

// StaticMarketRules serves the same fees to every symbol. Symbols without
// an entry in Filters use types.DefaultOrderFilter.
type StaticMarketRules struct {
	Fees    types.Fees
	Filters map[string]types.OrderFilter
}

func (r StaticMarketRules) GetFees(_ context.Context, _ string) (types.Fees, error) {
	return r.Fees, nil
}

func (r StaticMarketRules) GetOrderFilter(_ context.Context, symbol string) (types.OrderFilter, error) {
	if filter, ok := r.Filters[symbol]; ok {
		return filter, nil
	}

	return types.DefaultOrderFilter(symbol), nil
}

// BacktestTrading simulates order execution against cached prices at the
// simulated now. Market orders fill immediately; limit orders hold funds
// until they fill or are cancelled.
type BacktestTrading struct {
	mu                 sync.Mutex
	ctx                context.Context
	state              *BacktestState
	ledger             *ledger.Ledger
	prices             *datasource.PriceCache
	clock              *Clock
	rules              MarketRules
	feeModel           commission_fee.FeeModel
	priceColumn        types.PriceColumn
	simulateLimitFills bool
	logger             *logger.Logger
	onOrderFilled      func(order types.Order)

	fees    map[string]types.Fees
	filters map[string]types.OrderFilter
	orders  map[string]*types.Order
	open    []string
	holds   map[string]decimal.Decimal
}

func NewBacktestTrading(
	state *BacktestState,
	book *ledger.Ledger,
	prices *datasource.PriceCache,
	clock *Clock,
	rules MarketRules,
	config BacktestEngineV1Config,
	log *logger.Logger,
) *BacktestTrading {
	return &BacktestTrading{
		mu:                 sync.Mutex{},
		ctx:                context.Background(),
		state:              state,
		ledger:             book,
		prices:             prices,
		clock:              clock,
		rules:              rules,
		feeModel:           config.FeeModel,
		priceColumn:        config.UsePrice,
		simulateLimitFills: config.SimulateLimitFills,
		logger:             log.Named("backtest_trading"),
		onOrderFilled:      nil,
		fees:               make(map[string]types.Fees),
		filters:            make(map[string]types.OrderFilter),
		orders:             make(map[string]*types.Order),
		open:               nil,
		holds:              make(map[string]decimal.Decimal),
	}
}

// SetContext sets the context used by blocking history fetches.
func (b *BacktestTrading) SetContext(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ctx = ctx
}

// SetOnOrderFilled registers fn to be called after every fill.
func (b *BacktestTrading) SetOnOrderFilled(fn func(order types.Order)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.onOrderFilled = fn
}

// MarketOrder implements trading.TradingSystem.
func (b *BacktestTrading) MarketOrder(symbol string, side types.Side, size float64) (types.Order, error) {
	return b.marketOrder(types.MarketOrderRequest{Symbol: symbol, Side: side, Size: size, Funds: 0})
}

// MarketOrderFunds implements trading.TradingSystem.
func (b *BacktestTrading) MarketOrderFunds(symbol string, side types.Side, funds float64) (types.Order, error) {
	return b.marketOrder(types.MarketOrderRequest{Symbol: symbol, Side: side, Size: 0, Funds: funds})
}

// marketOrder fills at the current price. The fee is always charged in
// quote currency on the receiving side of the trade:
//   - buy by size s: debit quote s*p, credit base (s*p - fee)/p
//   - buy by funds F: debit quote F, credit base (F - fee)/p
//   - sell by size s: debit base s, credit quote s*p - fee
//   - sell by funds F: debit base F/p, credit quote F - fee
func (b *BacktestTrading) marketOrder(request types.MarketOrderRequest) (types.Order, error) {
	if err := request.Validate(); err != nil {
		return types.Order{}, err
	}

	base, quote, err := types.SplitSymbol(request.Symbol)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeInvalidOrder, "invalid market order", err)
	}

	price, err := b.GetPrice(request.Symbol)
	if err != nil {
		return types.Order{}, err
	}

	filter := b.filterFor(request.Symbol)
	commission := b.commissionFor(request.Symbol)
	priceDec := decimal.NewFromFloat(price)

	var (
		size     float64
		notional decimal.Decimal
	)

	if request.Funds > 0 {
		funds := utils.RoundToIncrement(request.Funds, filter.QuoteIncrement)
		if err := checkFunds(funds, filter); err != nil {
			return types.Order{}, err
		}

		notional = decimal.NewFromFloat(funds)
		size = notional.Div(priceDec).InexactFloat64()
		request.Funds = funds
	} else {
		size = utils.RoundToIncrement(request.Size, filter.BaseIncrement)
		if err := checkSize(size, filter); err != nil {
			return types.Order{}, err
		}

		notional = decimal.NewFromFloat(size).Mul(priceDec)
		request.Size = size
	}

	fee := decimal.NewFromFloat(commission.Calculate(size, price, commission_fee.LiquidityTaker))
	if fee.GreaterThan(notional) {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidOrder, "fee %s exceeds order value %s", fee, notional)
	}

	var changes []ledger.Change

	switch {
	case request.Side == types.SideBuy:
		changes = []ledger.Change{
			ledger.Debit(quote, notional),
			ledger.Credit(base, notional.Sub(fee).Div(priceDec)),
		}
	case request.Funds > 0:
		changes = []ledger.Change{
			ledger.Debit(base, notional.Div(priceDec)),
			ledger.Credit(quote, notional.Sub(fee)),
		}
	default:
		changes = []ledger.Change{
			ledger.Debit(base, decimal.NewFromFloat(size)),
			ledger.Credit(quote, notional.Sub(fee)),
		}
	}

	if err := b.ledger.Apply(changes...); err != nil {
		return types.Order{}, wrapLedgerError(err, "market order")
	}

	now := b.Time()
	order := types.Order{
		ID:        uuid.New().String(),
		Symbol:    request.Symbol,
		Side:      request.Side,
		Type:      types.OrderTypeMarket,
		Status:    types.OrderStatusFilled,
		Size:      size,
		Funds:     request.Funds,
		Price:     price,
		Fee:       fee.InexactFloat64(),
		CreatedAt: now,
		FilledAt:  now,
	}

	b.mu.Lock()
	b.orders[order.ID] = &order
	b.mu.Unlock()

	b.filled(order)

	return order, nil
}

// LimitOrder implements trading.TradingSystem. The order holds quote
// price*size for a buy and base size for a sell until it fills or is
// cancelled.
func (b *BacktestTrading) LimitOrder(symbol string, side types.Side, price float64, size float64) (types.Order, error) {
	request := types.LimitOrderRequest{Symbol: symbol, Side: side, Price: price, Size: size}
	if err := request.Validate(); err != nil {
		return types.Order{}, err
	}

	base, quote, err := types.SplitSymbol(symbol)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeInvalidOrder, "invalid limit order", err)
	}

	filter := b.filterFor(symbol)

	size = utils.RoundToIncrement(size, filter.BaseIncrement)
	if err := checkSize(size, filter); err != nil {
		return types.Order{}, err
	}

	asset, held := quote, decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(size))
	if side == types.SideSell {
		asset, held = base, decimal.NewFromFloat(size)
	}

	if err := b.ledger.Hold(asset, held); err != nil {
		return types.Order{}, wrapLedgerError(err, "limit order")
	}

	order := &types.Order{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Side:      side,
		Type:      types.OrderTypeLimit,
		Status:    types.OrderStatusOpen,
		Size:      size,
		Funds:     0,
		Price:     price,
		Fee:       0,
		CreatedAt: b.Time(),
		FilledAt:  time.Time{},
	}

	b.mu.Lock()
	b.orders[order.ID] = order
	b.open = append(b.open, order.ID)
	b.holds[order.ID] = held
	b.mu.Unlock()

	b.record(*order)

	if b.simulateLimitFills {
		if current, ok := b.currentPrice(symbol); ok && crosses(*order, current) {
			if err := b.fillLimit(order.ID, current, commission_fee.LiquidityTaker); err != nil {
				return types.Order{}, err
			}
		}
	}

	return b.GetOrder(symbol, order.ID)
}

// ProcessLimitOrders fills every open order the current price crosses,
// at its limit price and maker rate. Orders are visited in placement order.
func (b *BacktestTrading) ProcessLimitOrders(now time.Time) {
	if !b.simulateLimitFills {
		return
	}

	b.mu.Lock()
	open := slices.Clone(b.open)
	b.mu.Unlock()

	for _, id := range open {
		b.mu.Lock()
		order := *b.orders[id]
		b.mu.Unlock()

		price, ok := b.prices.PriceAt(order.Symbol, now, b.priceColumn)
		if !ok || !crosses(order, price) {
			continue
		}

		if err := b.fillLimit(id, order.Price, commission_fee.LiquidityMaker); err != nil {
			b.logger.Warn("Failed to fill limit order",
				zap.String("id", id),
				zap.String("symbol", order.Symbol),
				zap.Error(err))
		}
	}
}

func crosses(order types.Order, price float64) bool {
	if price <= 0 {
		return false
	}

	if order.Side == types.SideBuy {
		return price <= order.Price
	}

	return price >= order.Price
}

func (b *BacktestTrading) fillLimit(id string, fillPrice float64, liquidity commission_fee.Liquidity) error {
	b.mu.Lock()
	order := *b.orders[id]
	held := b.holds[id]
	b.mu.Unlock()

	base, quote, err := types.SplitSymbol(order.Symbol)
	if err != nil {
		return err
	}

	priceDec := decimal.NewFromFloat(fillPrice)
	sizeDec := decimal.NewFromFloat(order.Size)
	notional := sizeDec.Mul(priceDec)

	fee := decimal.NewFromFloat(b.commissionFor(order.Symbol).Calculate(order.Size, fillPrice, liquidity))
	if fee.GreaterThan(notional) {
		return errors.Newf(errors.ErrCodeInvalidOrder, "fee %s exceeds order value %s", fee, notional)
	}

	var changes []ledger.Change
	if order.Side == types.SideBuy {
		changes = append(settleHold(quote, held, notional), ledger.Credit(base, notional.Sub(fee).Div(priceDec)))
	} else {
		changes = append(settleHold(base, held, sizeDec), ledger.Credit(quote, notional.Sub(fee)))
	}

	if err := b.ledger.Apply(changes...); err != nil {
		return wrapLedgerError(err, "limit fill")
	}

	order.Status = types.OrderStatusFilled
	order.Price = fillPrice
	order.Fee = fee.InexactFloat64()
	order.FilledAt = b.Time()

	b.mu.Lock()
	*b.orders[id] = order
	b.open = slices.DeleteFunc(b.open, func(openID string) bool { return openID == id })
	delete(b.holds, id)
	b.mu.Unlock()

	b.filled(order)

	return nil
}

// settleHold consumes used out of the held amount of asset. An unused part of
// the hold goes back to available and a shortfall is debited from it.
func settleHold(asset string, held, used decimal.Decimal) []ledger.Change {
	switch {
	case used.LessThan(held):
		return []ledger.Change{ledger.Settle(asset, used), ledger.Release(asset, held.Sub(used))}
	case used.GreaterThan(held):
		return []ledger.Change{ledger.Settle(asset, held), ledger.Debit(asset, used.Sub(held))}
	default:
		return []ledger.Change{ledger.Settle(asset, held)}
	}
}

// CancelOrder implements trading.TradingSystem. The held funds are released.
func (b *BacktestTrading) CancelOrder(symbol string, orderID string) (types.Order, error) {
	b.mu.Lock()

	order, ok := b.orders[orderID]
	if !ok || order.Symbol != symbol || order.IsFinal() {
		b.mu.Unlock()

		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "no open order %s for %s", orderID, symbol)
	}

	held := b.holds[orderID]
	side := order.Side
	b.mu.Unlock()

	base, quote, err := types.SplitSymbol(symbol)
	if err != nil {
		return types.Order{}, err
	}

	asset := quote
	if side == types.SideSell {
		asset = base
	}

	if err := b.ledger.Release(asset, held); err != nil {
		return types.Order{}, err
	}

	b.mu.Lock()
	order.Status = types.OrderStatusCanceled
	canceled := *order
	b.open = slices.DeleteFunc(b.open, func(openID string) bool { return openID == orderID })
	delete(b.holds, orderID)
	b.mu.Unlock()

	b.record(canceled)

	return canceled, nil
}

// GetOpenOrders implements trading.TradingSystem. An empty symbol returns
// the open orders of every symbol.
func (b *BacktestTrading) GetOpenOrders(symbol string) ([]types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	orders := make([]types.Order, 0, len(b.open))

	for _, id := range b.open {
		order := b.orders[id]
		if symbol == "" || order.Symbol == symbol {
			orders = append(orders, *order)
		}
	}

	return orders, nil
}

// GetOrder implements trading.TradingSystem.
func (b *BacktestTrading) GetOrder(symbol string, orderID string) (types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.orders[orderID]
	if !ok || order.Symbol != symbol {
		return types.Order{}, errors.Newf(errors.ErrCodeOrderNotFound, "order %s for %s not found", orderID, symbol)
	}

	return *order, nil
}

// GetAccount implements trading.TradingSystem.
func (b *BacktestTrading) GetAccount() (map[string]types.AssetBalance, error) {
	return b.ledger.Snapshot(), nil
}

// GetPrice implements trading.TradingSystem.
func (b *BacktestTrading) GetPrice(symbol string) (float64, error) {
	price, ok := b.currentPrice(symbol)
	if !ok || price <= 0 {
		return 0, errors.Newf(errors.ErrCodeMarketDataMissing, "no price for %s at %s", symbol, b.Time().Format(time.RFC3339))
	}

	return price, nil
}

// GetFees implements trading.TradingSystem.
func (b *BacktestTrading) GetFees(symbol string) (types.Fees, error) {
	if b.feeModel == commission_fee.FeeModelZero {
		return types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}, nil
	}

	return b.feesFor(symbol), nil
}

// History implements trading.TradingSystem. Missing rows are fetched
// through the price cache.
func (b *BacktestTrading) History(symbol string, count int, resolution time.Duration) ([]types.Bar, error) {
	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	return b.prices.FetchHistory(ctx, symbol, resolution, count, b.Time())
}

// Time implements trading.TradingSystem.
func (b *BacktestTrading) Time() time.Time {
	return b.clock.Now()
}

func (b *BacktestTrading) currentPrice(symbol string) (float64, bool) {
	return b.prices.PriceAt(symbol, b.Time(), b.priceColumn)
}

func (b *BacktestTrading) feesFor(symbol string) types.Fees {
	b.mu.Lock()
	fees, ok := b.fees[symbol]
	ctx := b.ctx
	b.mu.Unlock()

	if ok {
		return fees
	}

	fees, err := b.rules.GetFees(ctx, symbol)
	if err != nil {
		b.logger.Warn("Failed to get fees, using zero fees", zap.String("symbol", symbol), zap.Error(err))

		fees = types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}
	}

	b.mu.Lock()
	b.fees[symbol] = fees
	b.mu.Unlock()

	return fees
}

func (b *BacktestTrading) filterFor(symbol string) types.OrderFilter {
	b.mu.Lock()
	filter, ok := b.filters[symbol]
	ctx := b.ctx
	b.mu.Unlock()

	if ok {
		return filter
	}

	filter, err := b.rules.GetOrderFilter(ctx, symbol)
	if err != nil {
		b.logger.Warn("Failed to get order filter, using defaults", zap.String("symbol", symbol), zap.Error(err))

		filter = types.DefaultOrderFilter(symbol)
	}

	b.mu.Lock()
	b.filters[symbol] = filter
	b.mu.Unlock()

	return filter
}

func (b *BacktestTrading) commissionFor(symbol string) commission_fee.CommissionFee {
	if b.feeModel != commission_fee.FeeModelExchange {
		return commission_fee.GetCommissionFeeHandler(b.feeModel, types.Fees{MakerFeeRate: 0, TakerFeeRate: 0})
	}

	return commission_fee.GetCommissionFeeHandler(b.feeModel, b.feesFor(symbol))
}

func (b *BacktestTrading) filled(order types.Order) {
	b.record(order)

	b.logger.Debug("Order filled",
		zap.String("id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Float64("size", order.Size),
		zap.Float64("price", order.Price),
		zap.Float64("fee", order.Fee))

	b.mu.Lock()
	onOrderFilled := b.onOrderFilled
	b.mu.Unlock()

	if onOrderFilled != nil {
		onOrderFilled(order)
	}
}

func (b *BacktestTrading) record(order types.Order) {
	if b.state == nil {
		return
	}

	if err := b.state.RecordOrder(order); err != nil {
		b.logger.Error("Failed to record order", zap.String("id", order.ID), zap.Error(err))
	}
}

func checkSize(size float64, filter types.OrderFilter) error {
	if size <= 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "order size is zero after rounding to the base increment")
	}

	if filter.MinBaseSize > 0 && size < filter.MinBaseSize {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order size %v is below the minimum %v", size, filter.MinBaseSize)
	}

	if filter.MaxBaseSize > 0 && size > filter.MaxBaseSize {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order size %v is above the maximum %v", size, filter.MaxBaseSize)
	}

	return nil
}

func checkFunds(funds float64, filter types.OrderFilter) error {
	if funds <= 0 {
		return errors.New(errors.ErrCodeInvalidOrder, "order funds are zero after rounding to the quote increment")
	}

	if filter.MinFunds > 0 && funds < filter.MinFunds {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order funds %v are below the minimum %v", funds, filter.MinFunds)
	}

	if filter.MaxFunds > 0 && funds > filter.MaxFunds {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order funds %v are above the maximum %v", funds, filter.MaxFunds)
	}

	return nil
}

func wrapLedgerError(err error, operation string) error {
	if errors.ContainsCode(err, errors.ErrCodeInsufficientFunds) {
		return errors.Wrapf(errors.ErrCodeInvalidOrder, err, "insufficient balance for %s", operation)
	}

	return errors.Wrapf(errors.ErrCodeInvalidOrder, err, "%s rejected", operation)
}
