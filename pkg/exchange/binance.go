package exchange

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	// binanceKlinesLimit is the maximum page size of the klines endpoint.
	binanceKlinesLimit = 1000
	// BinanceDecimalPrecision is used to format quantities when no LOT_SIZE filter is known.
	BinanceDecimalPrecision = 8
)

// binanceOrder is the subset of CreateOrderService parameters we send.
type binanceOrder struct {
	Symbol        string
	Side          binance.SideType
	Type          binance.OrderType
	Quantity      string
	QuoteOrderQty string
	Price         string
	TimeInForce   binance.TimeInForceType
}

// BinanceAPI abstracts the Binance REST client for testing.
//
//nolint:interfacebloat // one method per endpoint
type BinanceAPI interface {
	Klines(ctx context.Context, symbol string, interval string, startMillis int64, endMillis int64, limit int) ([]*binance.Kline, error)
	ListPrices(ctx context.Context, symbol string) ([]*binance.SymbolPrice, error)
	TradeFees(ctx context.Context, symbol string) ([]*binance.TradeFeeDetails, error)
	Account(ctx context.Context) (*binance.Account, error)
	ExchangeInfo(ctx context.Context, symbol string) (*binance.ExchangeInfo, error)
	CreateOrder(ctx context.Context, order binanceOrder) (*binance.CreateOrderResponse, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*binance.CancelOrderResponse, error)
	GetOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error)
	ListOpenOrders(ctx context.Context, symbol string) ([]*binance.Order, error)
}

// realBinanceAPI wraps the actual binance.Client.
type realBinanceAPI struct {
	client *binance.Client
}

func (r *realBinanceAPI) Klines(ctx context.Context, symbol string, interval string, startMillis int64, endMillis int64, limit int) ([]*binance.Kline, error) {
	return r.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startMillis).
		EndTime(endMillis).
		Limit(limit).
		Do(ctx)
}

func (r *realBinanceAPI) ListPrices(ctx context.Context, symbol string) ([]*binance.SymbolPrice, error) {
	return r.client.NewListPricesService().Symbol(symbol).Do(ctx)
}

func (r *realBinanceAPI) TradeFees(ctx context.Context, symbol string) ([]*binance.TradeFeeDetails, error) {
	return r.client.NewTradeFeeService().Symbol(symbol).Do(ctx)
}

func (r *realBinanceAPI) Account(ctx context.Context) (*binance.Account, error) {
	return r.client.NewGetAccountService().Do(ctx)
}

func (r *realBinanceAPI) ExchangeInfo(ctx context.Context, symbol string) (*binance.ExchangeInfo, error) {
	return r.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
}

func (r *realBinanceAPI) CreateOrder(ctx context.Context, order binanceOrder) (*binance.CreateOrderResponse, error) {
	service := r.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(order.Side).
		Type(order.Type)

	if order.Quantity != "" {
		service = service.Quantity(order.Quantity)
	}

	if order.QuoteOrderQty != "" {
		service = service.QuoteOrderQty(order.QuoteOrderQty)
	}

	if order.Price != "" {
		service = service.Price(order.Price)
	}

	if order.TimeInForce != "" {
		service = service.TimeInForce(order.TimeInForce)
	}

	return service.Do(ctx)
}

func (r *realBinanceAPI) CancelOrder(ctx context.Context, symbol string, orderID int64) (*binance.CancelOrderResponse, error) {
	return r.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
}

func (r *realBinanceAPI) GetOrder(ctx context.Context, symbol string, orderID int64) (*binance.Order, error) {
	return r.client.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
}

func (r *realBinanceAPI) ListOpenOrders(ctx context.Context, symbol string) ([]*binance.Order, error) {
	return r.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
}

// BinanceExchange implements Exchange on the Binance spot API.
type BinanceExchange struct {
	api BinanceAPI
}

// NewBinanceExchange creates a Binance adapter. Keys may be empty for history-only use.
// If config.BaseURL is set, it takes precedence over UseTestnet.
func NewBinanceExchange(config ProviderConfig) *BinanceExchange {
	if config.UseTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceExchange{api: &realBinanceAPI{client: client}}
}

// newBinanceExchangeWithAPI is used by tests with a fake API.
func newBinanceExchangeWithAPI(api BinanceAPI) *BinanceExchange {
	return &BinanceExchange{api: api}
}

func (b *BinanceExchange) Name() string {
	return string(ProviderBinance)
}

func (b *BinanceExchange) Granularities() []time.Duration {
	return BinanceGranularities
}

// GetProductHistory pages through klines until end is reached or Binance runs out of rows.
func (b *BinanceExchange) GetProductHistory(ctx context.Context, symbol string, start, end time.Time, granularity time.Duration) ([]types.Bar, error) {
	interval, err := binanceInterval(granularity)
	if err != nil {
		return nil, err
	}

	ticker := toBinanceSymbol(symbol)
	endMillis := end.UnixMilli() - 1
	current := start.UnixMilli()

	var bars []types.Bar

	for current <= endMillis {
		klines, err := b.api.Klines(ctx, ticker, interval, current, endMillis, binanceKlinesLimit)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
		}

		page, err := convertKlines(klines)
		if err != nil {
			return nil, err
		}

		bars = append(bars, page...)

		if len(klines) < binanceKlinesLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		current = klines[len(klines)-1].CloseTime + 1
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	return bars, nil
}

func (b *BinanceExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := b.api.ListPrices(ctx, toBinanceSymbol(symbol))
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to get price for %s", symbol)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeMarketDataMissing, "no price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to parse price", err)
	}

	return price, nil
}

func (b *BinanceExchange) GetFees(ctx context.Context, symbol string) (types.Fees, error) {
	details, err := b.api.TradeFees(ctx, toBinanceSymbol(symbol))
	if err != nil {
		return types.Fees{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to get fees for %s", symbol)
	}

	if len(details) == 0 {
		return types.Fees{}, errors.Newf(errors.ErrCodeDataNotFound, "no fee schedule for %s", symbol)
	}

	maker, _ := strconv.ParseFloat(details[0].MakerCommission, 64)
	taker, _ := strconv.ParseFloat(details[0].TakerCommission, 64)

	return types.Fees{MakerFeeRate: maker, TakerFeeRate: taker}, nil
}

func (b *BinanceExchange) GetAccount(ctx context.Context) (map[string]types.AssetBalance, error) {
	account, err := b.api.Account(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOrderFailed, "failed to get account info from Binance", err)
	}

	balances := make(map[string]types.AssetBalance, len(account.Balances))

	for _, balance := range account.Balances {
		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)
		balances[balance.Asset] = types.AssetBalance{Available: free, Hold: locked}
	}

	return balances, nil
}

func (b *BinanceExchange) GetOrderFilter(ctx context.Context, symbol string) (types.OrderFilter, error) {
	info, err := b.api.ExchangeInfo(ctx, toBinanceSymbol(symbol))
	if err != nil {
		return types.OrderFilter{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to get exchange info for %s", symbol)
	}

	if info == nil || len(info.Symbols) == 0 {
		return types.DefaultOrderFilter(symbol), nil
	}

	filter := types.DefaultOrderFilter(symbol)
	s := info.Symbols[0]

	if lot := s.LotSizeFilter(); lot != nil {
		filter.MinBaseSize, _ = strconv.ParseFloat(lot.MinQuantity, 64)
		filter.MaxBaseSize, _ = strconv.ParseFloat(lot.MaxQuantity, 64)
		filter.BaseIncrement, _ = strconv.ParseFloat(lot.StepSize, 64)
	}

	if price := s.PriceFilter(); price != nil {
		filter.QuoteIncrement, _ = strconv.ParseFloat(price.TickSize, 64)
	}

	return filter, nil
}

func (b *BinanceExchange) MarketOrder(ctx context.Context, request types.MarketOrderRequest) (types.Order, error) {
	if err := request.Validate(); err != nil {
		return types.Order{}, err
	}

	order := binanceOrder{
		Symbol: toBinanceSymbol(request.Symbol),
		Side:   toBinanceSide(request.Side),
		Type:   binance.OrderTypeMarket,
	}

	if request.Funds > 0 {
		order.QuoteOrderQty = strconv.FormatFloat(request.Funds, 'f', -1, 64)
	} else {
		order.Quantity = strconv.FormatFloat(utils.RoundToDecimalPrecision(request.Size, BinanceDecimalPrecision), 'f', -1, 64)
	}

	resp, err := b.api.CreateOrder(ctx, order)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	return convertCreateOrderResponse(request.Symbol, resp), nil
}

func (b *BinanceExchange) LimitOrder(ctx context.Context, request types.LimitOrderRequest) (types.Order, error) {
	if err := request.Validate(); err != nil {
		return types.Order{}, err
	}

	resp, err := b.api.CreateOrder(ctx, binanceOrder{
		Symbol:        toBinanceSymbol(request.Symbol),
		Side:          toBinanceSide(request.Side),
		Type:          binance.OrderTypeLimit,
		Quantity:      strconv.FormatFloat(utils.RoundToDecimalPrecision(request.Size, BinanceDecimalPrecision), 'f', -1, 64),
		QuoteOrderQty: "",
		Price:         strconv.FormatFloat(request.Price, 'f', -1, 64),
		TimeInForce:   binance.TimeInForceTypeGTC,
	})
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to place order on Binance", err)
	}

	return convertCreateOrderResponse(request.Symbol, resp), nil
}

func (b *BinanceExchange) CancelOrder(ctx context.Context, symbol string, orderID string) (types.Order, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid Binance order id %q", orderID)
	}

	resp, err := b.api.CancelOrder(ctx, toBinanceSymbol(symbol), id)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeOrderFailed, "failed to cancel order on Binance", err)
	}

	price, _ := strconv.ParseFloat(resp.Price, 64)
	size, _ := strconv.ParseFloat(resp.OrigQuantity, 64)

	return types.Order{
		ID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:    symbol,
		Side:      fromBinanceSide(resp.Side),
		Type:      fromBinanceOrderType(resp.Type),
		Status:    mapBinanceOrderStatus(resp.Status),
		Size:      size,
		Funds:     0,
		Price:     price,
		Fee:       0,
		CreatedAt: time.UnixMilli(resp.TransactTime),
		FilledAt:  time.Time{},
	}, nil
}

func (b *BinanceExchange) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	binanceOrders, err := b.api.ListOpenOrders(ctx, toBinanceSymbol(symbol))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOrderFailed, "failed to get open orders from Binance", err)
	}

	orders := make([]types.Order, 0, len(binanceOrders))
	for _, bo := range binanceOrders {
		orders = append(orders, convertBinanceOrder(symbol, bo))
	}

	return orders, nil
}

func (b *BinanceExchange) GetOrder(ctx context.Context, symbol string, orderID string) (types.Order, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidParameter, "invalid Binance order id %q", orderID)
	}

	bo, err := b.api.GetOrder(ctx, toBinanceSymbol(symbol), id)
	if err != nil {
		return types.Order{}, errors.Wrap(errors.ErrCodeOrderNotFound, "failed to get order from Binance", err)
	}

	return convertBinanceOrder(symbol, bo), nil
}

// Helper functions

func toBinanceSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "-", "")
}

func toBinanceSide(side types.Side) binance.SideType {
	if side == types.SideSell {
		return binance.SideTypeSell
	}

	return binance.SideTypeBuy
}

func fromBinanceSide(side binance.SideType) types.Side {
	if side == binance.SideTypeSell {
		return types.SideSell
	}

	return types.SideBuy
}

func fromBinanceOrderType(orderType binance.OrderType) types.OrderType {
	if orderType == binance.OrderTypeMarket {
		return types.OrderTypeMarket
	}

	return types.OrderTypeLimit
}

// binanceInterval converts a granularity to a Binance interval string such as "15m" or "1d".
func binanceInterval(granularity time.Duration) (string, error) {
	switch {
	case granularity == 7*24*time.Hour:
		return "1w", nil
	case granularity >= 24*time.Hour && granularity%(24*time.Hour) == 0:
		return strconv.Itoa(int(granularity/(24*time.Hour))) + "d", nil
	case granularity >= time.Hour && granularity%time.Hour == 0:
		return strconv.Itoa(int(granularity/time.Hour)) + "h", nil
	case granularity >= time.Minute && granularity%time.Minute == 0:
		return strconv.Itoa(int(granularity/time.Minute)) + "m", nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported granularity for Binance: %s", granularity)
	}
}

// mapBinanceOrderStatus maps Binance order status to our OrderStatus type.
func mapBinanceOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew, binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusOpen
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeRejected, binance.OrderStatusTypeExpired:
		return types.OrderStatusCanceled
	default:
		return types.OrderStatusPending
	}
}

// convertKlines converts Binance kline data to bars.
func convertKlines(klines []*binance.Kline) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 5)
		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to parse kline", err)
			}

			values[i] = v
		}

		bars = append(bars, types.Bar{
			Time:   time.UnixMilli(k.OpenTime).UTC(),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	return bars, nil
}

func convertCreateOrderResponse(symbol string, resp *binance.CreateOrderResponse) types.Order {
	size, _ := strconv.ParseFloat(resp.ExecutedQuantity, 64)
	if size == 0 {
		size, _ = strconv.ParseFloat(resp.OrigQuantity, 64)
	}

	funds, _ := strconv.ParseFloat(resp.CummulativeQuoteQuantity, 64)
	price, _ := strconv.ParseFloat(resp.Price, 64)

	if price == 0 && size > 0 {
		price = funds / size
	}

	var fee float64

	for _, fill := range resp.Fills {
		commission, _ := strconv.ParseFloat(fill.Commission, 64)
		fee += commission
	}

	order := types.Order{
		ID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:    symbol,
		Side:      fromBinanceSide(resp.Side),
		Type:      fromBinanceOrderType(resp.Type),
		Status:    mapBinanceOrderStatus(resp.Status),
		Size:      size,
		Funds:     funds,
		Price:     price,
		Fee:       fee,
		CreatedAt: time.UnixMilli(resp.TransactTime),
		FilledAt:  time.Time{},
	}

	if order.Status == types.OrderStatusFilled {
		order.FilledAt = order.CreatedAt
	}

	return order
}

func convertBinanceOrder(symbol string, bo *binance.Order) types.Order {
	size, _ := strconv.ParseFloat(bo.OrigQuantity, 64)
	price, _ := strconv.ParseFloat(bo.Price, 64)
	funds, _ := strconv.ParseFloat(bo.CummulativeQuoteQuantity, 64)

	return types.Order{
		ID:        strconv.FormatInt(bo.OrderID, 10),
		Symbol:    symbol,
		Side:      fromBinanceSide(bo.Side),
		Type:      fromBinanceOrderType(bo.Type),
		Status:    mapBinanceOrderStatus(bo.Status),
		Size:      size,
		Funds:     funds,
		Price:     price,
		Fee:       0,
		CreatedAt: time.UnixMilli(bo.Time),
		FilledAt:  time.UnixMilli(bo.UpdateTime),
	}
}
