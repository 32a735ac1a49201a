package exchange

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	argoErrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// fakeBinanceAPI implements BinanceAPI for testing.
type fakeBinanceAPI struct {
	klines      []*binance.Kline
	klineCalls  int
	klineErr    error
	prices      []*binance.SymbolPrice
	fees        []*binance.TradeFeeDetails
	account     *binance.Account
	info        *binance.ExchangeInfo
	lastOrder   binanceOrder
	orderResp   *binance.CreateOrderResponse
	orderErr    error
	openOrders  []*binance.Order
	cancelResp  *binance.CancelOrderResponse
	lastSymbol  string
	lastOrderID int64
}

func (f *fakeBinanceAPI) Klines(_ context.Context, symbol string, _ string, startMillis int64, endMillis int64, limit int) ([]*binance.Kline, error) {
	f.klineCalls++
	f.lastSymbol = symbol

	if f.klineErr != nil {
		return nil, f.klineErr
	}

	var page []*binance.Kline

	for _, k := range f.klines {
		if k.OpenTime >= startMillis && k.OpenTime <= endMillis {
			page = append(page, k)
		}

		if len(page) == limit {
			break
		}
	}

	return page, nil
}

func (f *fakeBinanceAPI) ListPrices(_ context.Context, symbol string) ([]*binance.SymbolPrice, error) {
	f.lastSymbol = symbol

	return f.prices, nil
}

func (f *fakeBinanceAPI) TradeFees(_ context.Context, _ string) ([]*binance.TradeFeeDetails, error) {
	return f.fees, nil
}

func (f *fakeBinanceAPI) Account(_ context.Context) (*binance.Account, error) {
	return f.account, nil
}

func (f *fakeBinanceAPI) ExchangeInfo(_ context.Context, _ string) (*binance.ExchangeInfo, error) {
	return f.info, nil
}

func (f *fakeBinanceAPI) CreateOrder(_ context.Context, order binanceOrder) (*binance.CreateOrderResponse, error) {
	f.lastOrder = order

	return f.orderResp, f.orderErr
}

func (f *fakeBinanceAPI) CancelOrder(_ context.Context, symbol string, orderID int64) (*binance.CancelOrderResponse, error) {
	f.lastSymbol = symbol
	f.lastOrderID = orderID

	return f.cancelResp, nil
}

func (f *fakeBinanceAPI) GetOrder(_ context.Context, _ string, orderID int64) (*binance.Order, error) {
	for _, o := range f.openOrders {
		if o.OrderID == orderID {
			return o, nil
		}
	}

	return nil, errors.New("order does not exist")
}

func (f *fakeBinanceAPI) ListOpenOrders(_ context.Context, _ string) ([]*binance.Order, error) {
	return f.openOrders, nil
}

type BinanceExchangeTestSuite struct {
	suite.Suite
	api      *fakeBinanceAPI
	exchange *BinanceExchange
}

func TestBinanceExchangeSuite(t *testing.T) {
	suite.Run(t, new(BinanceExchangeTestSuite))
}

func (suite *BinanceExchangeTestSuite) SetupTest() {
	suite.api = &fakeBinanceAPI{}
	suite.exchange = newBinanceExchangeWithAPI(suite.api)
}

func makeKlines(start time.Time, n int, step time.Duration) []*binance.Kline {
	klines := make([]*binance.Kline, 0, n)

	for i := 0; i < n; i++ {
		open := start.Add(time.Duration(i) * step)
		price := strconv.Itoa(100 + i)
		klines = append(klines, &binance.Kline{
			OpenTime:  open.UnixMilli(),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    "1",
			CloseTime: open.Add(step).UnixMilli() - 1,
		})
	}

	return klines
}

func (suite *BinanceExchangeTestSuite) TestGetProductHistoryPaginates() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.api.klines = makeKlines(start, 2500, time.Minute)

	bars, err := suite.exchange.GetProductHistory(context.Background(), "BTC-USDT", start, start.Add(2500*time.Minute), time.Minute)
	suite.NoError(err)
	suite.Len(bars, 2500)
	suite.Equal(3, suite.api.klineCalls)
	suite.Equal("BTCUSDT", suite.api.lastSymbol)
	suite.Equal(start, bars[0].Time)
	suite.Equal(100.0, bars[0].Close)
	suite.Equal(start.Add(2499*time.Minute), bars[2499].Time)
}

func (suite *BinanceExchangeTestSuite) TestGetProductHistoryExcludesEnd() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.api.klines = makeKlines(start, 10, time.Hour)

	bars, err := suite.exchange.GetProductHistory(context.Background(), "BTC-USDT", start, start.Add(5*time.Hour), time.Hour)
	suite.NoError(err)
	suite.Len(bars, 5)
}

func (suite *BinanceExchangeTestSuite) TestGetProductHistoryError() {
	suite.api.klineErr = errors.New("teapot")

	_, err := suite.exchange.GetProductHistory(context.Background(), "BTC-USDT", time.Now().Add(-time.Hour), time.Now(), time.Minute)
	suite.Error(err)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeMarketDataFetchFailed))
}

func (suite *BinanceExchangeTestSuite) TestGetProductHistoryInvalidGranularity() {
	_, err := suite.exchange.GetProductHistory(context.Background(), "BTC-USDT", time.Now().Add(-time.Hour), time.Now(), 90*time.Second)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidTimespan))
	suite.Equal(0, suite.api.klineCalls)
}

func (suite *BinanceExchangeTestSuite) TestGetPrice() {
	suite.api.prices = []*binance.SymbolPrice{{Symbol: "BTCUSDT", Price: "42000.5"}}

	price, err := suite.exchange.GetPrice(context.Background(), "BTC-USDT")
	suite.NoError(err)
	suite.Equal(42000.5, price)

	suite.api.prices = nil
	_, err = suite.exchange.GetPrice(context.Background(), "BTC-USDT")
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeMarketDataMissing))
}

func (suite *BinanceExchangeTestSuite) TestGetFees() {
	suite.api.fees = []*binance.TradeFeeDetails{{Symbol: "BTCUSDT", MakerCommission: "0.001", TakerCommission: "0.002"}}

	fees, err := suite.exchange.GetFees(context.Background(), "BTC-USDT")
	suite.NoError(err)
	suite.Equal(types.Fees{MakerFeeRate: 0.001, TakerFeeRate: 0.002}, fees)
}

func (suite *BinanceExchangeTestSuite) TestGetAccount() {
	suite.api.account = &binance.Account{
		Balances: []binance.Balance{
			{Asset: "BTC", Free: "1.5", Locked: "0.5"},
			{Asset: "USDT", Free: "1000", Locked: "0"},
		},
	}

	account, err := suite.exchange.GetAccount(context.Background())
	suite.NoError(err)
	suite.Equal(2.0, account["BTC"].Total())
	suite.Equal(1000.0, account["USDT"].Available)
}

func (suite *BinanceExchangeTestSuite) TestMarketOrderByFunds() {
	suite.api.orderResp = &binance.CreateOrderResponse{
		Symbol:                   "BTCUSDT",
		OrderID:                  12,
		TransactTime:             1700000000000,
		Price:                    "0",
		OrigQuantity:             "0.01",
		ExecutedQuantity:         "0.01",
		CummulativeQuoteQuantity: "400",
		Status:                   binance.OrderStatusTypeFilled,
		Type:                     binance.OrderTypeMarket,
		Side:                     binance.SideTypeBuy,
		Fills: []*binance.Fill{
			{Price: "40000", Quantity: "0.01", Commission: "0.4"},
		},
	}

	order, err := suite.exchange.MarketOrder(context.Background(), types.MarketOrderRequest{Symbol: "BTC-USDT", Side: types.SideBuy, Funds: 400})
	suite.NoError(err)
	suite.Equal("400", suite.api.lastOrder.QuoteOrderQty)
	suite.Empty(suite.api.lastOrder.Quantity)
	suite.Equal("12", order.ID)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.InDelta(40000.0, order.Price, 1e-9)
	suite.InDelta(0.4, order.Fee, 1e-9)
	suite.False(order.FilledAt.IsZero())
}

func (suite *BinanceExchangeTestSuite) TestMarketOrderInvalid() {
	_, err := suite.exchange.MarketOrder(context.Background(), types.MarketOrderRequest{Symbol: "BTC-USDT", Side: types.SideBuy, Size: 1, Funds: 1})
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidOrder))
}

func (suite *BinanceExchangeTestSuite) TestLimitOrder() {
	suite.api.orderResp = &binance.CreateOrderResponse{
		OrderID:      7,
		Price:        "30000",
		OrigQuantity: "0.5",
		Status:       binance.OrderStatusTypeNew,
		Type:         binance.OrderTypeLimit,
		Side:         binance.SideTypeSell,
	}

	order, err := suite.exchange.LimitOrder(context.Background(), types.LimitOrderRequest{Symbol: "BTC-USDT", Side: types.SideSell, Price: 30000, Size: 0.5})
	suite.NoError(err)
	suite.Equal(binance.TimeInForceTypeGTC, suite.api.lastOrder.TimeInForce)
	suite.Equal("30000", suite.api.lastOrder.Price)
	suite.Equal(types.OrderStatusOpen, order.Status)
	suite.Equal(types.SideSell, order.Side)
	suite.Equal(types.OrderTypeLimit, order.Type)
}

func (suite *BinanceExchangeTestSuite) TestCancelOrder() {
	suite.api.cancelResp = &binance.CancelOrderResponse{OrderID: 7, Status: binance.OrderStatusTypeCanceled, Side: binance.SideTypeBuy}

	order, err := suite.exchange.CancelOrder(context.Background(), "BTC-USDT", "7")
	suite.NoError(err)
	suite.Equal(int64(7), suite.api.lastOrderID)
	suite.Equal(types.OrderStatusCanceled, order.Status)

	_, err = suite.exchange.CancelOrder(context.Background(), "BTC-USDT", "abc")
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidParameter))
}

func (suite *BinanceExchangeTestSuite) TestGetOrder() {
	suite.api.openOrders = []*binance.Order{{OrderID: 3, Price: "10", OrigQuantity: "2", Status: binance.OrderStatusTypePartiallyFilled, Type: binance.OrderTypeLimit}}

	order, err := suite.exchange.GetOrder(context.Background(), "BTC-USDT", "3")
	suite.NoError(err)
	suite.Equal(types.OrderStatusOpen, order.Status)
	suite.Equal(2.0, order.Size)

	_, err = suite.exchange.GetOrder(context.Background(), "BTC-USDT", "4")
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeOrderNotFound))

	orders, err := suite.exchange.GetOpenOrders(context.Background(), "BTC-USDT")
	suite.NoError(err)
	suite.Len(orders, 1)
}

func (suite *BinanceExchangeTestSuite) TestBinanceInterval() {
	tests := []struct {
		name        string
		granularity time.Duration
		want        string
		expectErr   bool
	}{
		{name: "minute", granularity: time.Minute, want: "1m"},
		{name: "fifteen minutes", granularity: 15 * time.Minute, want: "15m"},
		{name: "four hours", granularity: 4 * time.Hour, want: "4h"},
		{name: "day", granularity: 24 * time.Hour, want: "1d"},
		{name: "three days", granularity: 72 * time.Hour, want: "3d"},
		{name: "week", granularity: 7 * 24 * time.Hour, want: "1w"},
		{name: "seconds", granularity: 30 * time.Second, expectErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			got, err := binanceInterval(tc.granularity)
			if tc.expectErr {
				suite.Error(err)

				return
			}

			suite.NoError(err)
			suite.Equal(tc.want, got)
		})
	}
}

func (suite *BinanceExchangeTestSuite) TestMapBinanceOrderStatus() {
	suite.Equal(types.OrderStatusOpen, mapBinanceOrderStatus(binance.OrderStatusTypeNew))
	suite.Equal(types.OrderStatusFilled, mapBinanceOrderStatus(binance.OrderStatusTypeFilled))
	suite.Equal(types.OrderStatusCanceled, mapBinanceOrderStatus(binance.OrderStatusTypeExpired))
	suite.Equal(types.OrderStatusPending, mapBinanceOrderStatus(binance.OrderStatusTypePendingCancel))
}
