package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	argoErrors "github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockPolygonAPIClient implements PolygonAPIClient for testing.
type mockPolygonAPIClient struct {
	iterator   PolygonAggsIterator
	lastParams *models.ListAggsParams
	lastTrade  *models.GetLastTradeResponse
	tradeErr   error
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.lastParams = params

	return m.iterator
}

func (m *mockPolygonAPIClient) GetLastTrade(_ context.Context, _ *models.GetLastTradeParams, _ ...models.RequestOption) (*models.GetLastTradeResponse, error) {
	return m.lastTrade, m.tradeErr
}

// mockPolygonIterator implements PolygonAggsIterator for testing.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.index < len(m.aggs) {
		m.index++

		return true
	}

	return false
}

func (m *mockPolygonIterator) Item() models.Agg {
	if m.index > 0 && m.index <= len(m.aggs) {
		return m.aggs[m.index-1]
	}

	return models.Agg{}
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

type PolygonExchangeTestSuite struct {
	suite.Suite
}

func TestPolygonExchangeSuite(t *testing.T) {
	suite.Run(t, new(PolygonExchangeTestSuite))
}

func (suite *PolygonExchangeTestSuite) TestNewPolygonExchange() {
	exchange, err := NewPolygonExchange("test-api-key")
	suite.NoError(err)
	suite.NotNil(exchange)
	suite.Equal("polygon", exchange.Name())

	_, err = NewPolygonExchange("")
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeMissingParameter))
}

func (suite *PolygonExchangeTestSuite) TestGetProductHistory() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	iter := &mockPolygonIterator{
		aggs: []models.Agg{
			{Timestamp: models.Millis(start), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
			{Timestamp: models.Millis(start.Add(24 * time.Hour)), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
			// the inclusive end row is dropped
			{Timestamp: models.Millis(start.Add(48 * time.Hour)), Open: 2.5, High: 3, Low: 2, Close: 3, Volume: 30},
		},
	}
	api := &mockPolygonAPIClient{iterator: iter}
	exchange := newPolygonExchangeWithAPI(api)

	bars, err := exchange.GetProductHistory(context.Background(), "BTC-USD", start, start.Add(48*time.Hour), 24*time.Hour)
	suite.NoError(err)
	suite.Len(bars, 2)
	suite.Equal(start, bars[0].Time)
	suite.Equal(2.5, bars[1].Close)
	suite.Equal("X:BTCUSD", api.lastParams.Ticker)
	suite.Equal(models.Day, api.lastParams.Timespan)
	suite.Equal(1, api.lastParams.Multiplier)
}

func (suite *PolygonExchangeTestSuite) TestGetProductHistoryIteratorError() {
	api := &mockPolygonAPIClient{iterator: &mockPolygonIterator{err: errors.New("rate limited")}}
	exchange := newPolygonExchangeWithAPI(api)

	_, err := exchange.GetProductHistory(context.Background(), "BTC-USD", time.Now().Add(-time.Hour), time.Now(), time.Minute)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeMarketDataFetchFailed))
}

func (suite *PolygonExchangeTestSuite) TestGetPrice() {
	resp := &models.GetLastTradeResponse{}
	resp.Results.Price = 101.25
	api := &mockPolygonAPIClient{lastTrade: resp}
	exchange := newPolygonExchangeWithAPI(api)

	price, err := exchange.GetPrice(context.Background(), "ETH-USD")
	suite.NoError(err)
	suite.Equal(101.25, price)

	api.tradeErr = errors.New("boom")
	_, err = exchange.GetPrice(context.Background(), "ETH-USD")
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeMarketDataFetchFailed))
}

func (suite *PolygonExchangeTestSuite) TestTradingUnsupported() {
	exchange := newPolygonExchangeWithAPI(&mockPolygonAPIClient{})
	ctx := context.Background()

	_, err := exchange.MarketOrder(ctx, types.MarketOrderRequest{Symbol: "BTC-USD", Side: types.SideBuy, Size: 1})
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeUnsupportedOperation))

	_, err = exchange.GetAccount(ctx)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeUnsupportedOperation))

	fees, err := exchange.GetFees(ctx, "BTC-USD")
	suite.NoError(err)
	suite.Zero(fees.TakerFeeRate)
}

func (suite *PolygonExchangeTestSuite) TestPolygonTimespan() {
	tests := []struct {
		name        string
		granularity time.Duration
		multiplier  int
		timespan    models.Timespan
	}{
		{name: "minute", granularity: time.Minute, multiplier: 1, timespan: models.Minute},
		{name: "fifteen minutes", granularity: 15 * time.Minute, multiplier: 15, timespan: models.Minute},
		{name: "four hours", granularity: 4 * time.Hour, multiplier: 4, timespan: models.Hour},
		{name: "day", granularity: 24 * time.Hour, multiplier: 1, timespan: models.Day},
		{name: "week", granularity: 7 * 24 * time.Hour, multiplier: 1, timespan: models.Week},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			multiplier, timespan, err := polygonTimespan(tc.granularity)
			suite.NoError(err)
			suite.Equal(tc.multiplier, multiplier)
			suite.Equal(tc.timespan, timespan)
		})
	}

	_, _, err := polygonTimespan(time.Second)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidTimespan))
}
