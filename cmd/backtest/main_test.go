package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/strategy"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const day = 24 * time.Hour

type BacktestCmdTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	exchange *mocks.MockExchange
	start    time.Time
}

func TestBacktestCmdSuite(t *testing.T) {
	suite.Run(t, new(BacktestCmdTestSuite))
}

func (suite *BacktestCmdTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.exchange = mocks.NewMockExchange(suite.ctrl)
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *BacktestCmdTestSuite) serve(source *mocks.StaticHistorySource) {
	suite.exchange.EXPECT().Name().Return("mock").AnyTimes()
	suite.exchange.EXPECT().Granularities().DoAndReturn(source.Granularities).AnyTimes()
	suite.exchange.EXPECT().GetProductHistory(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(source.GetProductHistory).AnyTimes()
	suite.exchange.EXPECT().GetFees(gomock.Any(), gomock.Any()).Return(types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}, nil).AnyTimes()
	suite.exchange.EXPECT().GetOrderFilter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string) (types.OrderFilter, error) {
			return types.DefaultOrderFilter(symbol), nil
		}).AnyTimes()
}

func (suite *BacktestCmdTestSuite) backtest(build builtinStrategy, days int) types.BacktestResult {
	s, err := strategy.New(suite.exchange, strategy.WithLogger(logger.NewNopLogger()))
	suite.Require().NoError(err)
	suite.Require().NoError(build(s, "BTC-USD", day))

	result, err := s.Backtest(context.Background(), strategy.BacktestOptions{
		InitialValues: map[string]float64{"USD": 1000},
		StartDate:     optional.Some(suite.start),
		EndDate:       optional.Some(suite.start.Add(time.Duration(days) * day)),
		Overrides: map[string]any{
			"cache_location":                ":memory:",
			"continuous_caching":            false,
			"show_progress_during_backtest": false,
		},
	})
	suite.Require().NoError(err)

	return result
}

func (suite *BacktestCmdTestSuite) TestBuyAndHoldBuysOnce() {
	suite.serve(mocks.NewStaticHistorySource(day).
		Add("BTC-USD", mocks.FlatBars(suite.start, day, 100, 50, 200, 400)...))

	result := suite.backtest(buyAndHold, 4)

	suite.Require().Len(result.Trades, 1)
	suite.Equal(types.SideBuy, result.Trades[0].Side)
	suite.InDelta(4000, result.FinalValue, 1e-9)
}

func (suite *BacktestCmdTestSuite) TestSMACrossEntersAndExits() {
	prices := make([]float64, 0, 60)
	for range 25 {
		prices = append(prices, 100)
	}

	for i := 1; i <= 10; i++ {
		prices = append(prices, 100+float64(i)*10)
	}

	for i := 1; i <= 25; i++ {
		prices = append(prices, 200-float64(i)*6)
	}

	suite.serve(mocks.NewStaticHistorySource(day).Add("BTC-USD", mocks.FlatBars(suite.start, day, prices...)...))

	result := suite.backtest(smaCross(5, 20), len(prices))

	suite.Require().Len(result.Trades, 2)
	suite.Equal(types.SideBuy, result.Trades[0].Side)
	suite.Equal(types.SideSell, result.Trades[1].Side)
	suite.Zero(result.FinalBalances["BTC"])
}

func (suite *BacktestCmdTestSuite) TestSMACrossVariantsRegisterTogether() {
	s, err := strategy.New(suite.exchange, strategy.WithLogger(logger.NewNopLogger()))
	suite.Require().NoError(err)

	suite.Require().NoError(smaCross(5, 20)(s, "BTC-USD", day))
	suite.Require().NoError(smaCross(10, 50)(s, "BTC-USD", day))
	suite.True(errors.HasCode(smaCross(5, 20)(s, "BTC-USD", day), errors.ErrCodeDuplicateEvent))
}

func (suite *BacktestCmdTestSuite) TestParseInitialValues() {
	values, err := parseInitialValues([]string{"usd=1000", "BTC=0.5"})
	suite.Require().NoError(err)
	suite.Equal(map[string]float64{"USD": 1000, "BTC": 0.5}, values)

	values, err = parseInitialValues(nil)
	suite.Require().NoError(err)
	suite.Nil(values)

	for _, bad := range []string{"USD", "=10", "USD=ten"} {
		_, err := parseInitialValues([]string{bad})
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter), bad)
	}
}

func (suite *BacktestCmdTestSuite) TestRenderSummary() {
	summary := renderSummary(types.BacktestResult{
		ID:            "run-1",
		Start:         suite.start,
		End:           suite.start.Add(5 * day),
		QuoteAsset:    "USD",
		InitialValue:  1000,
		FinalValue:    3000,
		Metrics:       types.BacktestMetrics{Return: 2000, ReturnPercent: 200, NumberOfTrades: 2},
		FinalBalances: map[string]float64{"USD": 3000, "BTC": 0},
		ResultFolder:  "results/20240101_20240106/run-1",
	})

	suite.Contains(summary, "Backtest summary")
	suite.Contains(summary, "run-1")
	suite.Contains(summary, "3000.00 USD")
	suite.Contains(summary, "200.00%")
	suite.Contains(summary, "results/20240101_20240106/run-1")
	suite.Less(strings.Index(summary, "Balance BTC"), strings.Index(summary, "Balance USD"))
}

func (suite *BacktestCmdTestSuite) TestStrategyNamesSorted() {
	suite.Equal([]string{"buy-and-hold", "sma-cross"}, strategyNames())
}
