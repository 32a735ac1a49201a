package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	livev1 "github.com/rxtech-lab/argo-backtest/internal/trading/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const day = 24 * time.Hour

type StrategyTestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	exchange *mocks.MockExchange
	source   *mocks.StaticHistorySource
	start    time.Time
	end      time.Time
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.exchange = mocks.NewMockExchange(suite.ctrl)
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.end = suite.start.Add(5 * day)
	suite.source = mocks.NewStaticHistorySource(time.Hour, day).
		Add("BTC-USD", mocks.FlatBars(suite.start, day, 100, 200, 300, 400, 500)...)

	suite.exchange.EXPECT().Name().Return("mock").AnyTimes()
	suite.exchange.EXPECT().Granularities().DoAndReturn(suite.source.Granularities).AnyTimes()
	suite.exchange.EXPECT().GetProductHistory(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(suite.source.GetProductHistory).AnyTimes()
	suite.exchange.EXPECT().GetFees(gomock.Any(), gomock.Any()).
		Return(types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}, nil).AnyTimes()
	suite.exchange.EXPECT().GetOrderFilter(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string) (types.OrderFilter, error) {
			return types.DefaultOrderFilter(symbol), nil
		}).AnyTimes()
}

func (suite *StrategyTestSuite) newStrategy(opts ...Option) *Strategy {
	s, err := New(suite.exchange, append([]Option{WithLogger(logger.NewNopLogger())}, opts...)...)
	suite.Require().NoError(err)

	return s
}

func (suite *StrategyTestSuite) overrides() map[string]any {
	return map[string]any{
		"cache_location":                ":memory:",
		"continuous_caching":            false,
		"show_progress_during_backtest": false,
	}
}

// buyAndHold spends every dollar on the first firing.
func (suite *StrategyTestSuite) buyAndHold(s *Strategy) {
	err := s.AddPriceEvent(func(_ float64, symbol string, state *State) error {
		account, err := state.Interface.GetAccount()
		if err != nil {
			return err
		}

		if usd := account["USD"].Available; usd > 0 {
			_, err = state.Interface.MarketOrderFunds(symbol, types.SideBuy, usd)
		}

		return err
	}, "BTC-USD", day)
	suite.Require().NoError(err)
}

func (suite *StrategyTestSuite) TestBacktestWithDatesUsesExchangeAccount() {
	suite.exchange.EXPECT().GetAccount(gomock.Any()).
		Return(map[string]types.AssetBalance{"USD": {Available: 800, Hold: 200}}, nil)

	s := suite.newStrategy()
	suite.buyAndHold(s)

	result, err := s.Backtest(context.Background(), BacktestOptions{
		StartDate: optional.Some(suite.start),
		EndDate:   optional.Some(suite.end),
		Overrides: suite.overrides(),
	})
	suite.Require().NoError(err)

	suite.InDelta(1000, result.InitialValue, 1e-9)
	suite.InDelta(5000, result.FinalValue, 1e-9)
	suite.InDelta(1000, result.InitialBalances["USD"], 1e-9)
	suite.InDelta(10, result.FinalBalances["BTC"], 1e-9)
	suite.Len(result.Trades, 1)
}

func (suite *StrategyTestSuite) TestBacktestLookBackEndsNow() {
	s := suite.newStrategy(WithClock(func() time.Time { return suite.end }))
	suite.buyAndHold(s)

	result, err := s.Backtest(context.Background(), BacktestOptions{
		To:            "5d",
		InitialValues: map[string]float64{"USD": 100},
		Overrides:     suite.overrides(),
	})
	suite.Require().NoError(err)

	suite.Equal(suite.start, result.Start)
	suite.Equal(suite.end, result.End)
	suite.InDelta(500, result.FinalValue, 1e-9)
}

func (suite *StrategyTestSuite) TestBacktestPeriodErrors() {
	tests := []struct {
		name    string
		options BacktestOptions
	}{
		{
			name:    "look-back with dates",
			options: BacktestOptions{To: "1d", StartDate: optional.Some(suite.start)},
		},
		{
			name:    "unknown look-back unit",
			options: BacktestOptions{To: "5x"},
		},
		{
			name:    "end before start",
			options: BacktestOptions{StartDate: optional.Some(suite.end), EndDate: optional.Some(suite.start)},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			s := suite.newStrategy()
			suite.buyAndHold(s)

			tc.options.InitialValues = map[string]float64{"USD": 100}
			tc.options.Overrides = suite.overrides()

			_, err := s.Backtest(context.Background(), tc.options)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration), "got %v", err)
		})
	}
}

func (suite *StrategyTestSuite) TestBacktestAccountError() {
	suite.exchange.EXPECT().GetAccount(gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeMarketDataFetchFailed, "unauthorized"))

	s := suite.newStrategy()
	suite.buyAndHold(s)

	_, err := s.Backtest(context.Background(), BacktestOptions{
		StartDate: optional.Some(suite.start),
		EndDate:   optional.Some(suite.end),
		Overrides: suite.overrides(),
	})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestInitFailed))
	suite.True(errors.ContainsCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *StrategyTestSuite) TestBacktestWithoutEvents() {
	s := suite.newStrategy()

	_, err := s.Backtest(context.Background(), BacktestOptions{
		InitialValues: map[string]float64{"USD": 100},
		StartDate:     optional.Some(suite.start),
		EndDate:       optional.Some(suite.end),
		Overrides:     suite.overrides(),
	})
	suite.True(errors.HasCode(err, errors.ErrCodeNoEventsRegistered))
}

func (suite *StrategyTestSuite) TestRegistrationErrors() {
	s := suite.newStrategy()

	cb := PriceCallback(func(float64, string, *State) error { return nil })
	suite.Require().NoError(s.AddPriceEvent(cb, "BTC-USD", time.Minute))

	suite.True(errors.HasCode(s.AddPriceEvent(cb, "BTC-USD", time.Minute), errors.ErrCodeDuplicateEvent))
	suite.NoError(s.AddPriceEvent(cb, "BTC-USD", time.Hour))
	suite.True(errors.HasCode(s.AddPriceEvent(cb, "BTC-USD", 500*time.Millisecond), errors.ErrCodeInvalidResolution))
	suite.True(errors.HasCode(s.AddPriceEvent(cb, "", time.Minute), errors.ErrCodeInvalidParameter))
	suite.True(errors.HasCode(s.AddBarEvent(nil, "BTC-USD", time.Minute), errors.ErrCodeInvalidParameter))

	suite.NoError(s.AddOrderbookEvent(func(types.OrderbookUpdate, string, *State) error { return nil }, "ETH-USD"))
	suite.Equal(map[string][]time.Duration{
		"BTC-USD": {time.Minute, time.Hour},
		"ETH-USD": {time.Minute},
	}, s.Symbols())
}

func (suite *StrategyTestSuite) TestStartRunsLive() {
	closed := make(chan time.Time)
	close(closed)

	s := suite.newStrategy(WithLiveEngineOptions(livev1.WithTicker(func(time.Duration) (<-chan time.Time, func()) {
		return closed, func() {}
	})))

	var prices []float64

	err := s.AddPriceEvent(func(price float64, _ string, _ *State) error {
		prices = append(prices, price)

		return nil
	}, "BTC-USD", time.Minute)
	suite.Require().NoError(err)

	suite.exchange.EXPECT().GetPrice(gomock.Any(), "BTC-USD").Return(42.0, nil)

	suite.Require().NoError(s.Start(context.Background(), LiveOptions{}))
	suite.Equal([]float64{42}, prices)
}

func (suite *StrategyTestSuite) TestNewRequiresExchange() {
	_, err := New(nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *StrategyTestSuite) TestConfigSchemas() {
	backtestSchema, err := BacktestConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(backtestSchema, "resample_account_value_for_metrics")

	liveSchema, err := LiveConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(liveSchema, "request_timeout")
}
