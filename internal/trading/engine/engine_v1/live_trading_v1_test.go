package engine_v1

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/trading/engine"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/mocks"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type LiveTradingEngineV1TestSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	exchange *mocks.MockExchange
	registry *events.Registry
	ticks    map[time.Duration]chan time.Time
}

func TestLiveTradingEngineV1Suite(t *testing.T) {
	suite.Run(t, new(LiveTradingEngineV1TestSuite))
}

func (suite *LiveTradingEngineV1TestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.exchange = mocks.NewMockExchange(suite.ctrl)
	suite.exchange.EXPECT().Name().Return("mock").AnyTimes()
	suite.registry = events.NewRegistry()
	suite.ticks = map[time.Duration]chan time.Time{}
}

// ticker hands out one buffered channel per resolution. Tests fill it and
// close it to end the event loop.
func (suite *LiveTradingEngineV1TestSuite) ticker(interval time.Duration) (<-chan time.Time, func()) {
	ch, ok := suite.ticks[interval]
	if !ok {
		ch = make(chan time.Time, 8)
		close(ch)
	}

	return ch, func() {}
}

func (suite *LiveTradingEngineV1TestSuite) feed(interval time.Duration, at ...time.Time) {
	ch := make(chan time.Time, len(at))
	for _, t := range at {
		ch <- t
	}

	close(ch)
	suite.ticks[interval] = ch
}

func (suite *LiveTradingEngineV1TestSuite) newEngine(config engine.LiveTradingEngineConfig) *LiveTradingEngineV1 {
	e, err := NewLiveTradingEngineV1(WithTicker(suite.ticker), WithLogger(logger.NewNopLogger()))
	suite.Require().NoError(err)
	suite.Require().NoError(e.Initialize(config))
	suite.Require().NoError(e.SetExchange(suite.exchange))
	suite.Require().NoError(e.LoadEvents(suite.registry.Events()))

	return e
}

func (suite *LiveTradingEngineV1TestSuite) TestPriceEventFiresAtStartAndOnEveryTick() {
	var prices []float64

	var teardowns int

	_, err := suite.registry.AddPriceEvent(func(price float64, _ string, _ *events.State) error {
		prices = append(prices, price)

		return nil
	}, "BTC-USD", time.Minute, events.WithTeardown(func(_ *events.State) error {
		teardowns++

		return nil
	}))
	suite.Require().NoError(err)

	quotes := []float64{100, 101, 102}
	calls := 0
	suite.exchange.EXPECT().GetPrice(gomock.Any(), "BTC-USD").DoAndReturn(func(context.Context, string) (float64, error) {
		price := quotes[calls]
		calls++

		return price, nil
	}).Times(3)

	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	suite.feed(time.Minute, base.Add(time.Minute), base.Add(2*time.Minute))

	var ticked []time.Time

	onTick := engine.OnTickCallback(func(_ *events.EventDefinition, at time.Time) error {
		ticked = append(ticked, at)

		return nil
	})

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	err = e.Run(context.Background(), engine.LiveTradingCallbacks{OnTick: &onTick})
	suite.Require().NoError(err)

	suite.Equal(quotes, prices)
	suite.Equal(1, teardowns)
	suite.Require().Len(ticked, 3)
	suite.Equal(base.Add(2*time.Minute), ticked[2])
}

func (suite *LiveTradingEngineV1TestSuite) TestBarEventReceivesLastClosedBar() {
	var bars []types.Bar

	_, err := suite.registry.AddBarEvent(func(bar types.Bar, _ string, _ *events.State) error {
		bars = append(bars, bar)

		return nil
	}, "BTC-USD", 5*time.Minute)
	suite.Require().NoError(err)

	at := time.Date(2024, 1, 1, 10, 0, 30, 0, time.UTC)
	suite.feed(5*time.Minute, at)

	suite.exchange.EXPECT().Granularities().Return([]time.Duration{time.Minute}).AnyTimes()

	type window struct{ start, end time.Time }

	var windows []window

	suite.exchange.EXPECT().GetProductHistory(gomock.Any(), "BTC-USD", gomock.Any(), gomock.Any(), time.Minute).
		DoAndReturn(func(_ context.Context, _ string, start, end time.Time, _ time.Duration) ([]types.Bar, error) {
			windows = append(windows, window{start, end})

			return mocks.FlatBars(start, time.Minute, 10, 11, 12, 13, 14), nil
		}).Times(2)

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	suite.Require().NoError(e.Run(context.Background(), engine.LiveTradingCallbacks{}))

	suite.Require().Len(windows, 2)
	suite.Equal(5*time.Minute, windows[0].end.Sub(windows[0].start))
	suite.Equal(time.Date(2024, 1, 1, 9, 55, 0, 0, time.UTC), windows[1].start)
	suite.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), windows[1].end)

	suite.Require().Len(bars, 2)
	suite.Equal(windows[1].start, bars[1].Time)
	suite.Equal(10.0, bars[1].Open)
	suite.Equal(14.0, bars[1].Close)
	suite.Equal(5.0, bars[1].Volume)
}

func (suite *LiveTradingEngineV1TestSuite) TestOrderbookEventGetsPriceTick() {
	var books []types.OrderbookUpdate

	_, err := suite.registry.AddOrderbookEvent(func(book types.OrderbookUpdate, _ string, _ *events.State) error {
		books = append(books, book)

		return nil
	}, "ETH-USD")
	suite.Require().NoError(err)

	suite.exchange.EXPECT().GetPrice(gomock.Any(), "ETH-USD").Return(2500.0, nil)

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	suite.Require().NoError(e.Run(context.Background(), engine.LiveTradingCallbacks{}))

	suite.Require().Len(books, 1)
	suite.Equal("ETH-USD", books[0].Symbol)
	suite.Equal(2500.0, books[0].Bids[0].Price)
	suite.Equal(2500.0, books[0].Asks[0].Price)
}

func (suite *LiveTradingEngineV1TestSuite) TestFetchErrorSkipsTick() {
	fired := 0

	_, err := suite.registry.AddPriceEvent(func(float64, string, *events.State) error {
		fired++

		return nil
	}, "BTC-USD", time.Minute)
	suite.Require().NoError(err)

	suite.feed(time.Minute, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC))

	gomock.InOrder(
		suite.exchange.EXPECT().GetPrice(gomock.Any(), "BTC-USD").
			Return(0.0, errors.New(errors.ErrCodeMarketDataFetchFailed, "timeout")),
		suite.exchange.EXPECT().GetPrice(gomock.Any(), "BTC-USD").Return(100.0, nil),
	)

	var reported []error

	onError := engine.OnErrorCallback(func(err error) {
		reported = append(reported, err)
	})

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	suite.Require().NoError(e.Run(context.Background(), engine.LiveTradingCallbacks{OnError: &onError}))

	suite.Equal(1, fired)
	suite.Require().Len(reported, 1)
	suite.True(errors.HasCode(reported[0], errors.ErrCodeMarketDataFetchFailed))
}

func (suite *LiveTradingEngineV1TestSuite) TestCallbackErrorStopsRun() {
	teardowns := 0

	_, err := suite.registry.AddPriceEvent(func(float64, string, *events.State) error {
		return errors.New(errors.ErrCodeStrategyRuntimeError, "boom")
	}, "BTC-USD", time.Minute, events.WithTeardown(func(*events.State) error {
		teardowns++

		return nil
	}))
	suite.Require().NoError(err)

	suite.feed(time.Minute, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC))
	suite.exchange.EXPECT().GetPrice(gomock.Any(), "BTC-USD").Return(100.0, nil).Times(1)

	var stopped []error

	onStop := engine.OnEngineStopCallback(func(err error) {
		stopped = append(stopped, err)
	})

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	err = e.Run(context.Background(), engine.LiveTradingCallbacks{OnEngineStop: &onStop})

	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeUserCallbackError))
	suite.True(errors.ContainsCode(err, errors.ErrCodeStrategyRuntimeError))
	suite.Equal(1, teardowns)
	suite.Require().Len(stopped, 1)
	suite.Equal(err, stopped[0])
}

func (suite *LiveTradingEngineV1TestSuite) TestIgnoredCallbackErrorsAreReported() {
	_, err := suite.registry.AddPriceEvent(func(float64, string, *events.State) error {
		return errors.New(errors.ErrCodeStrategyRuntimeError, "boom")
	}, "BTC-USD", time.Minute)
	suite.Require().NoError(err)

	suite.feed(time.Minute, time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC))
	suite.exchange.EXPECT().GetPrice(gomock.Any(), "BTC-USD").Return(100.0, nil).Times(2)

	reported := 0

	onStrategyError := engine.OnStrategyErrorCallback(func(event *events.EventDefinition, err error) {
		suite.Equal("BTC-USD", event.Symbol)
		reported++
	})

	e := suite.newEngine(engine.LiveTradingEngineConfig{IgnoreUserExceptions: true})
	err = e.Run(context.Background(), engine.LiveTradingCallbacks{OnStrategyError: &onStrategyError})

	suite.Require().NoError(err)
	suite.Equal(2, reported)
}

func (suite *LiveTradingEngineV1TestSuite) TestInitErrorPreventsFiring() {
	_, err := suite.registry.AddPriceEvent(func(float64, string, *events.State) error {
		suite.Fail("callback must not run")

		return nil
	}, "BTC-USD", time.Minute, events.WithInit(func(string, *events.State) error {
		return errors.New(errors.ErrCodeStrategyRuntimeError, "no init")
	}))
	suite.Require().NoError(err)

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	err = e.Run(context.Background(), engine.LiveTradingCallbacks{})

	suite.True(errors.HasCode(err, errors.ErrCodeUserCallbackError))
}

func (suite *LiveTradingEngineV1TestSuite) TestCancelledContextRunsTeardowns() {
	var mu sync.Mutex

	var order []string

	for _, symbol := range []string{"BTC-USD", "ETH-USD"} {
		_, err := suite.registry.AddPriceEvent(func(float64, string, *events.State) error {
			return nil
		}, symbol, time.Minute, events.WithTeardown(func(state *events.State) error {
			mu.Lock()
			defer mu.Unlock()

			order = append(order, state.Symbol)

			return nil
		}))
		suite.Require().NoError(err)
	}

	// never fires after the initial tick
	suite.ticks[time.Minute] = make(chan time.Time)
	suite.exchange.EXPECT().GetPrice(gomock.Any(), gomock.Any()).Return(100.0, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())

	var started []string

	onStart := engine.OnEngineStartCallback(func(symbols []string) error {
		started = symbols
		cancel()

		return nil
	})

	e := suite.newEngine(engine.LiveTradingEngineConfig{})
	err := e.Run(ctx, engine.LiveTradingCallbacks{OnEngineStart: &onStart})

	suite.ErrorIs(err, context.Canceled)
	suite.Equal([]string{"BTC-USD", "ETH-USD"}, started)
	suite.Equal([]string{"BTC-USD", "ETH-USD"}, order)
}

func (suite *LiveTradingEngineV1TestSuite) TestPreRunChecks() {
	e, err := NewLiveTradingEngineV1(WithTicker(suite.ticker), WithLogger(logger.NewNopLogger()))
	suite.Require().NoError(err)

	err = e.Run(context.Background(), engine.LiveTradingCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestInitFailed))

	suite.Require().NoError(e.Initialize(engine.LiveTradingEngineConfig{}))
	err = e.Run(context.Background(), engine.LiveTradingCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestInitFailed))

	suite.Require().NoError(e.SetExchange(suite.exchange))
	err = e.Run(context.Background(), engine.LiveTradingCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeNoEventsRegistered))
}

func (suite *LiveTradingEngineV1TestSuite) TestConfigurationValidation() {
	e, err := NewLiveTradingEngineV1(WithLogger(logger.NewNopLogger()))
	suite.Require().NoError(err)

	tests := []struct {
		name   string
		config engine.LiveTradingEngineConfig
		code   errors.ErrorCode
	}{
		{name: "unknown price column", config: engine.LiveTradingEngineConfig{UsePrice: "mid"}, code: errors.ErrCodeInvalidConfiguration},
		{name: "negative timeout", config: engine.LiveTradingEngineConfig{RequestTimeout: -time.Second}, code: errors.ErrCodeInvalidConfiguration},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.True(errors.HasCode(e.Initialize(tc.config), tc.code))
		})
	}

	suite.True(errors.HasCode(e.SetExchange(nil), errors.ErrCodeMissingParameter))
	suite.True(errors.HasCode(e.LoadEvents(nil), errors.ErrCodeNoEventsRegistered))

	schema, err := e.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "ignore_user_exceptions")
}
