package engine_v1

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/trading"
	"github.com/rxtech-lab/argo-backtest/internal/trading/engine"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TickerFunc returns a channel delivering ticks every interval and a stop function.
type TickerFunc func(interval time.Duration) (<-chan time.Time, func())

func newTimeTicker(interval time.Duration) (<-chan time.Time, func()) {
	ticker := time.NewTicker(interval)

	return ticker.C, ticker.Stop
}

// LiveTradingEngineV1 runs every event on its own ticker goroutine. Events
// fire once at start and then every resolution; callbacks of different
// events may run concurrently.
type LiveTradingEngineV1 struct {
	config      engine.LiveTradingEngineConfig
	events      []*events.EventDefinition
	exchange    exchange.Exchange
	log         *logger.Logger
	initialized bool
	ticker      TickerFunc

	// serializes OnTick
	tickMu sync.Mutex
}

// Option customises a LiveTradingEngineV1.
type Option func(*LiveTradingEngineV1)

// WithTicker replaces the wall clock ticker.
func WithTicker(ticker TickerFunc) Option {
	return func(e *LiveTradingEngineV1) {
		e.ticker = ticker
	}
}

// WithLogger replaces the production logger.
func WithLogger(log *logger.Logger) Option {
	return func(e *LiveTradingEngineV1) {
		e.log = log
	}
}

// NewLiveTradingEngineV1 creates a new LiveTradingEngineV1 instance.
func NewLiveTradingEngineV1(opts ...Option) (*LiveTradingEngineV1, error) {
	e := &LiveTradingEngineV1{
		config:      engine.LiveTradingEngineConfig{}, //nolint:exhaustruct // initialized via Initialize()
		events:      nil,
		exchange:    nil,
		log:         nil,
		initialized: false,
		ticker:      newTimeTicker,
		tickMu:      sync.Mutex{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.log == nil {
		log, err := logger.NewLogger()
		if err != nil {
			return nil, err
		}

		e.log = log
	}

	e.log = e.log.Named("live")

	return e, nil
}

// Initialize implements engine.LiveTradingEngine.
func (e *LiveTradingEngineV1) Initialize(config engine.LiveTradingEngineConfig) error {
	if config.UsePrice == "" {
		config.UsePrice = types.PriceColumnClose
	}

	if !config.UsePrice.Valid() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid use_price %q", config.UsePrice)
	}

	if config.RequestTimeout < 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "request_timeout cannot be negative")
	}

	e.config = config
	e.initialized = true

	return nil
}

// LoadEvents implements engine.LiveTradingEngine.
func (e *LiveTradingEngineV1) LoadEvents(registered []*events.EventDefinition) error {
	if len(registered) == 0 {
		return errors.New(errors.ErrCodeNoEventsRegistered, "no events registered")
	}

	ordered := slices.Clone(registered)
	slices.SortStableFunc(ordered, func(a, b *events.EventDefinition) int {
		return a.Index - b.Index
	})

	e.events = ordered

	return nil
}

// SetExchange implements engine.LiveTradingEngine.
func (e *LiveTradingEngineV1) SetExchange(ex exchange.Exchange) error {
	if ex == nil {
		return errors.New(errors.ErrCodeMissingParameter, "exchange is required")
	}

	e.exchange = ex

	return nil
}

// Run implements engine.LiveTradingEngine. Teardowns run in registration
// order once every event goroutine returned.
func (e *LiveTradingEngineV1) Run(ctx context.Context, callbacks engine.LiveTradingCallbacks) error {
	var runErr error

	defer func() {
		if callbacks.OnEngineStop != nil {
			(*callbacks.OnEngineStop)(runErr)
		}
	}()

	if err := e.preRunCheck(); err != nil {
		runErr = err

		return err
	}

	ts := trading.NewLiveTrading(ctx, e.exchange, e.log)
	ts.SetTimeout(e.config.RequestTimeout)

	start := ts.Time()
	for _, event := range e.events {
		event.Reset(start, ts)
	}

	for _, event := range e.events {
		if err := event.RunInit(); err != nil {
			runErr = errors.Wrapf(errors.ErrCodeUserCallbackError, err, "init of %s event for %s failed", event.Type, event.Symbol)

			return runErr
		}
	}

	if callbacks.OnEngineStart != nil {
		if err := (*callbacks.OnEngineStart)(e.symbols()); err != nil {
			runErr = err

			return err
		}
	}

	e.log.Info("Live trading started",
		zap.String("exchange", e.exchange.Name()),
		zap.Strings("symbols", e.symbols()),
		zap.Int("events", len(e.events)),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, event := range e.events {
		g.Go(func() error {
			return e.runEvent(gctx, event, ts, callbacks)
		})
	}

	runErr = g.Wait()

	if err := e.teardown(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr == nil && ctx.Err() != nil {
		runErr = ctx.Err()
	}

	e.log.Info("Live trading stopped", zap.Error(runErr))

	return runErr
}

func (e *LiveTradingEngineV1) runEvent(
	ctx context.Context,
	event *events.EventDefinition,
	ts *trading.LiveTrading,
	callbacks engine.LiveTradingCallbacks,
) error {
	ticks, stop := e.ticker(event.Resolution)
	defer stop()

	if err := e.fire(ctx, event, ts, ts.Time(), callbacks); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case at, ok := <-ticks:
			if !ok {
				return nil
			}

			if err := e.fire(ctx, event, ts, at.UTC(), callbacks); err != nil {
				return err
			}
		}
	}
}

func (e *LiveTradingEngineV1) fire(
	ctx context.Context,
	event *events.EventDefinition,
	ts *trading.LiveTrading,
	at time.Time,
	callbacks engine.LiveTradingCallbacks,
) error {
	event.Schedule(at)

	payload, err := e.payload(ctx, event, ts, at)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}

		e.log.Warn("Failed to fetch event data, skipping tick",
			zap.String("symbol", event.Symbol),
			zap.String("type", string(event.Type)),
			zap.Error(err))

		if callbacks.OnError != nil {
			(*callbacks.OnError)(err)
		}

		return nil
	}

	if err := event.Fire(payload); err != nil {
		if !e.config.IgnoreUserExceptions {
			return errors.Wrapf(errors.ErrCodeUserCallbackError, err, "%s callback for %s failed", event.Type, event.Symbol)
		}

		e.log.Error("Callback failed, continuing",
			zap.String("symbol", event.Symbol),
			zap.String("type", string(event.Type)),
			zap.Error(err))

		if callbacks.OnStrategyError != nil {
			(*callbacks.OnStrategyError)(event, err)
		}
	}

	if callbacks.OnTick != nil {
		e.tickMu.Lock()
		defer e.tickMu.Unlock()

		return (*callbacks.OnTick)(event, at)
	}

	return nil
}

func (e *LiveTradingEngineV1) payload(
	ctx context.Context,
	event *events.EventDefinition,
	ts *trading.LiveTrading,
	at time.Time,
) (events.Payload, error) {
	switch event.Type {
	case events.EventTypeBar:
		bar, err := e.lastClosedBar(ctx, event, at)
		if err != nil {
			return events.Payload{}, err
		}

		return events.Payload{Price: bar.Price(e.config.UsePrice), Bar: bar, Orderbook: types.OrderbookUpdate{}}, nil
	case events.EventTypeOrderbook:
		price, err := ts.GetPrice(event.Symbol)
		if err != nil {
			return events.Payload{}, err
		}

		return events.Payload{
			Price:     price,
			Bar:       types.Bar{},
			Orderbook: types.NewPriceTickOrderbook(event.Symbol, at, price),
		}, nil
	default:
		price, err := ts.GetPrice(event.Symbol)
		if err != nil {
			return events.Payload{}, err
		}

		return events.Payload{Price: price, Bar: types.Bar{}, Orderbook: types.OrderbookUpdate{}}, nil
	}
}

// lastClosedBar aggregates the exchange rows of [end - resolution, end), end
// being at aligned down to the granularity the exchange serves.
func (e *LiveTradingEngineV1) lastClosedBar(ctx context.Context, event *events.EventDefinition, at time.Time) (types.Bar, error) {
	granularity, _ := exchange.RoundGranularity(event.Resolution, e.exchange.Granularities())
	end := at.Truncate(granularity)
	start := end.Add(-event.Resolution)

	timeout := e.config.RequestTimeout
	if timeout <= 0 {
		timeout = trading.DefaultRequestTimeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	bars, err := e.exchange.GetProductHistory(callCtx, event.Symbol, start, end, granularity)
	if err != nil {
		return types.Bar{}, err
	}

	bar, ok := types.AggregateBars(start, bars)
	if !ok {
		return types.Bar{}, errors.Newf(errors.ErrCodeNoDataFound, "no closed bar for %s between %s and %s",
			event.Symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	return bar, nil
}

func (e *LiveTradingEngineV1) teardown() error {
	var firstErr error

	for _, event := range e.events {
		if err := event.RunTeardown(); err != nil {
			e.log.Error("Teardown failed", zap.String("symbol", event.Symbol), zap.Error(err))

			if firstErr == nil && !e.config.IgnoreUserExceptions {
				firstErr = errors.Wrapf(errors.ErrCodeUserCallbackError, err, "teardown of %s event for %s failed", event.Type, event.Symbol)
			}
		}
	}

	return firstErr
}

func (e *LiveTradingEngineV1) symbols() []string {
	var symbols []string

	for _, event := range e.events {
		if !slices.Contains(symbols, event.Symbol) {
			symbols = append(symbols, event.Symbol)
		}
	}

	return symbols
}

// GetConfigSchema implements engine.LiveTradingEngine.
func (e *LiveTradingEngineV1) GetConfigSchema() (string, error) {
	return engine.GetConfigSchema()
}

// preRunCheck validates that all required components are configured before running.
func (e *LiveTradingEngineV1) preRunCheck() error {
	if !e.initialized {
		return errors.New(errors.ErrCodeBacktestInitFailed, "engine not initialized - call Initialize() first")
	}

	if e.exchange == nil {
		return errors.New(errors.ErrCodeBacktestInitFailed, "exchange not set - call SetExchange() first")
	}

	if len(e.events) == 0 {
		return errors.New(errors.ErrCodeNoEventsRegistered, "no events loaded - call LoadEvents() first")
	}

	return nil
}
