// Package strategy is the entry point for writing strategies: register
// callbacks, then run them against history or a live exchange.
package strategy

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	backtest "github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	backtestv1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	live "github.com/rxtech-lab/argo-backtest/internal/trading/engine"
	livev1 "github.com/rxtech-lab/argo-backtest/internal/trading/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
	"go.uber.org/zap"
)

type (
	State             = events.State
	Variables         = events.Variables
	EventOption       = events.Option
	PriceCallback     = events.PriceCallback
	BarCallback       = events.BarCallback
	OrderbookCallback = events.OrderbookCallback
	InitCallback      = events.InitCallback
	TeardownCallback  = events.TeardownCallback

	BacktestCallbacks = backtest.LifecycleCallbacks
	BacktestResult    = types.BacktestResult
	LiveCallbacks     = live.LiveTradingCallbacks
	LiveConfig        = live.LiveTradingEngineConfig
)

var (
	WithInit       = events.WithInit
	WithTeardown   = events.WithTeardown
	WithVariables  = events.WithVariables
	WithResolution = events.WithResolution
	WithName       = events.WithName
)

// Strategy holds the registered events and the exchange they run against.
type Strategy struct {
	exchange        exchange.Exchange
	registry        *events.Registry
	log             *logger.Logger
	now             func() time.Time
	backtestOptions []backtestv1.EngineOption
	liveOptions     []livev1.Option
}

// Option configures a Strategy.
type Option func(*Strategy)

// WithLogger replaces the production logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Strategy) {
		s.log = log
	}
}

// WithClock replaces time.Now when resolving BacktestOptions.To.
func WithClock(now func() time.Time) Option {
	return func(s *Strategy) {
		s.now = now
	}
}

// WithBacktestEngineOptions forwards options to every backtest engine created by Backtest.
func WithBacktestEngineOptions(opts ...backtestv1.EngineOption) Option {
	return func(s *Strategy) {
		s.backtestOptions = append(s.backtestOptions, opts...)
	}
}

// WithLiveEngineOptions forwards options to the live engine created by Start.
func WithLiveEngineOptions(opts ...livev1.Option) Option {
	return func(s *Strategy) {
		s.liveOptions = append(s.liveOptions, opts...)
	}
}

// New creates a strategy trading on ex. In backtests ex serves history,
// fees, order filters and, when no initial values are given, the account.
func New(ex exchange.Exchange, opts ...Option) (*Strategy, error) {
	if ex == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "exchange is required")
	}

	s := &Strategy{
		exchange:        ex,
		registry:        events.NewRegistry(),
		log:             nil,
		now:             time.Now,
		backtestOptions: nil,
		liveOptions:     nil,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		log, err := logger.NewLogger()
		if err != nil {
			return nil, err
		}

		s.log = log
	}

	return s, nil
}

// AddPriceEvent calls cb with the price of symbol every resolution.
func (s *Strategy) AddPriceEvent(cb PriceCallback, symbol string, resolution time.Duration, opts ...EventOption) error {
	_, err := s.registry.AddPriceEvent(cb, symbol, resolution, opts...)

	return err
}

// AddBarEvent calls cb with the bar that closed during the last resolution.
func (s *Strategy) AddBarEvent(cb BarCallback, symbol string, resolution time.Duration, opts ...EventOption) error {
	_, err := s.registry.AddBarEvent(cb, symbol, resolution, opts...)

	return err
}

// AddOrderbookEvent calls cb with the book of symbol, every minute unless
// WithResolution says otherwise.
func (s *Strategy) AddOrderbookEvent(cb OrderbookCallback, symbol string, opts ...EventOption) error {
	_, err := s.registry.AddOrderbookEvent(cb, symbol, opts...)

	return err
}

// Symbols lists the registered symbols with their resolutions.
func (s *Strategy) Symbols() map[string][]time.Duration {
	return s.registry.Symbols()
}

// BacktestOptions selects the period and the starting account of a backtest.
type BacktestOptions struct {
	// To is a look-back such as "10d" or "1M", ending now.
	To string
	// InitialValues maps asset to amount. Nil reads the exchange account.
	InitialValues map[string]float64
	StartDate     optional.Option[time.Time]
	EndDate       optional.Option[time.Time]
	// SettingsPath is an optional JSON or YAML settings file.
	SettingsPath string
	// Overrides take precedence over the settings file and the environment.
	Overrides map[string]any
	Callbacks BacktestCallbacks
}

// Backtest replays the registered events over history. Without To or
// dates the run covers whatever the price cache already holds.
func (s *Strategy) Backtest(ctx context.Context, opts BacktestOptions) (BacktestResult, error) {
	config, err := backtestv1.LoadSettings(opts.SettingsPath, opts.Overrides)
	if err != nil {
		return BacktestResult{}, err
	}

	if err := s.applyPeriod(&config, opts); err != nil {
		return BacktestResult{}, err
	}

	initialValues := opts.InitialValues
	if initialValues == nil {
		initialValues, err = s.accountValues(ctx)
		if err != nil {
			return BacktestResult{}, err
		}
	}

	runner, err := backtestv1.NewBacktestEngineV1(config, s.exchange, s.log, s.backtestOptions...)
	if err != nil {
		return BacktestResult{}, err
	}

	defer func() {
		if closeErr := runner.Close(); closeErr != nil {
			s.log.Warn("Failed to close backtest engine", zap.Error(closeErr))
		}
	}()

	if err := runner.LoadEvents(s.registry.Events()); err != nil {
		return BacktestResult{}, err
	}

	if err := runner.WriteInitialPriceValues(initialValues); err != nil {
		return BacktestResult{}, err
	}

	return runner.Run(ctx, opts.Callbacks)
}

func (s *Strategy) applyPeriod(config *backtestv1.BacktestEngineV1Config, opts BacktestOptions) error {
	hasDates := opts.StartDate.IsSome() || opts.EndDate.IsSome()

	switch {
	case opts.To != "" && hasDates:
		return errors.New(errors.ErrCodeInvalidConfiguration, "to cannot be combined with start or end dates")
	case opts.To != "":
		lookBack, err := utils.ParseInterval(opts.To)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid look-back %q", opts.To)
		}

		end := s.now().UTC().Truncate(time.Second)
		config.StartTime = optional.Some(end.Add(-lookBack))
		config.EndTime = optional.Some(end)
	case hasDates:
		if opts.StartDate.IsSome() {
			config.StartTime = opts.StartDate
		}

		if opts.EndDate.IsSome() {
			config.EndTime = opts.EndDate
		}
	case config.StartTime.IsNone() && config.EndTime.IsNone():
		s.log.Warn("No backtest period given, running over cached prices only")
	}

	return config.Validate()
}

func (s *Strategy) accountValues(ctx context.Context) (map[string]float64, error) {
	account, err := s.exchange.GetAccount(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to read initial values from the exchange account", err)
	}

	values := make(map[string]float64, len(account))
	for asset, balance := range account {
		values[asset] = balance.Total()
	}

	return values, nil
}

// LiveOptions configures Start.
type LiveOptions struct {
	Config    LiveConfig
	Callbacks LiveCallbacks
}

// Start runs the registered events against the exchange until ctx is done
// or a callback fails.
func (s *Strategy) Start(ctx context.Context, opts LiveOptions) error {
	liveOptions := append([]livev1.Option{livev1.WithLogger(s.log)}, s.liveOptions...)

	runner, err := livev1.NewLiveTradingEngineV1(liveOptions...)
	if err != nil {
		return err
	}

	if err := runner.Initialize(opts.Config); err != nil {
		return err
	}

	if err := runner.SetExchange(s.exchange); err != nil {
		return err
	}

	if err := runner.LoadEvents(s.registry.Events()); err != nil {
		return err
	}

	return runner.Run(ctx, opts.Callbacks)
}

// BacktestConfigSchema returns the JSON schema of the backtest settings.
func BacktestConfigSchema() (string, error) {
	config := backtestv1.EmptyConfig()

	return config.GenerateSchemaJSON()
}

// LiveConfigSchema returns the JSON schema of LiveConfig.
func LiveConfigSchema() (string, error) {
	return ToJSONSchema(&LiveConfig{}) //nolint:exhaustruct // empty config for schema generation
}
