package engine

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/ledger"
	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ResultFileName is the YAML summary written next to the parquet exports.
const ResultFileName = "result.yaml"

var _ engine.Engine = (*BacktestEngineV1)(nil)

type BacktestEngineV1 struct {
	config        BacktestEngineV1Config
	source        exchange.HistorySource
	rules         MarketRules
	log           *logger.Logger
	prices        *datasource.PriceCache
	state         *BacktestState
	events        []*events.EventDefinition
	initialValues map[string]float64

	mu        sync.Mutex
	scheduler *Scheduler
	trace     []TraceEntry
}

// EngineOption customises a BacktestEngineV1.
type EngineOption func(*BacktestEngineV1)

// WithMarketRules overrides the fees and order filters used by simulated fills.
func WithMarketRules(rules MarketRules) EngineOption {
	return func(b *BacktestEngineV1) {
		b.rules = rules
	}
}

// WithPriceCache replaces the cache built from the config.
func WithPriceCache(prices *datasource.PriceCache) EngineOption {
	return func(b *BacktestEngineV1) {
		b.prices = prices
	}
}

// NewBacktestEngineV1 builds an engine reading history from source. When the
// source also serves fees and order filters it is used for those as well.
func NewBacktestEngineV1(
	config BacktestEngineV1Config,
	source exchange.HistorySource,
	log *logger.Logger,
	opts ...EngineOption,
) (*BacktestEngineV1, error) {
	if source == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "history source is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	b := &BacktestEngineV1{
		config:        config,
		source:        source,
		rules:         StaticMarketRules{Fees: types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}, Filters: nil},
		log:           log.Named("backtest"),
		prices:        nil,
		state:         nil,
		events:        nil,
		initialValues: make(map[string]float64),
		mu:            sync.Mutex{},
		scheduler:     nil,
		trace:         nil,
	}

	if rules, ok := source.(MarketRules); ok {
		b.rules = rules
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.prices == nil {
		prices, err := b.newPriceCache()
		if err != nil {
			return nil, err
		}

		b.prices = prices
	}

	state, err := NewBacktestState(b.log)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create backtest state", err)
	}

	if err := state.Initialize(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to initialize backtest state", err)
	}

	b.state = state

	return b, nil
}

func (b *BacktestEngineV1) newPriceCache() (*datasource.PriceCache, error) {
	opts := []datasource.Option{
		datasource.WithMaxRetries(b.config.MaxFetchRetries),
		datasource.WithSmoothing(b.config.SmoothPrices),
	}

	if b.config.ContinuousCaching {
		store, err := datasource.NewDuckDBStore(b.config.CacheLocation, b.log)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open price cache", err)
		}

		opts = append(opts, datasource.WithStore(store))
	}

	return datasource.NewPriceCache(b.source, b.log, opts...), nil
}

// Config returns the validated configuration.
func (b *BacktestEngineV1) Config() BacktestEngineV1Config {
	return b.config
}

// Prices exposes the price cache shared by every run of this engine.
func (b *BacktestEngineV1) Prices() *datasource.PriceCache {
	return b.prices
}

// LoadEvents implements engine.Engine.
func (b *BacktestEngineV1) LoadEvents(registered []*events.EventDefinition) error {
	if len(registered) == 0 {
		return errors.New(errors.ErrCodeNoEventsRegistered, "no events registered")
	}

	b.events = registered
	b.log.Debug("Events loaded", zap.Int("total_events", len(registered)))

	return nil
}

// AddPrices implements engine.Engine.
func (b *BacktestEngineV1) AddPrices(ctx context.Context, symbol string, resolution time.Duration, start, end time.Time) error {
	series, err := b.prices.Get(ctx, symbol, resolution, start, end)
	if err != nil {
		return err
	}

	b.log.Debug("Prices added",
		zap.String("symbol", symbol),
		zap.Duration("resolution", resolution),
		zap.Int("rows", len(series.Bars)),
	)

	return nil
}

// WriteInitialPriceValues implements engine.Engine.
func (b *BacktestEngineV1) WriteInitialPriceValues(values map[string]float64) error {
	seeded := make(map[string]float64, len(values))

	for asset, amount := range values {
		if asset == "" {
			return errors.New(errors.ErrCodeInvalidParameter, "asset name cannot be empty")
		}

		if amount < 0 {
			return errors.Newf(errors.ErrCodeInvalidParameter, "initial amount of %s cannot be negative: %v", asset, amount)
		}

		seeded[asset] = amount
	}

	b.initialValues = seeded

	return nil
}

// Stop implements engine.Engine.
func (b *BacktestEngineV1) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.scheduler != nil {
		b.scheduler.Stop()
	}
}

// Trace returns the callback invocations of the last run.
func (b *BacktestEngineV1) Trace() []TraceEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.trace
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (result types.BacktestResult, err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if len(b.events) == 0 {
		return types.BacktestResult{}, errors.New(errors.ErrCodeNoEventsRegistered, "no events registered")
	}

	if err := b.state.Cleanup(); err != nil {
		return types.BacktestResult{}, err
	}

	start, end, err := b.resolveRange(ctx)
	if err != nil {
		return types.BacktestResult{}, err
	}

	if err := b.prime(ctx, start, end); err != nil {
		return types.BacktestResult{}, err
	}

	book, err := ledger.New(b.initialValues)
	if err != nil {
		return types.BacktestResult{}, err
	}

	clock := NewClock(start)
	backtestTrading := NewBacktestTrading(b.state, book, b.prices, clock, b.rules, b.config, b.log)
	backtestTrading.SetContext(ctx)

	if callbacks.OnOrderFilled != nil {
		backtestTrading.SetOnOrderFilled(*callbacks.OnOrderFilled)
	}

	valuator := NewValuator(b.config.QuoteAccountValueIn, b.prices, b.config.UsePrice, b.log)

	var (
		samples []types.AccountValueSample
		current int
		bar     *progressbar.ProgressBar
	)

	record := func(now time.Time) error {
		sample := valuator.Sample(book.Snapshot(), now)
		samples = append(samples, sample)

		return b.state.RecordAccountValue(sample)
	}

	hooks := SchedulerHooks{
		BeforeTick: backtestTrading.ProcessLimitOrders,
		AfterTick:  nil,
	}

	scheduler := NewScheduler(b.events, clock, b.prices, b.config.UsePrice, b.config.IgnoreUserExceptions, hooks, b.log)
	total := scheduler.TotalTicks(start, end)

	scheduler.hooks.AfterTick = func(now time.Time, _ *events.EventDefinition) error {
		if err := record(now); err != nil {
			return err
		}

		current++

		if bar != nil {
			_ = bar.Add(1)
		}

		if callbacks.OnTick != nil {
			return (*callbacks.OnTick)(current, total)
		}

		return nil
	}

	b.mu.Lock()
	b.scheduler = scheduler
	b.mu.Unlock()

	if err := scheduler.Init(start, backtestTrading); err != nil {
		return types.BacktestResult{}, err
	}

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(start, end, total); err != nil {
			return types.BacktestResult{}, err
		}
	}

	if b.config.SaveInitialAccountValue {
		if err := record(start); err != nil {
			return types.BacktestResult{}, err
		}
	}

	if b.config.ShowProgressDuringBacktest {
		bar = newProgressBar(total)
	}

	b.log.Info("Backtest started",
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("events", len(b.events)),
		zap.Int("ticks", total),
	)

	runErr := scheduler.Run(ctx, end)

	b.mu.Lock()
	b.trace = scheduler.Trace()
	b.scheduler = nil
	b.mu.Unlock()

	if bar != nil {
		_ = bar.Finish()
	}

	if runErr != nil {
		return types.BacktestResult{}, runErr
	}

	result, err = b.buildResult(start, end, book, samples)
	if err != nil {
		return types.BacktestResult{}, err
	}

	b.log.Info("Backtest finished",
		zap.String("id", result.ID),
		zap.Float64("final_value", result.FinalValue),
		zap.Int("trades", result.Metrics.NumberOfTrades),
	)

	return result, nil
}

// resolveRange picks [start, end) from the config, falling back to what the
// cache holds for the registered events.
func (b *BacktestEngineV1) resolveRange(ctx context.Context) (time.Time, time.Time, error) {
	if b.config.StartTime.IsSome() && b.config.EndTime.IsSome() {
		return b.config.StartTime.Unwrap(), b.config.EndTime.Unwrap(), nil
	}

	for _, pair := range b.pairs() {
		b.prices.Load(ctx, pair.symbol, pair.resolution)
	}

	cached, ok := b.prices.CachedRange()
	if !ok {
		return time.Time{}, time.Time{}, errors.New(errors.ErrCodeInvalidConfiguration,
			"no start or end time given and no cached prices to fall back to")
	}

	start, end := cached.Start, cached.End
	if b.config.StartTime.IsSome() {
		start = b.config.StartTime.Unwrap()
	}

	if b.config.EndTime.IsSome() {
		end = b.config.EndTime.Unwrap()
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"resolved backtest range is empty: %s - %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	b.log.Warn("Backtest range not fully configured, using cached prices",
		zap.Time("start", start),
		zap.Time("end", end),
	)

	return start, end, nil
}

// prime loads every registered (symbol, resolution) over [start, end).
// Symbols without data are reported and their events skip until data exists.
func (b *BacktestEngineV1) prime(ctx context.Context, start, end time.Time) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, pair := range b.pairs() {
		g.Go(func() error {
			err := b.AddPrices(gctx, pair.symbol, pair.resolution, start, end)
			if err == nil {
				return nil
			}

			if errors.ContainsCode(err, errors.ErrCodeDataUnavailable) {
				b.log.Warn("Prices unavailable, events for this symbol will skip",
					zap.String("symbol", pair.symbol),
					zap.Duration("resolution", pair.resolution),
					zap.Error(err),
				)

				return nil
			}

			return err
		})
	}

	return g.Wait()
}

func (b *BacktestEngineV1) pairs() []symbolResolution {
	seen := make(map[symbolResolution]bool)

	var pairs []symbolResolution

	for _, event := range b.events {
		pair := symbolResolution{symbol: event.Symbol, resolution: event.Resolution}
		if seen[pair] {
			continue
		}

		seen[pair] = true
		pairs = append(pairs, pair)
	}

	return pairs
}

func (b *BacktestEngineV1) buildResult(start, end time.Time, book *ledger.Ledger, samples []types.AccountValueSample) (types.BacktestResult, error) {
	interval, err := b.config.ResampleInterval()
	if err != nil {
		return types.BacktestResult{}, err
	}

	trades, err := b.state.GetFilledOrders()
	if err != nil {
		return types.BacktestResult{}, err
	}

	totalFees, err := b.state.TotalFees()
	if err != nil {
		return types.BacktestResult{}, err
	}

	resampled := ResampleAccountValues(samples, interval)
	metrics := ComputeMetrics(samples, resampled, interval, b.config.RiskFreeReturnRate, totalFees, len(trades))

	finalBalances := make(map[string]float64)
	for _, asset := range book.Assets() {
		finalBalances[asset] = book.Total(asset).InexactFloat64()
	}

	initialBalances := make(map[string]float64, len(b.initialValues))
	for asset, amount := range b.initialValues {
		initialBalances[asset] = amount
	}

	result := types.BacktestResult{
		ID:                     uuid.New().String(),
		Start:                  start,
		End:                    end,
		QuoteAsset:             b.config.QuoteAccountValueIn,
		InitialValue:           0,
		FinalValue:             0,
		ResampleInterval:       interval,
		Metrics:                metrics,
		AccountValues:          samples,
		ResampledAccountValues: resampled,
		Trades:                 trades,
		ResultFolder:           "",
		TradesFilePath:         "",
		AccountValuesPath:      "",
		InitialBalances:        initialBalances,
		FinalBalances:          finalBalances,
	}

	if len(samples) > 0 {
		result.InitialValue = samples[0].Value
		result.FinalValue = samples[len(samples)-1].Value
	}

	if b.config.ResultsFolder != "" {
		if err := b.writeResults(&result); err != nil {
			return types.BacktestResult{}, err
		}
	}

	return result, nil
}

func (b *BacktestEngineV1) writeResults(result *types.BacktestResult) error {
	folder := getResultFolder(b.config.ResultsFolder, result.Start, result.End, result.ID)

	if err := b.state.Write(folder); err != nil {
		return err
	}

	result.ResultFolder = folder
	result.TradesFilePath = filepath.Join(folder, TradesFileName)
	result.AccountValuesPath = filepath.Join(folder, AccountValuesFileName)

	if err := types.WriteBacktestResult(filepath.Join(folder, ResultFileName), *result); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestResultWrite, "failed to write result summary", err)
	}

	b.log.Info("Results written", zap.String("folder", folder))

	return nil
}

// GetConfigSchema implements engine.Engine.
func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	config := b.config

	return config.GenerateSchemaJSON()
}

// Close implements engine.Engine.
func (b *BacktestEngineV1) Close() error {
	var firstErr error

	if err := b.prices.Close(); err != nil {
		firstErr = err
	}

	if err := b.state.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
