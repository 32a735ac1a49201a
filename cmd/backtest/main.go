package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/moznion/go-optional"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
	"github.com/rxtech-lab/argo-backtest/pkg/strategy"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var dateLayouts = []string{time.DateOnly, time.DateTime, time.RFC3339}

func exchangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Usage:   fmt.Sprintf("Exchange serving history and fees (%s, %s)", exchange.ProviderBinance, exchange.ProviderPolygon),
			Value:   string(exchange.ProviderBinance),
		},
		&cli.StringFlag{
			Name:    "polygon-api-key",
			Usage:   "Polygon API key",
			Sources: cli.EnvVars("POLYGON_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "binance-api-key",
			Usage:   "Binance API key, needed for account and fee lookups",
			Sources: cli.EnvVars("BINANCE_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "binance-secret-key",
			Usage:   "Binance secret key",
			Sources: cli.EnvVars("BINANCE_SECRET_KEY"),
		},
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"s"},
			Usage:    "Symbol in `BASE-QUOTE` form",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "resolution",
			Aliases: []string{"r"},
			Usage:   "Event resolution such as 1m, 1h or 1d",
			Value:   "1d",
		},
		&cli.StringFlag{
			Name:  "settings",
			Usage: "Path to a JSON or YAML settings file",
		},
		&cli.TimestampFlag{
			Name:   "start",
			Usage:  "Start of the period in `YYYY-MM-DD` format",
			Config: cli.TimestampConfig{Layouts: dateLayouts},
		},
		&cli.TimestampFlag{
			Name:   "end",
			Usage:  "End of the period in `YYYY-MM-DD` format",
			Config: cli.TimestampConfig{Layouts: dateLayouts},
		},
	}
}

func runFlags() []cli.Flag {
	return append(exchangeFlags(),
		&cli.StringFlag{
			Name:  "to",
			Usage: "Look-back ending now, such as 10d or 1M. Cannot be combined with --start or --end",
		},
		&cli.StringFlag{
			Name:  "strategy",
			Usage: "Built-in strategy: " + strings.Join(strategyNames(), ", "),
			Value: "buy-and-hold",
		},
		&cli.StringSliceFlag{
			Name:  "initial",
			Usage: "Initial balance as `ASSET=AMOUNT`, repeatable. Defaults to the exchange account",
		},
		&cli.StringFlag{
			Name:  "results",
			Usage: "Folder the result files are written to",
		},
	)
}

func newExchange(cmd *cli.Command) (exchange.Exchange, error) {
	return exchange.NewExchange(exchange.ProviderConfig{
		ProviderType:  exchange.ProviderType(cmd.String("provider")),
		ApiKey:        cmd.String("binance-api-key"),
		SecretKey:     cmd.String("binance-secret-key"),
		PolygonApiKey: cmd.String("polygon-api-key"),
		BaseURL:       "",
		UseTestnet:    false,
	})
}

func parseInitialValues(values []string) (map[string]float64, error) {
	if len(values) == 0 {
		return nil, nil
	}

	out := make(map[string]float64, len(values))

	for _, value := range values {
		asset, amount, ok := strings.Cut(value, "=")
		if !ok || asset == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "initial value %q is not ASSET=AMOUNT", value)
		}

		parsed, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid amount in %q", value)
		}

		out[strings.ToUpper(asset)] = parsed
	}

	return out, nil
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	build, ok := builtinStrategies[cmd.String("strategy")]
	if !ok {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown strategy %q", cmd.String("strategy"))
	}

	resolution, err := utils.ParseInterval(cmd.String("resolution"))
	if err != nil {
		return err
	}

	initialValues, err := parseInitialValues(cmd.StringSlice("initial"))
	if err != nil {
		return err
	}

	ex, err := newExchange(cmd)
	if err != nil {
		return err
	}

	s, err := strategy.New(ex, strategy.WithLogger(log))
	if err != nil {
		return err
	}

	if err := build(s, cmd.String("symbol"), resolution); err != nil {
		return err
	}

	opts := strategy.BacktestOptions{
		To:            cmd.String("to"),
		InitialValues: initialValues,
		StartDate:     optional.None[time.Time](),
		EndDate:       optional.None[time.Time](),
		SettingsPath:  cmd.String("settings"),
		Overrides:     map[string]any{},
		Callbacks:     strategy.BacktestCallbacks{},
	}

	if start := cmd.Timestamp("start"); !start.IsZero() {
		opts.StartDate = optional.Some(start.UTC())
	}

	if end := cmd.Timestamp("end"); !end.IsZero() {
		opts.EndDate = optional.Some(end.UTC())
	}

	if folder := cmd.String("results"); folder != "" {
		opts.Overrides["results_folder"] = folder
	}

	result, err := s.Backtest(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Println(renderSummary(result))

	return nil
}

// downloadAction fills the on-disk price cache so later runs need no network.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	defer func() { _ = log.Sync() }()

	start, end := cmd.Timestamp("start").UTC(), cmd.Timestamp("end").UTC()
	if start.IsZero() {
		return errors.New(errors.ErrCodeMissingParameter, "--start is required")
	}

	if end.IsZero() {
		end = time.Now().UTC()
	}

	resolution, err := utils.ParseInterval(cmd.String("resolution"))
	if err != nil {
		return err
	}

	config, err := engine.LoadSettings(cmd.String("settings"), map[string]any{"continuous_caching": true})
	if err != nil {
		return err
	}

	ex, err := newExchange(cmd)
	if err != nil {
		return err
	}

	backtest, err := engine.NewBacktestEngineV1(config, ex, log)
	if err != nil {
		return err
	}

	defer func() {
		if err := backtest.Close(); err != nil {
			log.Warn("Failed to close price cache", zap.Error(err))
		}
	}()

	symbol := cmd.String("symbol")
	if err := backtest.AddPrices(ctx, symbol, resolution, start, end); err != nil {
		return err
	}

	log.Info("Prices cached",
		zap.String("symbol", symbol),
		zap.Duration("resolution", resolution),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.String("cache", config.CacheLocation))

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "argo-backtest",
		Usage: "Replay trading strategies over historical prices",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Run a built-in strategy and print its summary",
				Flags:  runFlags(),
				Action: runAction,
			},
			{
				Name:   "download",
				Usage:  "Cache historical prices for offline runs",
				Flags:  exchangeFlags(),
				Action: downloadAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		stop()
		log.Fatal(ErrorStyle.Render(err.Error()))
	}
}
