// Package exchange defines the exchange collaborator used by strategies and the
// backtest engine, together with per-exchange adapters.
//
// Every adapter speaks BASE-QUOTE symbols ("BTC-USD") and returns the common
// types in internal/types; exchange specific payloads are converted once, here.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ProviderType defines the type of exchange adapter.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// HistorySource serves historical OHLCV rows.
type HistorySource interface {
	// GetProductHistory returns rows with start <= time < end at the given granularity,
	// sorted by time. Granularity must be one of Granularities().
	GetProductHistory(ctx context.Context, symbol string, start, end time.Time, granularity time.Duration) ([]types.Bar, error)
	// Granularities lists the accepted granularities in ascending order.
	Granularities() []time.Duration
}

// Exchange is the calls object handed to strategies in live mode and consulted
// for history, fees and trading rules in backtests.
//
//nolint:interfacebloat // mirrors the exchange surface used by strategies
type Exchange interface {
	HistorySource
	Name() string
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetFees(ctx context.Context, symbol string) (types.Fees, error)
	GetAccount(ctx context.Context) (map[string]types.AssetBalance, error)
	GetOrderFilter(ctx context.Context, symbol string) (types.OrderFilter, error)
	MarketOrder(ctx context.Context, request types.MarketOrderRequest) (types.Order, error)
	LimitOrder(ctx context.Context, request types.LimitOrderRequest) (types.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID string) (types.Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
	GetOrder(ctx context.Context, symbol string, orderID string) (types.Order, error)
}

var (
	_ Exchange = (*BinanceExchange)(nil)
	_ Exchange = (*PolygonExchange)(nil)
)

// ProviderConfig holds the configuration for creating an exchange adapter.
type ProviderConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=polygon binance"`
	ApiKey        string       `validate:"required_with=SecretKey"`
	SecretKey     string       `validate:"required_with=ApiKey"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
	// BaseURL overrides the Binance endpoint.
	BaseURL    string
	UseTestnet bool
}

// NewExchange creates the adapter for config.ProviderType.
func NewExchange(config ProviderConfig) (Exchange, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid exchange configuration", err)
	}

	switch config.ProviderType {
	case ProviderPolygon:
		client, err := NewPolygonExchange(config.PolygonApiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Polygon exchange: %w", err)
		}

		return client, nil
	case ProviderBinance:
		return NewBinanceExchange(config), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider type: %s", config.ProviderType)
	}
}
