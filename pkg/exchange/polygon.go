package exchange

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// polygonAggsLimit is the maximum number of base aggregates per page.
const polygonAggsLimit = 50000

// PolygonAggsIterator is the iterator returned by ListAggs.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient abstracts the Polygon REST client for testing.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
	GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error)
}

type realPolygonAPI struct {
	client *polygon.Client
}

func (r *realPolygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return r.client.ListAggs(ctx, params, options...)
}

func (r *realPolygonAPI) GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error) {
	return r.client.GetLastTrade(ctx, params, options...)
}

// PolygonExchange serves history and last prices from Polygon.io.
// It cannot trade; order and account calls return ErrCodeUnsupportedOperation.
type PolygonExchange struct {
	api PolygonAPIClient
}

func NewPolygonExchange(apiKey string) (*PolygonExchange, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "apiKey is required")
	}

	return &PolygonExchange{api: &realPolygonAPI{client: polygon.New(apiKey)}}, nil
}

func newPolygonExchangeWithAPI(api PolygonAPIClient) *PolygonExchange {
	return &PolygonExchange{api: api}
}

func (p *PolygonExchange) Name() string {
	return string(ProviderPolygon)
}

func (p *PolygonExchange) Granularities() []time.Duration {
	return PolygonGranularities
}

// toPolygonTicker converts BTC-USD to the crypto ticker X:BTCUSD. Symbols
// without a quote currency are passed through as stock tickers.
func toPolygonTicker(symbol string) string {
	base, quote, err := types.SplitSymbol(symbol)
	if err != nil {
		return symbol
	}

	return "X:" + base + quote
}

// polygonTimespan splits a granularity into multiplier and timespan.
func polygonTimespan(granularity time.Duration) (int, models.Timespan, error) {
	switch {
	case granularity >= 7*24*time.Hour && granularity%(7*24*time.Hour) == 0:
		return int(granularity / (7 * 24 * time.Hour)), models.Week, nil
	case granularity >= 24*time.Hour && granularity%(24*time.Hour) == 0:
		return int(granularity / (24 * time.Hour)), models.Day, nil
	case granularity >= time.Hour && granularity%time.Hour == 0:
		return int(granularity / time.Hour), models.Hour, nil
	case granularity >= time.Minute && granularity%time.Minute == 0:
		return int(granularity / time.Minute), models.Minute, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidTimespan, "unsupported granularity for Polygon: %s", granularity)
	}
}

func (p *PolygonExchange) GetProductHistory(ctx context.Context, symbol string, start, end time.Time, granularity time.Duration) ([]types.Bar, error) {
	multiplier, timespan, err := polygonTimespan(granularity)
	if err != nil {
		return nil, err
	}

	params := models.ListAggsParams{
		Ticker:     toPolygonTicker(symbol),
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(polygonAggsLimit)

	iter := p.api.ListAggs(ctx, params)

	var bars []types.Bar

	for iter.Next() {
		agg := iter.Item()

		barTime := time.Time(agg.Timestamp).UTC()
		// Polygon treats To as inclusive
		if barTime.Before(start) || !barTime.Before(end) {
			continue
		}

		bars = append(bars, types.Bar{
			Time:   barTime,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "error iterating polygon aggregates for %s", symbol)
	}

	return bars, nil
}

func (p *PolygonExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := p.api.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: toPolygonTicker(symbol)})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to get last trade for %s", symbol)
	}

	if resp == nil || resp.Results.Price == 0 {
		return 0, errors.Newf(errors.ErrCodeMarketDataMissing, "no last trade for %s", symbol)
	}

	return resp.Results.Price, nil
}

// GetFees returns zero fees; Polygon is a data vendor.
func (p *PolygonExchange) GetFees(_ context.Context, _ string) (types.Fees, error) {
	return types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}, nil
}

func (p *PolygonExchange) GetOrderFilter(_ context.Context, symbol string) (types.OrderFilter, error) {
	return types.DefaultOrderFilter(symbol), nil
}

func (p *PolygonExchange) GetAccount(_ context.Context) (map[string]types.AssetBalance, error) {
	return nil, unsupported("GetAccount")
}

func (p *PolygonExchange) MarketOrder(_ context.Context, _ types.MarketOrderRequest) (types.Order, error) {
	return types.Order{}, unsupported("MarketOrder")
}

func (p *PolygonExchange) LimitOrder(_ context.Context, _ types.LimitOrderRequest) (types.Order, error) {
	return types.Order{}, unsupported("LimitOrder")
}

func (p *PolygonExchange) CancelOrder(_ context.Context, _ string, _ string) (types.Order, error) {
	return types.Order{}, unsupported("CancelOrder")
}

func (p *PolygonExchange) GetOpenOrders(_ context.Context, _ string) ([]types.Order, error) {
	return nil, unsupported("GetOpenOrders")
}

func (p *PolygonExchange) GetOrder(_ context.Context, _ string, _ string) (types.Order, error) {
	return types.Order{}, unsupported("GetOrder")
}

func unsupported(operation string) error {
	return errors.Newf(errors.ErrCodeUnsupportedOperation, "%s is not supported by the polygon exchange", operation)
}
