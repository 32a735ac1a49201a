package datasource

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
	"github.com/tidwall/btree"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxFetchRetries bounds the retries of a single history request.
const DefaultMaxFetchRetries = 3

type series struct {
	bars    btree.Map[int64, types.Bar]
	covered RangeSet
	load    sync.Once
}

// PriceCache fetches OHLCV history on demand and serves cached lookups.
// It is safe for concurrent use.
type PriceCache struct {
	source     exchange.HistorySource
	store      Store
	logger     *logger.Logger
	maxRetries uint64
	smooth     bool
	newBackOff func() backoff.BackOff

	mu     sync.RWMutex
	series map[SeriesKey]*series
	warned map[time.Duration]bool
	group  singleflight.Group
}

// Option configures a PriceCache.
type Option func(*PriceCache)

// WithStore persists fetched rows and coverage.
func WithStore(store Store) Option {
	return func(c *PriceCache) {
		c.store = store
	}
}

// WithMaxRetries sets how many times a failed fetch is retried.
func WithMaxRetries(retries uint64) Option {
	return func(c *PriceCache) {
		c.maxRetries = retries
	}
}

// WithSmoothing fills interior gaps of every fetched window by linear interpolation.
func WithSmoothing(enabled bool) Option {
	return func(c *PriceCache) {
		c.smooth = enabled
	}
}

// WithBackOff replaces the exponential backoff policy between retries.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *PriceCache) {
		c.newBackOff = newBackOff
	}
}

func NewPriceCache(source exchange.HistorySource, log *logger.Logger, opts ...Option) *PriceCache {
	c := &PriceCache{
		source:     source,
		store:      nil,
		logger:     log.Named("price_cache"),
		maxRetries: DefaultMaxFetchRetries,
		smooth:     false,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		series: make(map[SeriesKey]*series),
		warned: make(map[time.Duration]bool),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Granularity maps a resolution onto a granularity the source accepts.
// A rounded value is logged once per resolution.
func (c *PriceCache) Granularity(resolution time.Duration) time.Duration {
	granularity, rounded := exchange.RoundGranularity(resolution, c.source.Granularities())
	if !rounded {
		return granularity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.warned[resolution] {
		c.warned[resolution] = true
		c.logger.Warn("Resolution is not supported by the exchange, rounding",
			zap.Duration("resolution", resolution),
			zap.Duration("granularity", granularity))
	}

	return granularity
}

// Get returns the rows of [start, end) for symbol at the granularity nearest to
// resolution, fetching only what is not cached yet.
func (c *PriceCache) Get(ctx context.Context, symbol string, resolution time.Duration, start, end time.Time) (types.PriceSeries, error) {
	if symbol == "" {
		return types.PriceSeries{}, errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	granularity := c.Granularity(resolution)
	key := SeriesKey{Symbol: symbol, Granularity: granularity}
	window := TimeRange{Start: alignDown(start, granularity), End: alignDown(end, granularity)}

	if window.Empty() {
		window.End = window.Start.Add(granularity)
	}

	s := c.seriesFor(ctx, key)

	c.mu.RLock()
	gaps := s.covered.Uncovered(window)
	c.mu.RUnlock()

	for _, gap := range gaps {
		if err := c.fill(ctx, key, s, gap); err != nil {
			return types.PriceSeries{}, err
		}
	}

	result := c.collect(key, s, window)
	if result.Empty() {
		return result, errors.Newf(errors.ErrCodeDataUnavailable, "no price data for %s between %s and %s",
			symbol, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	}

	return result, nil
}

// FetchHistory returns the last count rows at or before now, fetching
// older rows when the cache holds fewer than count.
func (c *PriceCache) FetchHistory(ctx context.Context, symbol string, resolution time.Duration, count int, now time.Time) ([]types.Bar, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "count must be positive, got %d", count)
	}

	bars := c.History(symbol, resolution, count, now)
	if len(bars) >= count {
		return bars, nil
	}

	granularity := c.Granularity(resolution)
	end := alignDown(now, granularity).Add(granularity)
	start := end.Add(-time.Duration(count) * granularity)

	if _, err := c.Get(ctx, symbol, resolution, start, end); err != nil {
		return nil, err
	}

	return c.History(symbol, resolution, count, now), nil
}

// PriceAt returns the column of the most recent cached row at or before t,
// looking across every cached granularity of symbol.
func (c *PriceCache) PriceAt(symbol string, t time.Time, column types.PriceColumn) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		best     types.Bar
		bestGran time.Duration
		found    bool
	)

	pivotUnix := t.Unix()

	for key, s := range c.series {
		if key.Symbol != symbol {
			continue
		}

		s.bars.Descend(pivotUnix, func(_ int64, bar types.Bar) bool {
			if !found || bar.Time.After(best.Time) || (bar.Time.Equal(best.Time) && key.Granularity < bestGran) {
				best = bar
				bestGran = key.Granularity
				found = true
			}

			return false
		})
	}

	if !found {
		return 0, false
	}

	return best.Price(column), true
}

// Bar aggregates the cached rows of the series for resolution that open and
// close inside [from, to). A row closing after to is left out, so a coarser
// granularity than resolution can yield no bar at all.
func (c *PriceCache) Bar(symbol string, resolution time.Duration, from, to time.Time) (types.Bar, bool) {
	granularity, _ := exchange.RoundGranularity(resolution, c.source.Granularities())

	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.series[SeriesKey{Symbol: symbol, Granularity: granularity}]
	if !ok {
		return types.Bar{}, false
	}

	var rows []types.Bar

	last := to.Add(-granularity).Unix()

	s.bars.Ascend(from.Unix(), func(k int64, bar types.Bar) bool {
		if k > last {
			return false
		}

		rows = append(rows, bar)

		return true
	})

	return types.AggregateBars(from, rows)
}

// History returns up to count cached rows with time <= now, oldest first.
func (c *PriceCache) History(symbol string, resolution time.Duration, count int, now time.Time) []types.Bar {
	granularity, _ := exchange.RoundGranularity(resolution, c.source.Granularities())

	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.series[SeriesKey{Symbol: symbol, Granularity: granularity}]
	if !ok || count <= 0 {
		return nil
	}

	rows := make([]types.Bar, 0, count)

	s.bars.Descend(now.Unix(), func(_ int64, bar types.Bar) bool {
		rows = append(rows, bar)

		return len(rows) < count
	})

	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	return rows
}

// CachedRange returns the span of every covered range across all series.
func (c *PriceCache) CachedRange() (TimeRange, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		bounds TimeRange
		found  bool
	)

	for _, s := range c.series {
		r, ok := s.covered.Bounds()
		if !ok {
			continue
		}

		if !found {
			bounds = r
			found = true

			continue
		}

		bounds.Start = minTime(bounds.Start, r.Start)
		bounds.End = maxTime(bounds.End, r.End)
	}

	return bounds, found
}

// Covered returns the merged covered ranges of one series.
func (c *PriceCache) Covered(symbol string, granularity time.Duration) []TimeRange {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.series[SeriesKey{Symbol: symbol, Granularity: granularity}]
	if !ok {
		return nil
	}

	return s.covered.Ranges()
}

// Load reads every series of symbol at resolution from the store, so cached-only
// runs can compute their range before any Get.
func (c *PriceCache) Load(ctx context.Context, symbol string, resolution time.Duration) {
	c.seriesFor(ctx, SeriesKey{Symbol: symbol, Granularity: c.Granularity(resolution)})
}

// Close closes the store, if any.
func (c *PriceCache) Close() error {
	if c.store == nil {
		return nil
	}

	return c.store.Close()
}

func (c *PriceCache) seriesFor(ctx context.Context, key SeriesKey) *series {
	c.mu.Lock()
	s, ok := c.series[key]

	if !ok {
		s = &series{}
		c.series[key] = s
	}
	c.mu.Unlock()

	s.load.Do(func() {
		if c.store == nil {
			return
		}

		bars, covered, err := c.store.Load(ctx, key)
		if err != nil {
			c.logger.Warn("Failed to load cached prices",
				zap.String("symbol", key.Symbol),
				zap.Duration("granularity", key.Granularity),
				zap.Error(err))

			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()

		for _, bar := range bars {
			s.bars.Set(bar.Time.Unix(), bar)
		}

		for _, r := range covered {
			s.covered.Add(r)
		}

		c.logger.Debug("Loaded cached prices",
			zap.String("symbol", key.Symbol),
			zap.Duration("granularity", key.Granularity),
			zap.Int("rows", len(bars)))
	})

	return s
}

func (c *PriceCache) fill(ctx context.Context, key SeriesKey, s *series, gap TimeRange) error {
	_, err, _ := c.group.Do(fetchKey(key, gap), func() (any, error) {
		bars, err := c.fetch(ctx, key, gap)
		if err != nil {
			return nil, err
		}

		c.merge(ctx, key, s, gap, bars)

		return nil, nil
	})

	return err
}

func (c *PriceCache) fetch(ctx context.Context, key SeriesKey, gap TimeRange) ([]types.Bar, error) {
	var bars []types.Bar

	attempt := 0
	operation := func() error {
		attempt++

		result, err := c.source.GetProductHistory(ctx, key.Symbol, gap.Start, gap.End, key.Granularity)
		if err != nil {
			if errors.HasCode(err, errors.ErrCodeInvalidTimespan) {
				return backoff.Permanent(err)
			}

			c.logger.Warn("Failed to fetch price history",
				zap.String("symbol", key.Symbol),
				zap.Time("start", gap.Start),
				zap.Time("end", gap.End),
				zap.Int("attempt", attempt),
				zap.Error(err))

			return err
		}

		bars = result

		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataUnavailable, err, "failed to fetch %s history between %s and %s",
			key.Symbol, gap.Start.Format(time.RFC3339), gap.End.Format(time.RFC3339))
	}

	c.logger.Debug("Fetched price history",
		zap.String("symbol", key.Symbol),
		zap.Duration("granularity", key.Granularity),
		zap.Time("start", gap.Start),
		zap.Time("end", gap.End),
		zap.Int("rows", len(bars)))

	return bars, nil
}

// merge stores the rows of gap and marks the span between the first and last
// row covered. Leading and trailing pieces the source did not return stay uncovered.
func (c *PriceCache) merge(ctx context.Context, key SeriesKey, s *series, gap TimeRange, bars []types.Bar) {
	c.mu.Lock()

	added := make([]types.Bar, 0, len(bars))

	for _, bar := range bars {
		bar.Time = bar.Time.UTC()
		if !gap.Contains(bar.Time) {
			continue
		}

		if _, exists := s.bars.Get(bar.Time.Unix()); exists {
			continue
		}

		s.bars.Set(bar.Time.Unix(), bar)
		added = append(added, bar)
	}

	var inGap []types.Bar

	s.bars.Ascend(gap.Start.Unix(), func(k int64, bar types.Bar) bool {
		if k >= gap.End.Unix() {
			return false
		}

		inGap = append(inGap, bar)

		return true
	})

	if len(inGap) == 0 {
		c.mu.Unlock()
		c.logger.Warn("Exchange returned no rows",
			zap.String("symbol", key.Symbol),
			zap.Time("start", gap.Start),
			zap.Time("end", gap.End))

		return
	}

	if c.smooth {
		smoothed := types.PriceSeries{Symbol: key.Symbol, Granularity: key.Granularity, Bars: inGap}.Smooth()
		for _, bar := range smoothed.Bars {
			if _, exists := s.bars.Get(bar.Time.Unix()); !exists {
				s.bars.Set(bar.Time.Unix(), bar)
				added = append(added, bar)
			}
		}
	}

	covered := TimeRange{
		Start: maxTime(gap.Start, alignDown(inGap[0].Time, key.Granularity)),
		End:   minTime(gap.End, inGap[len(inGap)-1].Time.Add(key.Granularity)),
	}
	s.covered.Add(covered)

	if covered.Start.After(gap.Start) || covered.End.Before(gap.End) {
		c.logger.Debug("Exchange returned a partial window",
			zap.String("symbol", key.Symbol),
			zap.Time("requested_start", gap.Start),
			zap.Time("requested_end", gap.End),
			zap.Time("covered_start", covered.Start),
			zap.Time("covered_end", covered.End))
	}

	ranges := s.covered.Ranges()
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	if err := c.store.Save(ctx, key, added, ranges); err != nil {
		c.logger.Warn("Failed to persist cached prices",
			zap.String("symbol", key.Symbol),
			zap.Error(err))
	}
}

func (c *PriceCache) collect(key SeriesKey, s *series, window TimeRange) types.PriceSeries {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := types.PriceSeries{Symbol: key.Symbol, Granularity: key.Granularity, Bars: nil}

	s.bars.Ascend(window.Start.Unix(), func(k int64, bar types.Bar) bool {
		if k >= window.End.Unix() {
			return false
		}

		out.Bars = append(out.Bars, bar)

		return true
	})

	return out
}
