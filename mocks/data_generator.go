package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DataGenerator generates synthetic OHLCV bars for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a generator. The same seed always yields the same bars.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the BASE-QUOTE pair the series is labelled with
	Symbol string
	// StartTime is the open time of the first bar
	StartTime time.Time
	// Interval is the granularity of the series
	Interval time.Duration
	// Count is the number of bars
	Count int
	// InitialPrice is the open of the first bar
	InitialPrice float64
	// Volatility is the standard deviation of one step (0.01 = 1%)
	Volatility float64
	// Trend is the total drift spread over the series
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
	// VolumeVariance is the relative spread of volume (0.0 to 1.0)
	VolumeVariance float64
}

// DefaultConfig returns a one-minute BTC-USD series of 10000 bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "BTC-USD",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          10000,
		InitialPrice:   100.0,
		Volatility:     0.002,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate creates bars following a geometric random walk.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	barTime := config.StartTime

	drift := 0.0
	if config.Count > 0 {
		drift = config.Trend / float64(config.Count)
	}

	for i := 0; i < config.Count; i++ {
		open := price

		// Box-Muller
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		close := open * (1 + config.Volatility*z + drift)
		if close <= 0 {
			close = open * 0.99
		}

		high := math.Max(open, close) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, close) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)

		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.Bar{
			Time:   barTime,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		price = close
		barTime = barTime.Add(config.Interval)
	}

	return bars
}

// GenerateSeries wraps Generate in a PriceSeries.
func (g *DataGenerator) GenerateSeries(config GeneratorConfig) types.PriceSeries {
	return types.PriceSeries{
		Symbol:      config.Symbol,
		Granularity: config.Interval,
		Bars:        g.Generate(config),
	}
}

// GenerateMultiSymbol generates one series per symbol with slightly varied
// initial price and volatility.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) map[string][]types.Bar {
	all := make(map[string][]types.Bar, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		all[symbol] = g.Generate(config)
	}

	return all
}

// FlatBars returns bars whose OHLC all equal the given prices, one per interval.
func FlatBars(start time.Time, interval time.Duration, prices ...float64) []types.Bar {
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		bars[i] = types.Bar{
			Time:   start.Add(time.Duration(i) * interval),
			Open:   p,
			High:   p,
			Low:    p,
			Close:  p,
			Volume: 1,
		}
	}

	return bars
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
