package exchange

import (
	"slices"
	"time"
)

var (
	// CoinbaseGranularities are the candle sizes accepted by Coinbase Pro style APIs.
	CoinbaseGranularities = []time.Duration{
		time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		time.Hour,
		6 * time.Hour,
		24 * time.Hour,
	}

	// BinanceGranularities are the kline intervals Binance serves.
	BinanceGranularities = []time.Duration{
		time.Minute,
		3 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		30 * time.Minute,
		time.Hour,
		2 * time.Hour,
		4 * time.Hour,
		6 * time.Hour,
		8 * time.Hour,
		12 * time.Hour,
		24 * time.Hour,
		3 * 24 * time.Hour,
		7 * 24 * time.Hour,
	}

	// PolygonGranularities are the aggregate sizes requested from Polygon.
	PolygonGranularities = []time.Duration{
		time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		30 * time.Minute,
		time.Hour,
		4 * time.Hour,
		24 * time.Hour,
		7 * 24 * time.Hour,
	}
)

// RoundGranularity maps resolution onto the nearest accepted granularity.
// Ties go to the smaller value, resolutions below the smallest round up to it
// and resolutions above the largest round down to it. The second result reports
// whether the value changed.
//
//	accepted = 60 300 900 3600 21600 86400 (seconds)
//	120  -> 60     600  -> 300 (tie)     7200 -> 3600
//	30   -> 60     1e6  -> 86400
func RoundGranularity(resolution time.Duration, accepted []time.Duration) (time.Duration, bool) {
	if len(accepted) == 0 {
		return resolution, false
	}

	sorted := slices.Clone(accepted)
	slices.Sort(sorted)

	best := sorted[0]
	for _, g := range sorted {
		if g == resolution {
			return g, false
		}

		if absDuration(g-resolution) < absDuration(best-resolution) {
			best = g
		}
	}

	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}

	return d
}
