package types

import (
	"math"
	"time"
)

// PriceColumn selects which OHLCV column represents the price of a bar.
type PriceColumn string

const (
	PriceColumnOpen  PriceColumn = "open"
	PriceColumnHigh  PriceColumn = "high"
	PriceColumnLow   PriceColumn = "low"
	PriceColumnClose PriceColumn = "close"
)

// Valid reports whether c names an OHLC column.
func (c PriceColumn) Valid() bool {
	switch c {
	case PriceColumnOpen, PriceColumnHigh, PriceColumnLow, PriceColumnClose:
		return true
	default:
		return false
	}
}

// Bar is one OHLCV row. Time is the open time; the row covers [Time, Time+granularity).
type Bar struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Price returns the value of the given column. Unknown columns fall back to close.
func (b Bar) Price(column PriceColumn) float64 {
	switch column {
	case PriceColumnOpen:
		return b.Open
	case PriceColumnHigh:
		return b.High
	case PriceColumnLow:
		return b.Low
	default:
		return b.Close
	}
}

// AggregateBars folds consecutive rows into one bar starting at start.
// It returns false when bars is empty.
func AggregateBars(start time.Time, bars []Bar) (Bar, bool) {
	if len(bars) == 0 {
		return Bar{}, false
	}

	out := Bar{
		Time:   start,
		Open:   bars[0].Open,
		High:   bars[0].High,
		Low:    bars[0].Low,
		Close:  bars[len(bars)-1].Close,
		Volume: 0,
	}

	for _, b := range bars {
		out.High = math.Max(out.High, b.High)
		out.Low = math.Min(out.Low, b.Low)
		out.Volume += b.Volume
	}

	return out, true
}

// PriceSeries is an ordered run of bars for one symbol at one granularity.
type PriceSeries struct {
	Symbol      string        `yaml:"symbol" json:"symbol"`
	Granularity time.Duration `yaml:"granularity" json:"granularity"`
	Bars        []Bar         `yaml:"bars" json:"bars"`
}

// Len returns the number of rows.
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series has no rows.
func (s PriceSeries) Empty() bool {
	return len(s.Bars) == 0
}

// Start returns the open time of the first row.
func (s PriceSeries) Start() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}

	return s.Bars[0].Time
}

// End returns the exclusive end of the last row.
func (s PriceSeries) End() time.Time {
	if len(s.Bars) == 0 {
		return time.Time{}
	}

	return s.Bars[len(s.Bars)-1].Time.Add(s.Granularity)
}

// Prices returns the chosen column for every row.
func (s PriceSeries) Prices(column PriceColumn) []float64 {
	prices := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		prices[i] = b.Price(column)
	}

	return prices
}

// Smooth returns a copy with interior gaps filled by linear interpolation
// between the closes on either side of each gap. Filled rows carry zero volume.
func (s PriceSeries) Smooth() PriceSeries {
	out := PriceSeries{Symbol: s.Symbol, Granularity: s.Granularity, Bars: nil}
	if s.Granularity <= 0 || len(s.Bars) < 2 {
		out.Bars = append(out.Bars, s.Bars...)

		return out
	}

	out.Bars = make([]Bar, 0, len(s.Bars))
	for i, b := range s.Bars {
		if i > 0 {
			prev := s.Bars[i-1]
			steps := int(b.Time.Sub(prev.Time) / s.Granularity)

			for k := 1; k < steps; k++ {
				frac := float64(k) / float64(steps)
				price := prev.Close + (b.Open-prev.Close)*frac
				out.Bars = append(out.Bars, Bar{
					Time:   prev.Time.Add(time.Duration(k) * s.Granularity),
					Open:   price,
					High:   price,
					Low:    price,
					Close:  price,
					Volume: 0,
				})
			}
		}

		out.Bars = append(out.Bars, b)
	}

	return out
}

// OrderbookLevel is one price level of a book side.
type OrderbookLevel struct {
	Price float64 `yaml:"price" json:"price"`
	Size  float64 `yaml:"size" json:"size"`
}

// OrderbookUpdate is delivered to orderbook events. In backtests it is a
// synthetic single-level book built from the price tick.
type OrderbookUpdate struct {
	Symbol string           `yaml:"symbol" json:"symbol"`
	Time   time.Time        `yaml:"time" json:"time"`
	Bids   []OrderbookLevel `yaml:"bids" json:"bids"`
	Asks   []OrderbookLevel `yaml:"asks" json:"asks"`
}

// NewPriceTickOrderbook builds the degraded book used when no level-2 history exists.
func NewPriceTickOrderbook(symbol string, t time.Time, price float64) OrderbookUpdate {
	return OrderbookUpdate{
		Symbol: symbol,
		Time:   t,
		Bids:   []OrderbookLevel{{Price: price, Size: 0}},
		Asks:   []OrderbookLevel{{Price: price, Size: 0}},
	}
}
