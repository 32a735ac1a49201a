package types

// AssetBalance is the paper or live balance of one asset.
type AssetBalance struct {
	// Available can be spent by new orders.
	Available float64 `json:"available" yaml:"available"`
	// Hold is reserved by open limit orders.
	Hold float64 `json:"hold" yaml:"hold"`
}

// Total returns available plus hold.
func (b AssetBalance) Total() float64 {
	return b.Available + b.Hold
}

// Fees are flat maker and taker rates, expressed as fractions (0.005 = 0.5%).
type Fees struct {
	MakerFeeRate float64 `json:"maker_fee_rate" yaml:"maker_fee_rate"`
	TakerFeeRate float64 `json:"taker_fee_rate" yaml:"taker_fee_rate"`
}

// OrderFilter holds the exchange trading rules for one symbol.
// Zero values mean no limit.
type OrderFilter struct {
	Symbol         string  `json:"symbol" yaml:"symbol"`
	MinBaseSize    float64 `json:"min_base_size" yaml:"min_base_size"`
	MaxBaseSize    float64 `json:"max_base_size" yaml:"max_base_size"`
	BaseIncrement  float64 `json:"base_increment" yaml:"base_increment"`
	MinFunds       float64 `json:"min_funds" yaml:"min_funds"`
	MaxFunds       float64 `json:"max_funds" yaml:"max_funds"`
	QuoteIncrement float64 `json:"quote_increment" yaml:"quote_increment"`
}

// DefaultOrderFilter is used when an exchange publishes no rules for a symbol.
func DefaultOrderFilter(symbol string) OrderFilter {
	return OrderFilter{
		Symbol:         symbol,
		MinBaseSize:    0,
		MaxBaseSize:    0,
		BaseIncrement:  1e-8,
		MinFunds:       0,
		MaxFunds:       0,
		QuoteIncrement: 1e-8,
	}
}
