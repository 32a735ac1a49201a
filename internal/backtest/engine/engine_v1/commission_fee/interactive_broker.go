package commission_fee

import "math"

// Fixed per-unit pricing: 0.005 per unit, at least 1.0 per order and at
// most 1% of the notional.
const (
	ibPerUnit  = 0.005
	ibMinimum  = 1.0
	ibMaxShare = 0.01
)

type InteractiveBrokerCommissionFee struct{}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

func (c *InteractiveBrokerCommissionFee) Calculate(size float64, price float64, _ Liquidity) float64 {
	if size <= 0 {
		return 0
	}

	fee := math.Max(ibPerUnit*size, ibMinimum)

	return math.Min(fee, ibMaxShare*size*price)
}
