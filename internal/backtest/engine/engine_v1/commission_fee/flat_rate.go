package commission_fee

import "github.com/rxtech-lab/argo-backtest/internal/types"

// FlatRateCommissionFee charges a fixed fraction of the notional.
type FlatRateCommissionFee struct {
	fees types.Fees
}

func NewFlatRateCommissionFee(fees types.Fees) CommissionFee {
	return &FlatRateCommissionFee{fees: fees}
}

// Rate returns the fraction charged for liquidity.
func (c *FlatRateCommissionFee) Rate(liquidity Liquidity) float64 {
	if liquidity == LiquidityMaker {
		return c.fees.MakerFeeRate
	}

	return c.fees.TakerFeeRate
}

func (c *FlatRateCommissionFee) Calculate(size float64, price float64, liquidity Liquidity) float64 {
	return size * price * c.Rate(liquidity)
}

// NewZeroCommissionFee is a flat rate of zero on both sides.
func NewZeroCommissionFee() CommissionFee {
	return &FlatRateCommissionFee{fees: types.Fees{MakerFeeRate: 0, TakerFeeRate: 0}}
}
