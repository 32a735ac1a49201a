package commission_fee

import "github.com/rxtech-lab/argo-backtest/internal/types"

// Liquidity tells whether an order added (maker) or removed (taker) liquidity.
type Liquidity string

const (
	LiquidityMaker Liquidity = "maker"
	LiquidityTaker Liquidity = "taker"
)

type CommissionFee interface {
	// Calculate returns the fee, in quote currency, for filling size units at price.
	Calculate(size float64, price float64, liquidity Liquidity) float64
}

// FeeModel selects how simulated fills are charged.
type FeeModel string

const (
	// FeeModelExchange charges the maker and taker rates published by the exchange.
	FeeModelExchange          FeeModel = "exchange"
	FeeModelInteractiveBroker FeeModel = "interactive_broker"
	FeeModelZero              FeeModel = "zero_commission"
)

var AllFeeModels = []any{
	FeeModelExchange,
	FeeModelInteractiveBroker,
	FeeModelZero,
}

// GetCommissionFeeHandler returns the fee model. fees is only used by FeeModelExchange.
func GetCommissionFeeHandler(model FeeModel, fees types.Fees) CommissionFee {
	switch model {
	case FeeModelExchange:
		return NewFlatRateCommissionFee(fees)
	case FeeModelInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case FeeModelZero:
		return NewZeroCommissionFee()
	default:
		return NewFlatRateCommissionFee(fees)
	}
}
