package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type Side string

type OrderType string

type OrderStatus string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
)

// Order is an order as seen by strategies. In paper mode every field is
// synthesized by the order simulator; only Status changes after creation.
type Order struct {
	ID     string      `yaml:"id" json:"id" csv:"id"`
	Symbol string      `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side   Side        `yaml:"side" json:"side" csv:"side"`
	Type   OrderType   `yaml:"type" json:"type" csv:"type"`
	Status OrderStatus `yaml:"status" json:"status" csv:"status"`
	// Size is the base quantity. Zero for funds-denominated market orders until filled.
	Size float64 `yaml:"size" json:"size" csv:"size"`
	// Funds is the quote amount committed by funds-denominated market orders.
	Funds float64 `yaml:"funds" json:"funds" csv:"funds"`
	// Price is the fill price for market orders and the limit price for limit orders.
	Price float64 `yaml:"price" json:"price" csv:"price"`
	// Fee is charged in the quote currency.
	Fee       float64   `yaml:"fee" json:"fee" csv:"fee"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at" csv:"created_at"`
	FilledAt  time.Time `yaml:"filled_at" json:"filled_at" csv:"filled_at"`
}

// IsFinal reports whether the order can no longer change.
func (o Order) IsFinal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCanceled
}

// Notional returns size times price.
func (o Order) Notional() float64 {
	return o.Size * o.Price
}

// MarketOrderRequest carries exactly one of Size (base) or Funds (quote).
type MarketOrderRequest struct {
	Symbol string  `yaml:"symbol" json:"symbol" validate:"required,contains=-"`
	Side   Side    `yaml:"side" json:"side" validate:"required,oneof=buy sell"`
	Size   float64 `yaml:"size" json:"size" validate:"required_without=Funds,excluded_with=Funds,gte=0"`
	Funds  float64 `yaml:"funds" json:"funds" validate:"required_without=Size,excluded_with=Size,gte=0"`
}

// LimitOrderRequest is a resting order at Price for Size base units.
type LimitOrderRequest struct {
	Symbol string  `yaml:"symbol" json:"symbol" validate:"required,contains=-"`
	Side   Side    `yaml:"side" json:"side" validate:"required,oneof=buy sell"`
	Price  float64 `yaml:"price" json:"price" validate:"required,gt=0"`
	Size   float64 `yaml:"size" json:"size" validate:"required,gt=0"`
}

// Validate validates the MarketOrderRequest struct.
func (r *MarketOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid market order", err)
	}

	return nil
}

// Validate validates the LimitOrderRequest struct.
func (r *LimitOrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid limit order", err)
	}

	return nil
}
